package domain

import (
	"fmt"
	"strings"
)

type Platform string

const (
	PlatformGitee  Platform = "gitee"
	PlatformGitHub Platform = "github"
)

// TrackedKey uniquely identifies a monitored pull request. Immutable
// once created.
type TrackedKey struct {
	Platform Platform `json:"platform"`
	Owner    string   `json:"owner"`
	Repo     string   `json:"repo"`
	Number   int      `json:"pull_request_id"`
}

// String renders the cache-key form "platform:owner/repo#number".
func (k TrackedKey) String() string {
	return fmt.Sprintf("%s:%s/%s#%d", k.Platform, k.Owner, k.Repo, k.Number)
}

type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusClosed PRStatus = "closed"
	PRStatusMerged PRStatus = "merged"
)

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// PRState is the normalized view of a pull request, produced fresh on
// each successful fetch regardless of which platform it came from.
type PRState struct {
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	SourceBranch string   `json:"source_branch"`
	TargetBranch string   `json:"target_branch"`
	Status       PRStatus `json:"status"`
	Labels       []Label  `json:"labels"`
}

// LabelNames returns the set of label names for structural comparison.
func (s PRState) LabelNames() map[string]struct{} {
	names := make(map[string]struct{}, len(s.Labels))
	for _, l := range s.Labels {
		names[l.Name] = struct{}{}
	}
	return names
}

// FollowedAuthor is a rule that dynamically contributes the author's
// open pull requests in one repository to the tracking set. Repo is
// stored as a single "owner/repo" string, validated at the command
// boundary.
type FollowedAuthor struct {
	Platform Platform `json:"platform"`
	Author   string   `json:"author"`
	Repo     string   `json:"repo"`
}

// SplitRepo splits the "owner/repo" form. Callers can rely on the
// command boundary having rejected malformed values.
func (f FollowedAuthor) SplitRepo() (owner, repo string) {
	owner, repo, _ = strings.Cut(f.Repo, "/")
	return owner, repo
}

// Snapshot is one entry of the engine's rendered view: the last known
// state for a key and whether it is still within TTL. State is nil for
// keys never successfully fetched.
type Snapshot struct {
	Key   TrackedKey `json:"key"`
	State *PRState   `json:"state"`
	Fresh bool       `json:"fresh"`
}

// WebhookEvent is an inbound event already validated and normalized by
// the HTTP layer: either a new state for a key or a removal signal.
type WebhookEvent struct {
	Key     TrackedKey
	State   *PRState
	Removed bool
}
