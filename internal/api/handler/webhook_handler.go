package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/monitor"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// WebhookHandler normalizes inbound pull request events from both
// platforms into the engine's webhook contract. Signature verification
// is a pass/fail gate upstream of this service and is not re-checked
// here.
type WebhookHandler struct {
	engine *monitor.Engine
	logger *logger.Logger
}

func NewWebhookHandler(engine *monitor.Engine, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine: engine,
		logger: logger.Component("handler/webhook"),
	}
}

// webhookPR covers the payload fields both platforms share; GitHub
// additionally reports merges via merged/merged_at on a closed PR.
type webhookPR struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	State    string     `json:"state"`
	Merged   bool       `json:"merged"`
	MergedAt *time.Time `json:"merged_at"`
	User     struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref  string `json:"ref"`
		Repo struct {
			Name  string `json:"name"`
			Owner struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"repo"`
	} `json:"base"`
	Labels []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
}

type webhookPayload struct {
	Action      string     `json:"action"`
	PullRequest *webhookPR `json:"pull_request"`
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	platform, event := senderPlatform(r)
	if platform == "" {
		h.logger.Debug("webhook without platform event header ignored")
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if event != "pull_request" {
		h.logger.Debug("non pull request event ignored", "event", event)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("invalid webhook body", "error", err)
		http.Error(w, "invalid webhook body", http.StatusBadRequest)
		return
	}
	if payload.PullRequest == nil || payload.PullRequest.Number == 0 {
		http.Error(w, "missing pull_request", http.StatusBadRequest)
		return
	}

	h.engine.IngestWebhook(r.Context(), normalize(platform, payload))
	w.WriteHeader(http.StatusOK)
}

func senderPlatform(r *http.Request) (domain.Platform, string) {
	if event := r.Header.Get("X-Gitee-Event"); event != "" {
		return domain.PlatformGitee, event
	}
	if event := r.Header.Get("X-GitHub-Event"); event != "" {
		return domain.PlatformGitHub, event
	}
	return "", ""
}

func normalize(platform domain.Platform, payload webhookPayload) domain.WebhookEvent {
	pr := payload.PullRequest

	status := domain.PRStatus(pr.State)
	if pr.State == "closed" && (pr.Merged || pr.MergedAt != nil) {
		status = domain.PRStatusMerged
	}

	state := domain.PRState{
		Title:        pr.Title,
		Author:       pr.User.Login,
		SourceBranch: pr.Head.Ref,
		TargetBranch: pr.Base.Ref,
		Status:       status,
		Labels:       make([]domain.Label, 0, len(pr.Labels)),
	}
	for _, l := range pr.Labels {
		state.Labels = append(state.Labels, domain.Label{Name: l.Name, Color: l.Color})
	}

	return domain.WebhookEvent{
		Key: domain.TrackedKey{
			Platform: platform,
			Owner:    pr.Base.Repo.Owner.Login,
			Repo:     pr.Base.Repo.Name,
			Number:   pr.Number,
		},
		State: &state,
	}
}
