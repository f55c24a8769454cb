package domain

import "time"

type DeltaKind string

const (
	DeltaLabelsChanged DeltaKind = "labels_changed"
	DeltaStatusChanged DeltaKind = "status_changed"
	DeltaPRRemoved     DeltaKind = "pr_removed"
)

// DeltaEvent is a detected difference between two consecutive
// observations of the same pull request. Before and After carry the
// full states so consumers can render full context, not just the diff.
// Events are ephemeral; the engine does not retain them.
type DeltaEvent struct {
	Key        TrackedKey `json:"key"`
	Kind       DeltaKind  `json:"kind"`
	Before     *PRState   `json:"before"`
	After      *PRState   `json:"after"`
	ObservedAt time.Time  `json:"observed_at"`
}

// Diff compares the previous observation of a pull request against a
// freshly fetched state. A nil prev is a baseline, not a change: no
// events are emitted. Label and status differences produce separate
// events, never a combined one.
func Diff(key TrackedKey, prev *PRState, next PRState, now time.Time) []DeltaEvent {
	if prev == nil {
		return nil
	}

	var events []DeltaEvent

	if !sameLabelSet(prev.LabelNames(), next.LabelNames()) {
		events = append(events, DeltaEvent{
			Key:        key,
			Kind:       DeltaLabelsChanged,
			Before:     prev,
			After:      &next,
			ObservedAt: now,
		})
	}

	if prev.Status != next.Status {
		events = append(events, DeltaEvent{
			Key:        key,
			Kind:       DeltaStatusChanged,
			Before:     prev,
			After:      &next,
			ObservedAt: now,
		})
	}

	return events
}

func sameLabelSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if _, ok := b[name]; !ok {
			return false
		}
	}
	return true
}
