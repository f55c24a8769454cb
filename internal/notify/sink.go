package notify

import (
	"context"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// Sink receives delta events from the engine, fire-and-forget. The
// engine never blocks on delivery and never retries it.
type Sink interface {
	Publish(ctx context.Context, event domain.DeltaEvent)
}

// LogSink writes every delta event to the structured log. It is the
// default sink; mail or chat delivery would implement Sink and replace
// it in the bootstrap wiring.
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.Component("notify")}
}

func (s *LogSink) Publish(_ context.Context, event domain.DeltaEvent) {
	attrs := []any{
		"key", event.Key.String(),
		"kind", string(event.Kind),
		"observed_at", event.ObservedAt,
	}
	if event.Before != nil {
		attrs = append(attrs, "before_status", string(event.Before.Status), "before_labels", labelNames(event.Before))
	}
	if event.After != nil {
		attrs = append(attrs, "after_status", string(event.After.Status), "after_labels", labelNames(event.After))
	}
	s.logger.Info("pr delta", attrs...)
}

func labelNames(state *domain.PRState) []string {
	names := make([]string, 0, len(state.Labels))
	for _, l := range state.Labels {
		names = append(names, l.Name)
	}
	return names
}
