package notify

import (
	"context"
	"log/slog"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NotificationTransport = (*LogTransport)(nil)

// LogTransport writes notifications to the structured log. It is the
// fallback when no Slack webhook is configured.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a log transport; a nil logger uses slog.Default
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Name identifies the transport
func (t *LogTransport) Name() string { return "log" }

// Deliver logs n and never fails
func (t *LogTransport) Deliver(ctx context.Context, n *domain.Notification) error {
	attrs := []any{
		"notification_id", n.ID,
		"kind", n.Kind,
		"task_id", n.TaskID,
		"project_id", n.ProjectID,
		"recipients", n.Recipients,
	}
	if n.Transition != nil {
		attrs = append(attrs, "from", n.Transition.From, "to", n.Transition.To)
	}
	t.logger.InfoContext(ctx, FormatText(n), attrs...)
	return nil
}
