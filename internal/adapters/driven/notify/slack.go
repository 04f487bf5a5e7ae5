package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NotificationTransport = (*SlackTransport)(nil)

// SlackTransport posts notifications to a Slack incoming webhook
type SlackTransport struct {
	webhookURL string
	client     *http.Client
}

// NewSlackTransport creates a transport posting to webhookURL
func NewSlackTransport(webhookURL string) (*SlackTransport, error) {
	if webhookURL == "" {
		return nil, errors.New("slack webhook URL is required")
	}
	return &SlackTransport{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name identifies the transport
func (t *SlackTransport) Name() string { return "slack" }

// Deliver posts n as a webhook message
func (t *SlackTransport) Deliver(ctx context.Context, n *domain.Notification) error {
	msg := &slack.WebhookMessage{Text: FormatText(n)}
	if err := slack.PostWebhookCustomHTTPContext(ctx, t.webhookURL, t.client, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

// FormatText renders the one-line summary sent to people:
// "<title>: <from> → <to>" for transitions, "<title>: <kind>" otherwise,
// followed by the actor and recipients.
func FormatText(n *domain.Notification) string {
	var b strings.Builder
	b.WriteString(n.Title)
	b.WriteString(": ")
	if n.Transition != nil {
		fmt.Fprintf(&b, "%s → %s", n.Transition.From, n.Transition.To)
	} else {
		b.WriteString(strings.ReplaceAll(string(n.Kind), "_", " "))
	}
	if n.ActorID != "" {
		fmt.Fprintf(&b, " (by %s)", n.ActorID)
	}
	if len(n.Recipients) > 0 {
		fmt.Fprintf(&b, " for %s", strings.Join(n.Recipients, ", "))
	}
	return b.String()
}
