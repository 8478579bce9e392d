package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/interfaces"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/slack-go/slack"
)

type notifier struct {
	webhookURL string
	channel    string
}

// NewNotifier creates a notifier posting to a Slack incoming webhook.
// channel overrides the webhook's default channel when not empty.
func NewNotifier(webhookURL, channel string) interfaces.Notifier {
	return &notifier{
		webhookURL: webhookURL,
		channel:    channel,
	}
}

// Notify posts a summary of the applied protection
func (n *notifier) Notify(ctx context.Context, report *model.ProtectionReport) error {
	msg := &slack.WebhookMessage{
		Channel: n.channel,
		Text:    formatReport(report),
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post Slack notification",
			goerr.V("repository", report.Repository),
			goerr.V("branch", report.Branch),
		)
	}
	return nil
}

func formatReport(report *model.ProtectionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":lock: Branch protection applied to `%s` on *%s*", report.Branch, report.Repository)
	if report.Sender != "" {
		fmt.Fprintf(&b, " (created by %s)", report.Sender)
	}
	if report.IssueURL != "" {
		fmt.Fprintf(&b, "\nAnnouncement: %s", report.IssueURL)
	}
	return b.String()
}
