package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/interfaces"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/m-mizutani/newman/pkg/utils/async"
	"github.com/m-mizutani/newman/pkg/utils/logging"
)

// DefaultProtectionRetry keeps the worst case below GitHub's ten second
// webhook delivery timeout
func DefaultProtectionRetry() model.ProtectionRetry {
	return model.ProtectionRetry{
		InitialDelay:    500 * time.Millisecond,
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     4 * time.Second,
	}
}

// Protector applies the default branch protection to newly created repositories
type Protector struct {
	announcement model.AnnouncementConfig
	retry        model.ProtectionRetry
	notifier     interfaces.Notifier
	announcer    *announcer
}

// ProtectorOption is a functional option for Protector
type ProtectorOption func(*Protector)

// WithAnnouncement sets the announcement issue configuration
func WithAnnouncement(cfg model.AnnouncementConfig) ProtectorOption {
	return func(p *Protector) {
		p.announcement = cfg
	}
}

// WithProtectionRetry sets the retry budget of the protection update
func WithProtectionRetry(cfg model.ProtectionRetry) ProtectorOption {
	return func(p *Protector) {
		p.retry = cfg
	}
}

// WithNotifier sets a notifier informed after each applied protection
func WithNotifier(notifier interfaces.Notifier) ProtectorOption {
	return func(p *Protector) {
		p.notifier = notifier
	}
}

// NewProtector creates a Protector. The announcement template is parsed
// here so a broken template fails at startup.
func NewProtector(opts ...ProtectorOption) (*Protector, error) {
	p := &Protector{
		announcement: DefaultAnnouncement(),
		retry:        DefaultProtectionRetry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.announcement.Enabled {
		a, err := newAnnouncer(p.announcement)
		if err != nil {
			return nil, err
		}
		p.announcer = a
	}

	return p, nil
}

// HandleRepositoryCreated protects the default branch of the created
// repository, then files the announcement issue. The issue is never
// attempted when the protection fails, and the protection is kept when the
// issue fails.
func (p *Protector) HandleRepositoryCreated(ctx context.Context, event *model.WebhookEvent, client interfaces.GitHubClient) error {
	logger := logging.From(ctx)

	report, err := newProtectionReport(event)
	if err != nil {
		return err
	}
	logger = logger.With(
		slog.String("repository", report.Repository),
		slog.String("branch", report.Branch),
	)

	if err := sleep(ctx, p.retry.InitialDelay); err != nil {
		return goerr.Wrap(err, "interrupted before applying branch protection", goerr.V("repository", report.Repository))
	}

	attempts, err := p.applyProtection(ctx, client, report)
	if err != nil {
		return goerr.Wrap(err, "failed to apply branch protection",
			goerr.V("repository", report.Repository),
			goerr.V("branch", report.Branch),
			goerr.V("attempts", attempts),
		)
	}
	logger.Info("Applied branch protection", slog.Int("attempts", attempts))

	if p.announcer != nil {
		issue, err := p.announcer.render(report)
		if err != nil {
			return err
		}

		created, err := client.CreateIssue(ctx, report.RepositoryURL, issue)
		if err != nil {
			return goerr.Wrap(err, "branch protection applied but announcement issue failed",
				goerr.V("repository", report.Repository),
			)
		}
		report.IssueURL = created.GetHTMLURL()
		logger.Info("Created announcement issue",
			slog.Int("number", created.GetNumber()),
			slog.String("url", report.IssueURL),
		)
	}

	if p.notifier != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return p.notifier.Notify(ctx, report)
		})
	}

	return nil
}

func (p *Protector) applyProtection(ctx context.Context, client interfaces.GitHubClient, report *model.ProtectionReport) (int, error) {
	logger := logging.From(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retry.InitialInterval
	b.MaxInterval = p.retry.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, p.retry.MaxRetries), ctx)

	attempts := 0
	operation := func() error {
		attempts++
		err := client.UpdateBranchProtection(ctx, report.RepositoryURL, report.Branch, report.Protection)
		if err != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("Branch protection not applied yet, retrying",
			slog.Any("error", err),
			slog.Int("attempt", attempts),
			slog.Duration("next", next),
		)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	return attempts, err
}

// isTransient reports whether err may be caused by the repository not
// being fully created yet
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if goerr.HasTag(err, types.ErrTagParse) {
		return false
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return false
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response == nil {
			return false
		}
		status := respErr.Response.StatusCode
		return status == http.StatusNotFound || status >= http.StatusInternalServerError
	}

	// Transport failures
	return true
}

func newProtectionReport(event *model.WebhookEvent) (*model.ProtectionReport, error) {
	payload, ok := event.Payload.(*github.RepositoryEvent)
	if !ok || payload == nil {
		return nil, goerr.New("payload is not a repository event",
			goerr.V("event_type", event.Type),
			goerr.V("delivery_id", event.ID),
			goerr.T(types.ErrTagParse),
		)
	}

	repo := payload.GetRepo()
	if repo.GetURL() == "" || repo.GetDefaultBranch() == "" {
		return nil, goerr.New("repository URL or default branch is missing",
			goerr.V("delivery_id", event.ID),
			goerr.V("url", repo.GetURL()),
			goerr.V("default_branch", repo.GetDefaultBranch()),
			goerr.T(types.ErrTagParse),
		)
	}

	return &model.ProtectionReport{
		DeliveryID:    event.ID,
		Repository:    repo.GetFullName(),
		RepositoryURL: repo.GetURL(),
		Branch:        repo.GetDefaultBranch(),
		Sender:        payload.GetSender().GetLogin(),
		Protection:    model.DefaultBranchProtection(),
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
