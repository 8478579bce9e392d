package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/m-mizutani/newman/pkg/usecase"
)

const testRepoURL = "https://api.example.com/repos/acme/widget"

func fastRetry(maxRetries uint64) usecase.ProtectorOption {
	return usecase.WithProtectionRetry(model.ProtectionRetry{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})
}

func newTestProtector(t *testing.T, opts ...usecase.ProtectorOption) *usecase.Protector {
	t.Helper()
	p, err := usecase.NewProtector(append([]usecase.ProtectorOption{fastRetry(3)}, opts...)...)
	gt.NoError(t, err)
	return p
}

func TestProtector_HandleRepositoryCreated_Success(t *testing.T) {
	ctx := context.Background()
	client := &MockGitHubClient{}
	p := newTestProtector(t)

	err := p.HandleRepositoryCreated(ctx, repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
	gt.NoError(t, err)

	calls := client.Calls()
	gt.Value(t, client.Methods()).Equal([]string{"UpdateBranchProtection", "CreateIssue"})

	gt.Value(t, calls[0].RepoURL).Equal(testRepoURL)
	gt.Value(t, calls[0].Branch).Equal("main")
	gt.Value(t, calls[0].Spec).Equal(model.DefaultBranchProtection())
	gt.Number(t, calls[0].Spec.RequiredPullRequestReviews.RequiredApprovingReviewCount).Equal(1)
	gt.True(t, calls[0].Spec.EnforceAdmins)
	gt.True(t, calls[0].Spec.RequiredPullRequestReviews.RequireCodeOwnerReviews)
	gt.False(t, calls[0].Spec.RequiredPullRequestReviews.DismissStaleReviews)

	gt.Value(t, calls[1].RepoURL).Equal(testRepoURL)
	gt.Value(t, calls[1].Issue.Title).Equal(usecase.DefaultAnnouncementTitle)
	gt.String(t, calls[1].Issue.Body).Contains("@octocat")
	gt.String(t, calls[1].Issue.Body).Contains("`main` branch")
}

func TestProtector_HandleRepositoryCreated_ProtectionFails(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{
			name:      "Permission denied is not retried",
			err:       apiError(http.StatusForbidden, "Resource not accessible by integration"),
			wantCalls: 1,
		},
		{
			name:      "Validation failure is not retried",
			err:       apiError(http.StatusUnprocessableEntity, "Validation Failed"),
			wantCalls: 1,
		},
		{
			name: "Rate limit is not retried",
			err: &github.RateLimitError{
				Response: &http.Response{StatusCode: http.StatusForbidden, Request: &http.Request{Method: http.MethodPut}},
				Message:  "API rate limit exceeded",
			},
			wantCalls: 1,
		},
		{
			name:      "Missing branch is retried until budget is exhausted",
			err:       apiError(http.StatusNotFound, "Branch not found"),
			wantCalls: 4,
		},
		{
			name:      "Server error is retried until budget is exhausted",
			err:       apiError(http.StatusBadGateway, "Bad Gateway"),
			wantCalls: 4,
		},
		{
			name:      "Network error is retried until budget is exhausted",
			err:       errNetwork,
			wantCalls: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockGitHubClient{
				updateBranchProtectionFunc: func(ctx context.Context, repoURL, branch string, spec *model.BranchProtectionSpec) error {
					return tt.err
				},
			}
			p := newTestProtector(t)

			err := p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
			gt.Error(t, err)
			gt.True(t, errors.Is(err, tt.err))

			methods := client.Methods()
			gt.Number(t, len(methods)).Equal(tt.wantCalls)
			for _, m := range methods {
				gt.Value(t, m).Equal("UpdateBranchProtection")
			}
		})
	}
}

func TestProtector_HandleRepositoryCreated_RetriesUntilBranchExists(t *testing.T) {
	attempts := 0
	client := &MockGitHubClient{
		updateBranchProtectionFunc: func(ctx context.Context, repoURL, branch string, spec *model.BranchProtectionSpec) error {
			attempts++
			if attempts < 3 {
				return apiError(http.StatusNotFound, "Branch not found")
			}
			return nil
		},
	}
	p := newTestProtector(t)

	err := p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", ""), client)
	gt.NoError(t, err)
	gt.Value(t, client.Methods()).Equal([]string{
		"UpdateBranchProtection",
		"UpdateBranchProtection",
		"UpdateBranchProtection",
		"CreateIssue",
	})
}

func TestProtector_HandleRepositoryCreated_IssueFails(t *testing.T) {
	client := &MockGitHubClient{
		createIssueFunc: func(ctx context.Context, repoURL string, issue *model.IssuePayload) (*github.Issue, error) {
			return nil, apiError(http.StatusGone, "Issues are disabled for this repo")
		},
	}
	p := newTestProtector(t)

	err := p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("announcement issue failed")
	// Protection is kept, issue is not retried
	gt.Value(t, client.Methods()).Equal([]string{"UpdateBranchProtection", "CreateIssue"})
}

func TestProtector_HandleRepositoryCreated_AnnouncementDisabled(t *testing.T) {
	client := &MockGitHubClient{}
	p := newTestProtector(t, usecase.WithAnnouncement(model.AnnouncementConfig{Enabled: false}))

	err := p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
	gt.NoError(t, err)
	gt.Value(t, client.Methods()).Equal([]string{"UpdateBranchProtection"})
}

func TestProtector_HandleRepositoryCreated_InvalidPayload(t *testing.T) {
	tests := []struct {
		name  string
		event *model.WebhookEvent
	}{
		{
			name:  "Untyped payload",
			event: &model.WebhookEvent{Type: model.EventTypeRepository, Action: model.ActionCreated},
		},
		{
			name: "Wrong payload type",
			event: &model.WebhookEvent{
				Type:    model.EventTypeRepository,
				Action:  model.ActionCreated,
				Payload: &github.PushEvent{},
			},
		},
		{
			name:  "Missing default branch",
			event: repositoryCreatedEvent("d-1", testRepoURL, "", "octocat"),
		},
		{
			name:  "Missing repository URL",
			event: repositoryCreatedEvent("d-1", "", "main", "octocat"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockGitHubClient{}
			p := newTestProtector(t)

			err := p.HandleRepositoryCreated(context.Background(), tt.event, client)
			gt.Error(t, err)
			gt.True(t, goerr.HasTag(err, types.ErrTagParse))
			gt.Number(t, len(client.Methods())).Equal(0)
		})
	}
}

func TestProtector_HandleRepositoryCreated_DuplicateDelivery(t *testing.T) {
	client := &MockGitHubClient{}
	p := newTestProtector(t)
	event := repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat")

	gt.NoError(t, p.HandleRepositoryCreated(context.Background(), event, client))
	gt.NoError(t, p.HandleRepositoryCreated(context.Background(), event, client))

	calls := client.Calls()
	gt.Value(t, client.Methods()).Equal([]string{
		"UpdateBranchProtection", "CreateIssue",
		"UpdateBranchProtection", "CreateIssue",
	})
	gt.Value(t, calls[2]).Equal(calls[0])
	gt.Value(t, calls[3]).Equal(calls[1])
}

func TestProtector_HandleRepositoryCreated_Notifier(t *testing.T) {
	client := &MockGitHubClient{}
	notifier := newMockNotifier()
	p := newTestProtector(t, usecase.WithNotifier(notifier))

	err := p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
	gt.NoError(t, err)

	select {
	case report := <-notifier.reports:
		gt.Value(t, report.Repository).Equal("acme/widget")
		gt.Value(t, report.Branch).Equal("main")
		gt.Value(t, report.Sender).Equal("octocat")
		gt.Value(t, report.IssueURL).Equal("https://github.com/acme/widget/issues/1")
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestProtector_HandleRepositoryCreated_NotifierErrorIgnored(t *testing.T) {
	client := &MockGitHubClient{}
	notifier := newMockNotifier()
	notifier.err = errors.New("slack is down")
	p := newTestProtector(t, usecase.WithNotifier(notifier))

	err := p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
	gt.NoError(t, err)

	select {
	case <-notifier.reports:
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestProtector_HandleRepositoryCreated_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &MockGitHubClient{}
	p, err := usecase.NewProtector(usecase.WithProtectionRetry(model.ProtectionRetry{
		InitialDelay: time.Minute,
	}))
	gt.NoError(t, err)

	err = p.HandleRepositoryCreated(ctx, repositoryCreatedEvent("d-1", testRepoURL, "main", "octocat"), client)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, context.Canceled))
	gt.Number(t, len(client.Methods())).Equal(0)
}

func TestProtector_HandleRepositoryCreated_WaitsInitialDelay(t *testing.T) {
	client := &MockGitHubClient{}
	p, err := usecase.NewProtector(usecase.WithProtectionRetry(model.ProtectionRetry{
		InitialDelay: 50 * time.Millisecond,
	}))
	gt.NoError(t, err)

	start := time.Now()
	gt.NoError(t, p.HandleRepositoryCreated(context.Background(), repositoryCreatedEvent("d-1", testRepoURL, "main", ""), client))
	gt.True(t, time.Since(start) >= 50*time.Millisecond)
}

func TestNewProtector_InvalidTemplate(t *testing.T) {
	_, err := usecase.NewProtector(usecase.WithAnnouncement(model.AnnouncementConfig{
		Enabled:  true,
		Template: "{{.Sender",
	}))
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagConfig))
}
