package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/go-github/v75/github"

	"github.com/m-mizutani/newman/pkg/domain/model"
)

// MockCall records one outbound GitHub call
type MockCall struct {
	Method  string
	RepoURL string
	Branch  string
	Spec    *model.BranchProtectionSpec
	Issue   *model.IssuePayload
}

// MockGitHubClient is a mock implementation of GitHubClient
type MockGitHubClient struct {
	mu                         sync.Mutex
	calls                      []MockCall
	updateBranchProtectionFunc func(ctx context.Context, repoURL, branch string, spec *model.BranchProtectionSpec) error
	createIssueFunc            func(ctx context.Context, repoURL string, issue *model.IssuePayload) (*github.Issue, error)
}

func (m *MockGitHubClient) UpdateBranchProtection(ctx context.Context, repoURL, branch string, spec *model.BranchProtectionSpec) error {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "UpdateBranchProtection", RepoURL: repoURL, Branch: branch, Spec: spec})
	m.mu.Unlock()

	if m.updateBranchProtectionFunc != nil {
		return m.updateBranchProtectionFunc(ctx, repoURL, branch, spec)
	}
	return nil
}

func (m *MockGitHubClient) CreateIssue(ctx context.Context, repoURL string, issue *model.IssuePayload) (*github.Issue, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: "CreateIssue", RepoURL: repoURL, Issue: issue})
	m.mu.Unlock()

	if m.createIssueFunc != nil {
		return m.createIssueFunc(ctx, repoURL, issue)
	}
	return &github.Issue{
		Number:  github.Ptr(1),
		HTMLURL: github.Ptr("https://github.com/acme/widget/issues/1"),
	}, nil
}

func (m *MockGitHubClient) Methods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	methods := make([]string, 0, len(m.calls))
	for _, call := range m.calls {
		methods = append(methods, call.Method)
	}
	return methods
}

func (m *MockGitHubClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// MockNotifier records notified reports
type MockNotifier struct {
	reports chan *model.ProtectionReport
	err     error
}

func newMockNotifier() *MockNotifier {
	return &MockNotifier{reports: make(chan *model.ProtectionReport, 4)}
}

func (m *MockNotifier) Notify(ctx context.Context, report *model.ProtectionReport) error {
	m.reports <- report
	return m.err
}

func apiError(status int, message string) error {
	u, _ := url.Parse("https://api.example.com/repos/acme/widget/branches/main/protection")
	return &github.ErrorResponse{
		Response: &http.Response{
			StatusCode: status,
			Request:    &http.Request{Method: http.MethodPut, URL: u},
		},
		Message: message,
	}
}

var errNetwork = errors.New("connection reset by peer")

func repositoryCreatedEvent(id, repoURL, branch, sender string) *model.WebhookEvent {
	payload := &github.RepositoryEvent{
		Action: github.Ptr(model.ActionCreated),
		Repo: &github.Repository{
			FullName:      github.Ptr("acme/widget"),
			URL:           github.Ptr(repoURL),
			DefaultBranch: github.Ptr(branch),
		},
	}
	if sender != "" {
		payload.Sender = &github.User{Login: github.Ptr(sender)}
	}

	return &model.WebhookEvent{
		ID:         id,
		Type:       model.EventTypeRepository,
		Action:     model.ActionCreated,
		Repository: "acme/widget",
		Sender:     sender,
		Payload:    payload,
	}
}
