package interfaces

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/newman/pkg/domain/model"
)

// GitHubClient defines operations for interacting with GitHub API.
// Repository URLs are the API URLs carried by webhook payloads, e.g.
// https://api.github.com/repos/octocat/hello-world.
type GitHubClient interface {
	// UpdateBranchProtection replaces the protection of branch in the repository
	UpdateBranchProtection(ctx context.Context, repoURL, branch string, spec *model.BranchProtectionSpec) error

	// CreateIssue opens an issue in the repository
	CreateIssue(ctx context.Context, repoURL string, issue *model.IssuePayload) (*github.Issue, error)
}
