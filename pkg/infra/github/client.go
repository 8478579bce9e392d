package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/interfaces"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"golang.org/x/oauth2"
)

const defaultTimeout = 30 * time.Second

type client struct {
	githubClient *github.Client
}

type config struct {
	token          string
	appID          int64
	installationID int64
	privateKey     []byte
	baseURL        string
	httpClient     *http.Client
}

// Option is a functional option for client configuration
type Option func(*config)

// WithToken authenticates with a personal access or OAuth token
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithApp authenticates as a GitHub App installation. privateKey is the
// PEM encoded RSA key of the App.
func WithApp(appID, installationID int64, privateKey []byte) Option {
	return func(c *config) {
		c.appID = appID
		c.installationID = installationID
		c.privateKey = privateKey
	}
}

// WithBaseURL sets the API root used for requests not addressed by an
// absolute repository URL, such as installation token exchange
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client whose transport carries all requests
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new GitHub client. Exactly one of token or App
// authentication must be configured.
func NewClient(opts ...Option) (interfaces.GitHubClient, error) {
	cfg := &config{
		baseURL:    types.DefaultAPIBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.baseURL, "/") + "/")
	if err != nil {
		return nil, goerr.Wrap(err, "invalid GitHub API base URL", goerr.V("base_url", cfg.baseURL), goerr.T(types.ErrTagConfig))
	}

	base := cfg.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var transport http.RoundTripper
	switch {
	case cfg.token != "" && cfg.appID != 0:
		return nil, goerr.New("GitHub token and GitHub App credentials are mutually exclusive", goerr.T(types.ErrTagConfig))

	case cfg.token != "":
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.token}),
			Base:   base,
		}

	case cfg.appID != 0:
		itr, err := newAppTransport(cfg, baseURL, base)
		if err != nil {
			return nil, err
		}
		transport = itr

	default:
		return nil, goerr.New("GitHub token or GitHub App credentials are required", goerr.T(types.ErrTagConfig))
	}

	githubClient := github.NewClient(&http.Client{
		Transport: transport,
		Timeout:   cfg.httpClient.Timeout,
	})
	githubClient.BaseURL = baseURL

	return &client{
		githubClient: githubClient,
	}, nil
}

// ProtectionURL returns the branch protection endpoint of a repository API URL
func ProtectionURL(repoURL, branch string) (string, error) {
	base, err := repositoryURL(repoURL)
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "", goerr.New("branch name is empty", goerr.V("repo_url", repoURL), goerr.T(types.ErrTagParse))
	}
	return base + "/branches/" + url.PathEscape(branch) + "/protection", nil
}

// IssuesURL returns the issue collection endpoint of a repository API URL
func IssuesURL(repoURL string) (string, error) {
	base, err := repositoryURL(repoURL)
	if err != nil {
		return "", err
	}
	return base + "/issues", nil
}

func repositoryURL(repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", goerr.Wrap(err, "invalid repository URL", goerr.V("repo_url", repoURL), goerr.T(types.ErrTagParse))
	}
	if u.Scheme == "" || u.Host == "" {
		return "", goerr.New("repository URL must be absolute", goerr.V("repo_url", repoURL), goerr.T(types.ErrTagParse))
	}
	return strings.TrimRight(repoURL, "/"), nil
}

// UpdateBranchProtection replaces the protection of branch
func (c *client) UpdateBranchProtection(ctx context.Context, repoURL, branch string, spec *model.BranchProtectionSpec) error {
	endpoint, err := ProtectionURL(repoURL, branch)
	if err != nil {
		return err
	}

	req, err := c.githubClient.NewRequest(http.MethodPut, endpoint, spec)
	if err != nil {
		return goerr.Wrap(err, "failed to build branch protection request", goerr.V("url", endpoint), goerr.T(types.ErrTagAPI))
	}
	req.Header.Set("Accept", types.ProtectionPreviewMediaType)

	resp, err := c.githubClient.Do(ctx, req, nil)
	if err != nil {
		return wrapAPIError(err, resp, "failed to update branch protection", endpoint)
	}

	return nil
}

// CreateIssue opens an issue in the repository
func (c *client) CreateIssue(ctx context.Context, repoURL string, issue *model.IssuePayload) (*github.Issue, error) {
	endpoint, err := IssuesURL(repoURL)
	if err != nil {
		return nil, err
	}

	req, err := c.githubClient.NewRequest(http.MethodPost, endpoint, &github.IssueRequest{
		Title: github.Ptr(issue.Title),
		Body:  github.Ptr(issue.Body),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build issue request", goerr.V("url", endpoint), goerr.T(types.ErrTagAPI))
	}

	var created github.Issue
	resp, err := c.githubClient.Do(ctx, req, &created)
	if err != nil {
		return nil, wrapAPIError(err, resp, "failed to create issue", endpoint)
	}

	return &created, nil
}

func wrapAPIError(err error, resp *github.Response, msg, endpoint string) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	opts := []goerr.Option{
		goerr.V("url", endpoint),
		goerr.V("status", status),
		goerr.T(types.ErrTagAPI),
	}

	// Installation token exchange failures carry the token endpoint response
	var tokenErr *ghinstallation.HTTPError
	if errors.As(err, &tokenErr) && tokenErr.Response != nil {
		opts[1] = goerr.V("status", tokenErr.Response.StatusCode)
		err = &github.ErrorResponse{Response: tokenErr.Response, Message: tokenErr.Message}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		opts = append(opts, goerr.V("rate_reset", rateErr.Rate.Reset.Time))
	}

	return goerr.Wrap(err, msg, opts...)
}
