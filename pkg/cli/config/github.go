package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/types"
	githubinfra "github.com/m-mizutani/newman/pkg/infra/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub configuration
type GitHub struct {
	WebhookSecret  string `masq:"secret"`
	Token          string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKey     string `masq:"secret"`
	PrivateKeyFile string
	BaseURL        string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_WEBHOOK_SECRET", "GH_SECRET"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub personal access token or OAuth token",
			Destination: &c.Token,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_TOKEN", "GH_AUTH"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-private-key-file",
			Usage:       "Path to GitHub App private key file (PEM)",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_PRIVATE_KEY_FILE"),
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub REST API base URL, for GitHub Enterprise Server",
			Value:       types.DefaultAPIBaseURL,
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("NEWMAN_GITHUB_BASE_URL"),
		},
	}
}

// useApp reports whether GitHub App credentials are configured
func (c *GitHub) useApp() bool {
	return c.AppID != 0 || c.InstallationID != 0 || c.PrivateKey != "" || c.PrivateKeyFile != ""
}

// ClientOptions validates the credentials and converts them into GitHub
// client options. Exactly one of token or GitHub App credentials must be
// configured.
func (c *GitHub) ClientOptions() ([]githubinfra.Option, error) {
	opts := []githubinfra.Option{
		githubinfra.WithBaseURL(c.BaseURL),
	}

	switch {
	case c.Token != "" && c.useApp():
		return nil, goerr.New("both GitHub token and GitHub App credentials are configured", goerr.T(types.ErrTagConfig))

	case c.Token != "":
		return append(opts, githubinfra.WithToken(c.Token)), nil

	case c.useApp():
		if c.AppID == 0 || c.InstallationID == 0 {
			return nil, goerr.New("GitHub App requires both app ID and installation ID",
				goerr.V("app_id", c.AppID),
				goerr.V("installation_id", c.InstallationID),
				goerr.T(types.ErrTagConfig),
			)
		}

		key, err := c.privateKey()
		if err != nil {
			return nil, err
		}
		return append(opts, githubinfra.WithApp(c.AppID, c.InstallationID, key)), nil

	default:
		return nil, goerr.New("GitHub credentials are not configured, set a token or GitHub App credentials", goerr.T(types.ErrTagConfig))
	}
}

func (c *GitHub) privateKey() ([]byte, error) {
	switch {
	case c.PrivateKey != "" && c.PrivateKeyFile != "":
		return nil, goerr.New("set either private key or private key file, not both", goerr.T(types.ErrTagConfig))
	case c.PrivateKey != "":
		return []byte(c.PrivateKey), nil
	case c.PrivateKeyFile != "":
		key, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key",
				goerr.V("path", c.PrivateKeyFile),
				goerr.T(types.ErrTagConfig),
			)
		}
		return key, nil
	default:
		return nil, goerr.New("GitHub App private key is not configured", goerr.T(types.ErrTagConfig))
	}
}
