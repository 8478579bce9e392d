package github

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/types"
)

const tokenExchangeTimeout = 30 * time.Second

// newAppTransport authenticates requests as a GitHub App installation. The
// installation token is exchanged against baseURL and cached until shortly
// before it expires.
func newAppTransport(cfg *config, baseURL *url.URL, base http.RoundTripper) (*ghinstallation.Transport, error) {
	if cfg.installationID == 0 {
		return nil, goerr.New("GitHub App installation ID is required", goerr.V("app_id", cfg.appID), goerr.T(types.ErrTagConfig))
	}
	if len(cfg.privateKey) == 0 {
		return nil, goerr.New("GitHub App private key is required", goerr.V("app_id", cfg.appID), goerr.T(types.ErrTagConfig))
	}

	itr, err := ghinstallation.New(base, cfg.appID, cfg.installationID, cfg.privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse GitHub App private key", goerr.V("app_id", cfg.appID), goerr.T(types.ErrTagConfig))
	}
	itr.BaseURL = strings.TrimRight(baseURL.String(), "/")
	itr.Client = &http.Client{Transport: base, Timeout: tokenExchangeTimeout}

	return itr, nil
}
