package config

import (
	"bytes"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/m-mizutani/newman/pkg/usecase"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Policy holds the path of the optional TOML policy file controlling the
// announcement issue and the protection retry budget. The protection rules
// themselves are not configurable.
type Policy struct {
	Path string
}

type policyFile struct {
	Announcement *announcementSection `toml:"announcement"`
	Retry        *retrySection        `toml:"retry"`
}

type announcementSection struct {
	Enabled  *bool  `toml:"enabled"`
	Title    string `toml:"title"`
	Template string `toml:"template"`
}

type retrySection struct {
	InitialDelay    string  `toml:"initial_delay"`
	MaxRetries      *uint64 `toml:"max_retries"`
	InitialInterval string  `toml:"initial_interval"`
	MaxInterval     string  `toml:"max_interval"`
}

// Flags returns CLI flags for policy configuration
func (c *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to TOML policy file for announcement and retry settings",
			Destination: &c.Path,
			Sources:     cli.EnvVars("NEWMAN_POLICY"),
		},
	}
}

// ProtectorOptions loads the policy file, if any, over the defaults
func (c *Policy) ProtectorOptions() ([]usecase.ProtectorOption, error) {
	announcement := usecase.DefaultAnnouncement()
	retry := usecase.DefaultProtectionRetry()

	if c.Path != "" {
		raw, err := os.ReadFile(c.Path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", c.Path), goerr.T(types.ErrTagConfig))
		}

		var file policyFile
		if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&file); err != nil {
			return nil, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", c.Path), goerr.T(types.ErrTagConfig))
		}

		if file.Announcement != nil {
			file.Announcement.apply(&announcement)
		}
		if file.Retry != nil {
			if err := file.Retry.apply(&retry); err != nil {
				return nil, goerr.Wrap(err, "invalid retry policy", goerr.V("path", c.Path), goerr.T(types.ErrTagConfig))
			}
		}
	}

	return []usecase.ProtectorOption{
		usecase.WithAnnouncement(announcement),
		usecase.WithProtectionRetry(retry),
	}, nil
}

func (s *announcementSection) apply(cfg *model.AnnouncementConfig) {
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.Title != "" {
		cfg.Title = s.Title
	}
	if s.Template != "" {
		cfg.Template = s.Template
	}
}

func (s *retrySection) apply(cfg *model.ProtectionRetry) error {
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"initial_delay", s.InitialDelay, &cfg.InitialDelay},
		{"initial_interval", s.InitialInterval, &cfg.InitialInterval},
		{"max_interval", s.MaxInterval, &cfg.MaxInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return goerr.Wrap(err, "invalid duration", goerr.V("field", d.name), goerr.V("value", d.value))
		}
		if v < 0 {
			return goerr.New("duration must not be negative", goerr.V("field", d.name), goerr.V("value", d.value))
		}
		*d.dst = v
	}

	if s.MaxRetries != nil {
		cfg.MaxRetries = *s.MaxRetries
	}
	return nil
}
