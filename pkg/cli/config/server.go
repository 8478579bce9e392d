package config

import (
	"net"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr string
	Port string
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("NEWMAN_ADDR"),
		},
		&cli.StringFlag{
			Name:        "port",
			Usage:       "Listen on all interfaces at this port, overrides --addr",
			Destination: &c.Port,
			Sources:     cli.EnvVars("NEWMAN_PORT", "PORT"),
		},
	}
}

// ListenAddr returns the address the HTTP server binds to
func (c *Server) ListenAddr() (string, error) {
	if c.Port == "" {
		return c.Addr, nil
	}

	port, err := strconv.ParseUint(c.Port, 10, 16)
	if err != nil {
		return "", goerr.Wrap(err, "invalid port", goerr.V("port", c.Port), goerr.T(types.ErrTagConfig))
	}
	return net.JoinHostPort("", strconv.FormatUint(port, 10)), nil
}
