package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/newman/pkg/cli/config"
)

func TestServer_ListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Server
		want    string
		wantErr bool
	}{
		{name: "Address only", cfg: config.Server{Addr: "localhost:8080"}, want: "localhost:8080"},
		{name: "Port overrides address", cfg: config.Server{Addr: "localhost:8080", Port: "3000"}, want: ":3000"},
		{name: "Invalid port", cfg: config.Server{Addr: "localhost:8080", Port: "http"}, wantErr: true},
		{name: "Port out of range", cfg: config.Server{Addr: "localhost:8080", Port: "70000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := tt.cfg.ListenAddr()
			if tt.wantErr {
				gt.Error(t, err)
				return
			}
			gt.NoError(t, err)
			gt.Value(t, addr).Equal(tt.want)
		})
	}
}
