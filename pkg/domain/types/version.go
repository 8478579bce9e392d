package types

// Version is overwritten at build time via -ldflags
var Version = "dev"

const (
	// ServiceName is reported by the health endpoint and used as the Sentry server name
	ServiceName = "newman"
)
