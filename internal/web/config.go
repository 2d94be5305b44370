package web

import "time"

// Config defines the runtime configuration for the web server.
type Config struct {
	Addr         string
	SSEKeepalive time.Duration
}

// DefaultConfig returns the default listen settings.
func DefaultConfig() Config {
	return Config{
		Addr:         ":5001",
		SSEKeepalive: 30 * time.Second,
	}
}
