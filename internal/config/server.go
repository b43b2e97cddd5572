package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default relay server configuration values
const (
	DefaultAddr          = ":8080"
	DefaultAllowedOrigin = "*"
	DefaultSendBuffer    = 256
)

// Server holds the relay server's configuration
type Server struct {
	// Addr is the listen address
	Addr string

	// AllowedOrigin is echoed in CORS headers and checked on websocket
	// upgrades. "*" allows any origin.
	AllowedOrigin string

	// SendBuffer is the per-connection outbound queue length
	SendBuffer int
}

// ServerOptions carries flag overrides for LoadServer
type ServerOptions struct {
	Addr          string
	AllowedOrigin string
	SendBuffer    int
}

// LoadServer reads relay configuration: flags > environment > defaults.
func LoadServer(opts ServerOptions) (*Server, error) {
	cfg := &Server{
		Addr:          firstNonEmpty(opts.Addr, os.Getenv("ADDR"), DefaultAddr),
		AllowedOrigin: firstNonEmpty(opts.AllowedOrigin, os.Getenv("ALLOWED_ORIGIN"), DefaultAllowedOrigin),
		SendBuffer:    opts.SendBuffer,
	}

	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = DefaultSendBuffer
		if v := os.Getenv("SEND_BUFFER"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid SEND_BUFFER %q: %w", v, err)
			}
			cfg.SendBuffer = n
		}
	}
	if cfg.SendBuffer <= 0 {
		return nil, fmt.Errorf("send buffer must be positive, got %d", cfg.SendBuffer)
	}

	return cfg, nil
}
