package server

import (
	"time"

	"github.com/chrisvdg/linkswap/config"
)

// Config represents a server config
type Config struct {
	ListenAddr    string
	TLSListenAddr string
	TLSOnly       bool
	TLS           *TLSConfig
	Verbose       bool
	// ShutdownTimeout bounds the wait for in flight checks on shutdown
	ShutdownTimeout time.Duration
	Pipeline        *config.Config
}

// TLSConfig represents a TLS configuration
type TLSConfig struct {
	KeyFile  string
	CertFile string
}
