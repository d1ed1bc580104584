package config

import (
	"os"
	"strconv"
)

// Config holds the few knobs the server reads from the environment (a .env
// file is loaded first when present).
type Config struct {
	ListenAddr string
	// ProtocolNumber is assumed for clients that do not announce one.
	ProtocolNumber int
}

func Load() Config {
	cfg := Config{
		ListenAddr:     ":8080",
		ProtocolNumber: 54,
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if p := os.Getenv("PROTOCOL_NUMBER"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			cfg.ProtocolNumber = n
		}
	}
	return cfg
}
