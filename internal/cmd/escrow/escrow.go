// Package escrow parses escrow service flags and launches the service.
package escrow

import (
	"context"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/louisbranch/commongood/internal/platform/cmd"
	server "github.com/louisbranch/commongood/internal/services/escrow/app"
)

// Config holds escrow command configuration.
type Config struct {
	Port int `env:"COMMONGOOD_ESCROW_PORT" envDefault:"8095"`
	// Addr overrides Port with a full listen address when set.
	Addr    string        `env:"COMMONGOOD_ESCROW_ADDR"`
	Runtime server.Config `envPrefix:"COMMONGOOD_ESCROW_"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The escrow gRPC server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The escrow gRPC listen address (overrides -port)")
	fs.StringVar(&cfg.Runtime.DBPath, "db-path", cfg.Runtime.DBPath, "SQLite journal path")
	fs.StringVar(&cfg.Runtime.Admin, "admin", cfg.Runtime.Admin, "Platform admin address")
	fs.BoolVar(&cfg.Runtime.BetaMode, "beta", cfg.Runtime.BetaMode, "Restrict project creation to beta testers")
	fs.StringVar(&cfg.Runtime.CallerPublicKey, "caller-public-key", cfg.Runtime.CallerPublicKey, "Base64 Ed25519 key that verifies caller tokens")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ListenAddr returns the address the server binds.
func (c Config) ListenAddr() string {
	if addr := strings.TrimSpace(c.Addr); addr != "" {
		return addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Run starts the escrow gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEscrow, func(ctx context.Context) error {
		return server.Run(ctx, cfg.ListenAddr(), cfg.Runtime)
	})
}
