// Package seed loads an HCL campaign manifest and replays it against a
// running escrow server.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/commongood/internal/platform/config"
	platformgrpc "github.com/louisbranch/commongood/internal/platform/grpc"
	"github.com/louisbranch/commongood/internal/platform/timeouts"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/escrow"
	"github.com/louisbranch/commongood/internal/services/escrow/callertoken"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/manifest"
)

// Config holds seed command configuration.
type Config struct {
	GRPCAddr string `env:"GRPC_ADDR" envDefault:"localhost:8095"`
	Admin    string `env:"ADMIN"`
	// CallerSigningKey signs caller tokens on behalf of Admin.
	CallerSigningKey string `env:"CALLER_SIGNING_KEY"`
	Manifest string `env:"MANIFEST" envDefault:"campaign.hcl"`
	// Parallel bounds concurrent mints and project replays.
	Parallel int  `env:"PARALLEL" envDefault:"4"`
	Verbose  bool `env:"VERBOSE"`
}

// ParseConfig reads COMMONGOOD_SEED_* variables, then flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvWithPrefix(&cfg, "COMMONGOOD_SEED_"); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "escrow server address")
	fs.StringVar(&cfg.Admin, "admin", cfg.Admin, "platform admin address")
	fs.StringVar(&cfg.CallerSigningKey, "caller-signing-key", cfg.CallerSigningKey, "base64 Ed25519 key that signs caller tokens")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "campaign manifest (HCL)")
	fs.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "concurrent requests")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Admin) == "" {
		return Config{}, errors.New("admin address is required (-admin or COMMONGOOD_SEED_ADMIN)")
	}
	if strings.TrimSpace(cfg.CallerSigningKey) == "" {
		return Config{}, errors.New("caller signing key is required (-caller-signing-key or COMMONGOOD_SEED_CALLER_SIGNING_KEY)")
	}
	return cfg, nil
}

// Run loads the manifest, dials the server and applies the manifest.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	m, err := manifest.Load(cfg.Manifest, time.Now())
	if err != nil {
		return err
	}
	signer, err := newSigner(cfg)
	if err != nil {
		return err
	}

	var logf func(string, ...any)
	if cfg.Verbose {
		logf = log.Printf
	}
	conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.GRPCAddr, timeouts.GRPCDial, logf, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		return fmt.Errorf("connect to escrow server %s: %w", cfg.GRPCAddr, err)
	}
	defer conn.Close()

	seeder := &Seeder{
		Client:   escrow.NewClient(conn, signer),
		Admin:    cfg.Admin,
		Parallel: cfg.Parallel,
		Out:      out,
		Verbose:  cfg.Verbose,
	}
	results, err := seeder.Apply(ctx, m)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(out, "%-16s %s  %-11s vault=%s pledgers=%d\n", r.Key, r.Project.Address, r.Project.State, r.Project.VaultBalance, r.Project.NumPledgers)
	}
	return nil
}

func newSigner(cfg Config) (*callertoken.Signer, error) {
	admin, err := account.Parse(cfg.Admin)
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	key, err := callertoken.ParsePrivateKey(cfg.CallerSigningKey)
	if err != nil {
		return nil, fmt.Errorf("caller signing key: %w", err)
	}
	return callertoken.NewSigner(admin, key, 0)
}
