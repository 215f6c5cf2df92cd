// Package server wires the escrow runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/escrow"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/metadata"
	"github.com/louisbranch/commongood/internal/services/escrow/callertoken"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/clock"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/factory"
	"github.com/louisbranch/commongood/internal/services/escrow/projection"
	escrowsqlite "github.com/louisbranch/commongood/internal/services/escrow/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds the runtime settings. Field tags are relative to the
// COMMONGOOD_ESCROW_ environment prefix.
type Config struct {
	DBPath             string        `env:"DB_PATH" envDefault:"data/escrow.db"`
	Admin              string        `env:"ADMIN"`
	PlatformWallet     string        `env:"PLATFORM_WALLET"`
	PlatformCutPromils uint16        `env:"PLATFORM_CUT_PROMILS"`
	BetaMode           bool          `env:"BETA_MODE"`
	MinMilestones      int           `env:"MIN_MILESTONES" envDefault:"1"`
	MaxMilestones      int           `env:"MAX_MILESTONES" envDefault:"300"`
	GracePeriod        time.Duration `env:"GRACE_PERIOD" envDefault:"72h"`
	GraceExitWait      time.Duration `env:"GRACE_EXIT_WAIT" envDefault:"1h"`
	// CallerPublicKey verifies the caller tokens the admin issues.
	CallerPublicKey string `env:"CALLER_PUBLIC_KEY"`
}

func (c Config) callerVerifier(admin account.Address) (*callertoken.Verifier, error) {
	if strings.TrimSpace(c.CallerPublicKey) == "" {
		return nil, errors.New("caller public key is required")
	}
	key, err := callertoken.ParsePublicKey(c.CallerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("caller public key: %w", err)
	}
	return callertoken.NewVerifier(admin, key)
}

func (c Config) factoryConfig() (factory.Config, error) {
	admin, err := account.Parse(c.Admin)
	if err != nil {
		return factory.Config{}, fmt.Errorf("admin: %w", err)
	}
	if admin.IsZero() {
		return factory.Config{}, errors.New("admin address is required")
	}
	wallet, err := account.Parse(c.PlatformWallet)
	if err != nil {
		return factory.Config{}, fmt.Errorf("platform wallet: %w", err)
	}
	return factory.Config{
		Owner:                    admin,
		Wallet:                   wallet,
		PlatformCutPromils:       c.PlatformCutPromils,
		BetaMode:                 c.BetaMode,
		MinMilestones:            c.MinMilestones,
		MaxMilestones:            c.MaxMilestones,
		OnChangeExitGracePeriod:  c.GracePeriod,
		PledgerGraceExitWaitTime: c.GraceExitWait,
	}, nil
}

// Server hosts the escrow gRPC API and storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *escrowsqlite.Store
	factory    *factory.Factory
}

// New creates a configured escrow server listening on the provided port.
func New(port int, cfg Config) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port), cfg)
}

// NewWithAddr creates a configured escrow server for the provided address.
func NewWithAddr(addr string, cfg Config) (*Server, error) {
	factoryCfg, err := cfg.factoryConfig()
	if err != nil {
		return nil, err
	}
	verifier, err := cfg.callerVerifier(factoryCfg.Owner)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join("data", "escrow.db")
	}
	store, err := openEscrowStore(dbPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	projector := projection.New(store, store)
	platform, err := factory.New(factoryCfg, clock.System{}, projector)
	if err != nil {
		_ = store.Close()
		_ = listener.Close()
		return nil, fmt.Errorf("configure platform: %w", err)
	}
	projector.Attach(platform)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(nil, verifier)),
	)
	healthServer := health.NewServer()
	escrow.RegisterEscrowServer(grpcServer, escrow.NewService(platform, store, store))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(escrow.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		factory:    platform,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Factory returns the platform registry served by s.
func (s *Server) Factory() *factory.Factory {
	if s == nil {
		return nil
	}
	return s.factory
}

// Run creates and serves an escrow server until context cancellation.
func Run(ctx context.Context, addr string, cfg Config) error {
	server, err := NewWithAddr(addr, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	settings := s.factory.Settings()
	log.Printf("escrow server listening at %v (admin %s, cut %d promils, beta %t)",
		s.listener.Addr(), settings.Owner, settings.PlatformCutPromils, settings.BetaMode)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases escrow server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close escrow store: %v", err)
		}
	}
}

func openEscrowStore(path string) (*escrowsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := escrowsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open escrow sqlite store: %w", err)
	}
	return store, nil
}
