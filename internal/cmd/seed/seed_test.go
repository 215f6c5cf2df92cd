package seed

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"flag"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/escrow"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/metadata"
	"github.com/louisbranch/commongood/internal/services/escrow/callertoken"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/clock"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/factory"
	"github.com/louisbranch/commongood/internal/services/escrow/manifest"
	"github.com/louisbranch/commongood/internal/services/escrow/projection"
	"github.com/louisbranch/commongood/internal/services/escrow/storage/sqlite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const admin = "0xad"

var start = time.Date(2026, time.June, 1, 8, 0, 0, 0, time.UTC)

const campaign = `
payment_token "usd" {
  name   = "Test USD"
  symbol = "TUSD"
}

pledger "0xa3" {
  mint = "1000"
}

pledger "0xa4" {
  mint      = "1000"
  allowance = "600"
}

project "garden" {
  team            = "0xa1"
  token_name      = "Garden"
  token_symbol    = "GRD"
  payment_token   = "usd"
  min_pledged_sum = "10"
  initial_token_supply = "500"

  milestone {
    approver = "0xa2"
    value    = "100"
    due      = now + day
  }

  milestone {
    target_pledgers = 2
    value           = "0"
    due             = now + 2 * day
    prereq          = 0
  }

  pledge {
    pledger = "0xa3"
    sum     = "300"
  }

  pledge {
    pledger = "0xa4"
    sum     = "200"
  }

  approve {
    milestone = 0
    note      = "seeded"
  }

  approve {
    milestone = 1
  }
}

project "library" {
  team            = "0xb1"
  token_name      = "Library"
  token_symbol    = "LIB"
  payment_token   = "usd"
  min_pledged_sum = "1"

  milestone {
    approver = "0xb2"
    value    = "0"
    due      = now + day
  }

  pledge {
    pledger = "0xa3"
    sum     = "50"
  }
}
`

func newClient(t *testing.T) *escrow.Client {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "escrow.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	projector := projection.New(store, store)
	f, err := factory.New(factory.Config{Owner: admin}, clock.NewManual(start), projector)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	projector.Attach(f)

	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate caller key: %v", err)
	}
	verifier, err := callertoken.NewVerifier(admin, public)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	signer, err := newSigner(Config{Admin: admin, CallerSigningKey: callertoken.EncodeKey(private)})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(nil, verifier)))
	escrow.RegisterEscrowServer(server, escrow.NewService(f, store, store))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return escrow.NewClient(conn, signer)
}

func TestSeederAppliesManifest(t *testing.T) {
	t.Parallel()

	m, err := manifest.Parse([]byte(campaign), "campaign.hcl", start)
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	client := newClient(t)
	var out bytes.Buffer
	seeder := &Seeder{Client: client, Admin: admin, Parallel: 2, Out: &out, Verbose: true}

	results, err := seeder.Apply(context.Background(), m)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	garden := results[0]
	if garden.Key != "garden" || garden.Project.State != "SUCCEEDED" {
		t.Fatalf("garden = %+v", garden)
	}
	if garden.Project.NumPledgers != 2 || garden.Project.VaultBalance != "0" {
		t.Fatalf("garden project = %+v", garden.Project)
	}
	library := results[1]
	if library.Key != "library" || library.Project.State != "IN_PROGRESS" || library.Project.VaultBalance != "50" {
		t.Fatalf("library = %+v", library)
	}

	team, err := client.GetBalance(context.Background(), escrow.GetBalanceRequest{Token: garden.Project.PaymentToken, Holder: "0xa1"})
	if err != nil {
		t.Fatalf("team balance: %v", err)
	}
	if team.Balance != "500" {
		t.Fatalf("team balance = %s, want 500", team.Balance)
	}
	allowance, err := client.GetBalance(context.Background(), escrow.GetBalanceRequest{Token: garden.Project.PaymentToken, Holder: "0xa4", Spender: garden.Project.Address})
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if allowance.Allowance != "400" {
		t.Fatalf("remaining allowance = %s, want 400", allowance.Allowance)
	}

	if !strings.Contains(out.String(), "project garden deployed") {
		t.Fatalf("verbose output missing deployment line:\n%s", out.String())
	}
}

func TestSeederRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := (&Seeder{}).Apply(context.Background(), &manifest.Manifest{}); err == nil {
		t.Fatal("expected error without client")
	}
}

func TestParseConfig(t *testing.T) {
	t.Setenv("COMMONGOOD_SEED_GRPC_ADDR", "escrow:9000")
	t.Setenv("COMMONGOOD_SEED_ADMIN", "0xad")
	t.Setenv("COMMONGOOD_SEED_CALLER_SIGNING_KEY", "seed-key")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-manifest", "demo.hcl", "-v"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.GRPCAddr != "escrow:9000" || cfg.Admin != "0xad" || cfg.CallerSigningKey != "seed-key" {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.Manifest != "demo.hcl" || !cfg.Verbose || cfg.Parallel != 4 {
		t.Fatalf("flags = %+v", cfg)
	}
}

func TestParseConfigRequiresAdmin(t *testing.T) {
	t.Setenv("COMMONGOOD_SEED_ADMIN", "")
	t.Setenv("COMMONGOOD_SEED_CALLER_SIGNING_KEY", "seed-key")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error without admin")
	}
}

func TestParseConfigRequiresCallerSigningKey(t *testing.T) {
	t.Setenv("COMMONGOOD_SEED_ADMIN", "0xad")
	t.Setenv("COMMONGOOD_SEED_CALLER_SIGNING_KEY", "")

	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error without caller signing key")
	}
}

func TestNewSignerRejectsBadKey(t *testing.T) {
	t.Parallel()

	if _, err := newSigner(Config{Admin: admin, CallerSigningKey: "short"}); err == nil {
		t.Fatal("expected error for malformed signing key")
	}
}
