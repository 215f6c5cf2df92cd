package server

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/commongood/internal/platform/grpc"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/escrow"
	"github.com/louisbranch/commongood/internal/services/escrow/callertoken"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newCallerKeys(t *testing.T) (string, *callertoken.Signer) {
	t.Helper()
	public, private, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate caller key: %v", err)
	}
	signer, err := callertoken.NewSigner("0xad", private, time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	return callertoken.EncodeKey(public), signer
}

func TestServer_CreateTokenAndProjectRoundTrip(t *testing.T) {
	publicKey, signer := newCallerKeys(t)
	cfg := Config{
		DBPath:          filepath.Join(t.TempDir(), "nested", "escrow.db"),
		Admin:           "0xAD",
		GracePeriod:     time.Hour,
		GraceExitWait:   time.Minute,
		CallerPublicKey: publicKey,
	}
	srv, err := NewWithAddr("127.0.0.1:0", cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if got := srv.Factory().Owner(); got != "0xad" {
		t.Fatalf("owner = %q, want 0xad", got)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case serveErr := <-serveDone:
			if serveErr != nil {
				t.Fatalf("serve: %v", serveErr)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for server shutdown")
		}
	})

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial escrow server: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := conn.Close(); closeErr != nil {
			t.Fatalf("close gRPC connection: %v", closeErr)
		}
	})

	healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := platformgrpc.WaitForHealth(healthCtx, conn, escrow.ServiceName, nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}

	ctx := context.Background()
	client := escrow.NewClient(conn, signer)
	tok, err := client.CreatePaymentToken(ctx, "0xad", escrow.CreatePaymentTokenRequest{Name: "Test USD", Symbol: "TUSD"})
	if err != nil {
		t.Fatalf("create payment token: %v", err)
	}
	settings, err := client.ApprovePaymentToken(ctx, "0xad", escrow.ApprovePaymentTokenRequest{Token: tok.Address, Approved: true})
	if err != nil {
		t.Fatalf("approve payment token: %v", err)
	}
	if len(settings.ApprovedTokens) != 1 || settings.OnChangeExitGracePeriod != 3600 {
		t.Fatalf("settings = %+v", settings)
	}

	view, err := client.CreateProject(ctx, "0xa1", escrow.CreateProjectRequest{
		TeamWallet:    "0xa1",
		PaymentToken:  tok.Address,
		TokenName:     "Garden",
		TokenSymbol:   "GRD",
		MinPledgedSum: "1",
		Milestones: []escrow.MilestoneMessage{{
			Approver: "0xa2",
			Value:    "0",
			Due:      time.Now().Add(time.Hour).Unix(),
		}},
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if view.GraceExitWait != 60 {
		t.Fatalf("grace exit wait = %d, want 60", view.GraceExitWait)
	}

	listed, err := client.ListProjects(ctx, escrow.ListProjectsRequest{})
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(listed.Projects) != 1 || listed.Projects[0].Address != view.Address {
		t.Fatalf("listed = %+v", listed)
	}
}

func TestNewWithAddrRequiresAdmin(t *testing.T) {
	publicKey, _ := newCallerKeys(t)
	_, err := NewWithAddr("127.0.0.1:0", Config{DBPath: filepath.Join(t.TempDir(), "escrow.db"), CallerPublicKey: publicKey})
	if err == nil {
		t.Fatal("expected error without admin")
	}
}

func TestNewWithAddrRequiresCallerPublicKey(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "escrow.db")
	if _, err := NewWithAddr("127.0.0.1:0", Config{DBPath: dbPath, Admin: "0xad"}); err == nil {
		t.Fatal("expected error without caller public key")
	}
	if _, err := NewWithAddr("127.0.0.1:0", Config{DBPath: dbPath, Admin: "0xad", CallerPublicKey: "not base64!"}); err == nil {
		t.Fatal("expected error for malformed caller public key")
	}
}
