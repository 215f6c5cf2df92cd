package escrow

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("escrow", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8095 || cfg.ListenAddr() != ":8095" {
		t.Fatalf("listen = %q, want :8095", cfg.ListenAddr())
	}
	if cfg.Runtime.DBPath != "data/escrow.db" || cfg.Runtime.MaxMilestones != 300 {
		t.Fatalf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Runtime.GracePeriod != 72*time.Hour || cfg.Runtime.GraceExitWait != time.Hour {
		t.Fatalf("grace = %v/%v", cfg.Runtime.GracePeriod, cfg.Runtime.GraceExitWait)
	}
}

func TestParseConfigReadsPrefixedEnvAndFlags(t *testing.T) {
	t.Setenv("COMMONGOOD_ESCROW_ADMIN", "0xad")
	t.Setenv("COMMONGOOD_ESCROW_PLATFORM_CUT_PROMILS", "25")
	t.Setenv("COMMONGOOD_ESCROW_GRACE_PERIOD", "30m")
	t.Setenv("COMMONGOOD_ESCROW_ADDR", "127.0.0.1:9100")
	t.Setenv("COMMONGOOD_ESCROW_CALLER_PUBLIC_KEY", "env-key")

	fs := flag.NewFlagSet("escrow", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-beta", "-db-path", "/tmp/escrow.db", "-caller-public-key", "flag-key"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Runtime.Admin != "0xad" || cfg.Runtime.PlatformCutPromils != 25 {
		t.Fatalf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Runtime.GracePeriod != 30*time.Minute {
		t.Fatalf("grace period = %v, want 30m", cfg.Runtime.GracePeriod)
	}
	if !cfg.Runtime.BetaMode || cfg.Runtime.DBPath != "/tmp/escrow.db" {
		t.Fatalf("flags not applied: %+v", cfg.Runtime)
	}
	if cfg.Runtime.CallerPublicKey != "flag-key" {
		t.Fatalf("caller public key = %q, want flag-key", cfg.Runtime.CallerPublicKey)
	}
	if cfg.ListenAddr() != "127.0.0.1:9100" {
		t.Fatalf("listen = %q", cfg.ListenAddr())
	}
}
