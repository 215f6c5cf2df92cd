package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const campaign = `
payment_token "usd" {
  name   = "Test USD"
  symbol = "TUSD"
}

pledger "0xAA01" {
  mint = "1_000"
}

pledger "0xaa02" {
  mint      = "500"
  allowance = "250"
}

project "garden" {
  team                 = "0xbb01"
  token_name           = "Garden"
  token_symbol         = "GRD"
  payment_token        = "usd"
  min_pledged_sum      = "10"
  initial_token_supply = "100"
  cid                  = "bafy-garden"

  milestone {
    approver = "0xcc01"
    value    = "40"
    due      = now + 7 * day
  }

  milestone {
    target_pledgers = 2
    funding_target  = "300"
    value           = "0"
    due             = now + 2 * hour
    prereq          = 0
  }

  pledge {
    pledger = "0xaa01"
    sum     = "200"
  }

  approve {
    milestone = 0
    note      = "shipped"
  }
}
`

func TestParseCampaign(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte(campaign), "campaign.hcl", testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.PaymentTokens) != 1 || m.PaymentTokens[0].Symbol != "TUSD" {
		t.Fatalf("payment tokens = %+v", m.PaymentTokens)
	}
	if len(m.Pledgers) != 2 {
		t.Fatalf("pledgers = %d, want 2", len(m.Pledgers))
	}
	first := m.Pledgers[0]
	if first.Address != account.Address("0xaa01") {
		t.Fatalf("pledger address = %q, want normalized 0xaa01", first.Address)
	}
	if first.PaymentToken != "usd" {
		t.Fatalf("pledger token = %q, want usd", first.PaymentToken)
	}
	if first.Mint.Uint64() != 1000 || first.Allowance != nil {
		t.Fatalf("pledger mint = %v allowance = %v", first.Mint, first.Allowance)
	}
	if got := m.Pledgers[1].Allowance; got == nil || got.Uint64() != 250 {
		t.Fatalf("allowance = %v, want 250", got)
	}

	if len(m.Projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(m.Projects))
	}
	p := m.Projects[0]
	if p.Key != "garden" || p.CID != "bafy-garden" || p.InitialTokenSupply.Uint64() != 100 {
		t.Fatalf("project = %+v", p)
	}
	if len(p.Milestones) != 2 {
		t.Fatalf("milestones = %d, want 2", len(p.Milestones))
	}
	external := p.Milestones[0]
	if external.Approver.Kind != project.ApproverExternal || external.Approver.Address != "0xcc01" {
		t.Fatalf("approver = %+v", external.Approver)
	}
	if want := testNow.Add(7 * 24 * time.Hour); !external.DueDate.Equal(want) {
		t.Fatalf("due = %v, want %v", external.DueDate, want)
	}
	if external.PrereqInd != project.NoPrerequisite {
		t.Fatalf("prereq = %d, want none", external.PrereqInd)
	}
	target := p.Milestones[1]
	if target.Approver.Kind != project.ApproverTarget || target.Approver.TargetNumPledgers != 2 {
		t.Fatalf("target approver = %+v", target.Approver)
	}
	if target.Approver.FundingPTokTarget.Uint64() != 300 || target.PrereqInd != 0 {
		t.Fatalf("target milestone = %+v", target)
	}
	if len(p.Pledges) != 1 || p.Pledges[0].Sum.Uint64() != 200 {
		t.Fatalf("pledges = %+v", p.Pledges)
	}
	if len(p.Approvals) != 1 || !p.Approvals[0].Succeeded || p.Approvals[0].Note != "shipped" {
		t.Fatalf("approvals = %+v", p.Approvals)
	}
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	t.Parallel()

	token := `payment_token "usd" {
  name   = "USD"
  symbol = "USD"
}
`
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "syntax", src: `project "x" {`, want: "failed to parse"},
		{name: "unknown attribute", src: token + `pledger "0xa" {
  mint  = "1"
  bonus = "2"
}`, want: "failed to decode"},
		{name: "duplicate token", src: token + token, want: "declared twice"},
		{name: "bad amount", src: token + `pledger "0xa" {
  mint = "ten"
}`, want: "mint"},
		{name: "unknown token", src: token + `pledger "0xa" {
  mint          = "1"
  payment_token = "eur"
}`, want: "unknown payment_token"},
		{name: "no milestones", src: token + `project "x" {
  team            = "0xb"
  token_name      = "X"
  token_symbol    = "X"
  payment_token   = "usd"
  min_pledged_sum = "1"
}`, want: "at least one milestone"},
		{name: "approver and target", src: token + `project "x" {
  team            = "0xb"
  token_name      = "X"
  token_symbol    = "X"
  payment_token   = "usd"
  min_pledged_sum = "1"
  milestone {
    approver        = "0xc"
    target_pledgers = 1
    value           = "1"
    due             = now + day
  }
}`, want: "mutually exclusive"},
		{name: "approval out of range", src: token + `project "x" {
  team            = "0xb"
  token_name      = "X"
  token_symbol    = "X"
  payment_token   = "usd"
  min_pledged_sum = "1"
  milestone {
    approver = "0xc"
    value    = "1"
    due      = now + day
  }
  approve {
    milestone = 3
  }
}`, want: "out of range"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.src), "bad.hcl", testNow)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "campaign.hcl")
	if err := os.WriteFile(path, []byte(campaign), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := Load(path, testNow)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Projects) != 1 {
		t.Fatalf("projects = %d, want 1", len(m.Projects))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.hcl"), testNow); err == nil {
		t.Fatal("expected error for missing file")
	}
}
