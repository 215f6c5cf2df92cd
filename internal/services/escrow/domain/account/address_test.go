package account

import "testing"

func TestParseNormalizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Address
	}{
		{in: "", want: Zero},
		{in: "  ", want: Zero},
		{in: "0x0000000000000000000000000000000000000000", want: Zero},
		{in: " 0xAbC1 ", want: "0xabc1"},
		{in: "project:abc", want: "project:abc"},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRejectsControlCharacters(t *testing.T) {
	t.Parallel()

	if _, err := Parse("0xa1\n"); err != nil {
		t.Fatalf("trailing newline should be trimmed: %v", err)
	}
	if _, err := Parse("0x\ta1"); err == nil {
		t.Fatal("expected embedded tab to be rejected")
	}
}

func TestContractKind(t *testing.T) {
	t.Parallel()

	addr := Contract(KindVault, "q2x")
	if addr.Kind() != KindVault {
		t.Fatalf("kind = %q, want %q", addr.Kind(), KindVault)
	}
	if MustParse("0xa1").Kind() != "" {
		t.Fatal("expected wallets to have no kind")
	}
	if Zero.String() != "0x0000000000000000000000000000000000000000" {
		t.Fatalf("zero string = %q", Zero.String())
	}
}
