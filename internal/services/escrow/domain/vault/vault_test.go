package vault

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
)

var (
	platformOwner = account.MustParse("0xa0")
	projectAddr   = account.Contract(account.KindProject, "p1")
	team          = account.MustParse("0xa1")
	stranger      = account.MustParse("0xa9")
)

func newFundedVault(t *testing.T, amount uint64) (*Vault, *token.Ledger) {
	t.Helper()
	ledger := token.NewLedger(account.Contract(account.KindToken, "usd"), platformOwner, "Test USD", "TUSD")
	v := New(account.Contract(account.KindVault, "v1"))
	if err := ledger.Mint(platformOwner, v.Address(), uint256.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := v.Initialize(projectAddr, ledger); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return v, ledger
}

func TestInitializeOnlyOnce(t *testing.T) {
	t.Parallel()

	v, ledger := newFundedVault(t, 0)
	err := v.Initialize(stranger, ledger)
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second initialize error = %v, want %v", err, ErrAlreadyInitialized)
	}
	if err.Error() != "can only be initialized once" {
		t.Fatalf("message = %q", err.Error())
	}
	if v.Owner() != projectAddr {
		t.Fatalf("owner = %s, want %s", v.Owner(), projectAddr)
	}
}

func TestTransferOutRequiresOwner(t *testing.T) {
	t.Parallel()

	v, ledger := newFundedVault(t, 10)
	err := v.TransferOut(stranger, token.Leg{To: stranger, Amount: uint256.NewInt(10)})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("transfer by stranger error = %v, want %v", err, ErrUnauthorized)
	}
	if v.Balance().Uint64() != 10 {
		t.Fatal("expected rejected transfer to keep funds")
	}

	if err := v.TransferOut(projectAddr, token.Leg{To: team, Amount: uint256.NewInt(4)}); err != nil {
		t.Fatalf("transfer by owner: %v", err)
	}
	if got := ledger.BalanceOf(team).Uint64(); got != 4 {
		t.Fatalf("team balance = %d, want 4", got)
	}
	if got := v.Balance().Uint64(); got != 6 {
		t.Fatalf("vault balance = %d, want 6", got)
	}
}

func TestTransferOutBeforeInitialize(t *testing.T) {
	t.Parallel()

	v := New(account.Contract(account.KindVault, "fresh"))
	if err := v.TransferOut(projectAddr); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("transfer before init error = %v, want %v", err, ErrNotInitialized)
	}
	if !v.Balance().IsZero() {
		t.Fatal("expected zero balance before init")
	}
}
