package token

import (
	"errors"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
)

var (
	owner = account.MustParse("0xa0")
	alice = account.MustParse("0xa3")
	bob   = account.MustParse("0xa4")
	vault = account.Contract(account.KindVault, "v1")
)

func newFundedLedger(t *testing.T, holder account.Address, amount uint64) *Ledger {
	t.Helper()
	l := NewLedger(account.Contract(account.KindToken, "usd"), owner, "Test USD", "TUSD")
	if err := l.Mint(owner, holder, uint256.NewInt(amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	return l
}

func TestMintRequiresOwner(t *testing.T) {
	t.Parallel()

	l := NewLedger(account.Contract(account.KindToken, "usd"), owner, "Test USD", "TUSD")
	if err := l.Mint(alice, alice, uint256.NewInt(5)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("mint by non-owner error = %v, want %v", err, ErrUnauthorized)
	}
	if err := l.Mint(owner, alice, uint256.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := l.TotalSupply().Uint64(); got != 5 {
		t.Fatalf("supply = %d, want 5", got)
	}
}

func TestMintRejectsOverflow(t *testing.T) {
	t.Parallel()

	l := NewLedger(account.Contract(account.KindToken, "usd"), owner, "Test USD", "TUSD")
	max := new(uint256.Int).SetAllOne()
	if err := l.Mint(owner, alice, max); err != nil {
		t.Fatalf("mint max: %v", err)
	}
	if err := l.Mint(owner, bob, uint256.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("overflow mint error = %v, want %v", err, ErrOverflow)
	}
	if !l.BalanceOf(bob).IsZero() {
		t.Fatal("expected failed mint to leave balance untouched")
	}
}

func TestBurnRequiresOwnerAndBalance(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, alice, 10)
	if err := l.Burn(alice, alice, uint256.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("burn by non-owner error = %v, want %v", err, ErrUnauthorized)
	}
	if err := l.Burn(owner, alice, uint256.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("burn over balance error = %v, want %v", err, ErrInsufficientBalance)
	}
	if err := l.Burn(owner, alice, uint256.NewInt(4)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := l.BalanceOf(alice).Uint64(); got != 6 {
		t.Fatalf("balance = %d, want 6", got)
	}
	if got := l.TotalSupply().Uint64(); got != 6 {
		t.Fatalf("supply = %d, want 6", got)
	}
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, alice, 10)
	if err := l.TransferFrom(vault, alice, vault, uint256.NewInt(3)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("transfer without allowance error = %v, want %v", err, ErrInsufficientAllowance)
	}
	if err := l.Approve(alice, vault, uint256.NewInt(7)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(vault, alice, vault, uint256.NewInt(3)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if got := l.Allowance(alice, vault).Uint64(); got != 4 {
		t.Fatalf("allowance = %d, want 4", got)
	}
	if got := l.BalanceOf(vault).Uint64(); got != 3 {
		t.Fatalf("vault balance = %d, want 3", got)
	}
}

func TestTransferFromKeepsAllowanceWhenBalanceShort(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, alice, 2)
	if err := l.Approve(alice, vault, uint256.NewInt(5)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(vault, alice, vault, uint256.NewInt(5)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("transfer error = %v, want %v", err, ErrInsufficientBalance)
	}
	if got := l.Allowance(alice, vault).Uint64(); got != 5 {
		t.Fatalf("allowance = %d, want 5", got)
	}
}

func TestTransferFromRejectsSelfTransfer(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, vault, 10)
	if err := l.Approve(vault, bob, uint256.NewInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := l.TransferFrom(bob, vault, vault, uint256.NewInt(10)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("self transfer error = %v, want %v", err, ErrInvalidAddress)
	}
	if got := l.Allowance(vault, bob).Uint64(); got != 10 {
		t.Fatalf("allowance = %d, want 10", got)
	}
	if got := l.BalanceOf(vault).Uint64(); got != 10 {
		t.Fatalf("vault balance = %d, want 10", got)
	}
}

func TestTransferBatchIsAllOrNothing(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, vault, 10)
	err := l.TransferBatch(vault,
		Leg{To: alice, Amount: uint256.NewInt(6)},
		Leg{To: bob, Amount: uint256.NewInt(6)},
	)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("batch error = %v, want %v", err, ErrInsufficientBalance)
	}
	if !l.BalanceOf(alice).IsZero() || l.BalanceOf(vault).Uint64() != 10 {
		t.Fatal("expected rejected batch to move nothing")
	}

	if err := l.TransferBatch(vault,
		Leg{To: alice, Amount: uint256.NewInt(6)},
		Leg{To: bob, Amount: uint256.NewInt(4)},
	); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if l.BalanceOf(alice).Uint64() != 6 || l.BalanceOf(bob).Uint64() != 4 || !l.BalanceOf(vault).IsZero() {
		t.Fatal("unexpected balances after batch")
	}
}

func TestTransferRejectsZeroAddress(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, alice, 1)
	if err := l.Transfer(alice, account.Zero, uint256.NewInt(1)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("transfer to zero error = %v, want %v", err, ErrInvalidAddress)
	}
}

func TestConcurrentTransfersPreserveSupply(t *testing.T) {
	t.Parallel()

	l := newFundedLedger(t, alice, 1000)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Transfer(alice, bob, uint256.NewInt(3))
		}()
		go func() {
			defer wg.Done()
			_ = l.Transfer(bob, alice, uint256.NewInt(1))
		}()
	}
	wg.Wait()

	total := new(uint256.Int).Add(l.BalanceOf(alice), l.BalanceOf(bob))
	if total.Uint64() != 1000 {
		t.Fatalf("total = %d, want 1000", total.Uint64())
	}
}
