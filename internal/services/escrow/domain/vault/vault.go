// Package vault holds a project's pooled payment tokens. Only the owning
// project can move funds out.
package vault

import (
	"sync"

	"github.com/holiman/uint256"
	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
)

var (
	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = apperrors.New(apperrors.CodeAlreadyInitialized, "can only be initialized once")
	// ErrNotInitialized indicates a transfer before the vault was bound to an owner.
	ErrNotInitialized = apperrors.New(apperrors.CodeNotInitialized, "vault is not initialized")
	// ErrUnauthorized indicates a transfer requested by someone other than the owner.
	ErrUnauthorized = apperrors.New(apperrors.CodeUnauthorized, "only the vault owner can transfer funds")
	// ErrInvalidOwner indicates an attempt to bind the vault to the zero address.
	ErrInvalidOwner = apperrors.New(apperrors.CodeInvalidAddress, "vault owner is required")
)

// Ledger is the payment-token surface the vault relies on.
type Ledger interface {
	Address() account.Address
	BalanceOf(holder account.Address) *uint256.Int
	TransferBatch(from account.Address, legs ...token.Leg) error
}

// Vault is a guarded custody account.
type Vault struct {
	mu          sync.Mutex
	address     account.Address
	owner       account.Address
	ledger      Ledger
	initialized bool
}

// New returns an uninitialized vault deployed at address.
func New(address account.Address) *Vault {
	return &Vault{address: address}
}

// Initialize binds the vault to its owner and payment token. It succeeds once.
func (v *Vault) Initialize(owner account.Address, ledger Ledger) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.initialized {
		return ErrAlreadyInitialized
	}
	if owner.IsZero() || ledger == nil {
		return ErrInvalidOwner
	}
	v.owner = owner
	v.ledger = ledger
	v.initialized = true
	return nil
}

// Initialized reports whether the vault is bound to an owner.
func (v *Vault) Initialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// Address returns the vault's contract address.
func (v *Vault) Address() account.Address { return v.address }

// Owner returns the project that controls the vault.
func (v *Vault) Owner() account.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.owner
}

// Balance returns the payment-token balance held by the vault.
func (v *Vault) Balance() *uint256.Int {
	v.mu.Lock()
	ledger := v.ledger
	v.mu.Unlock()
	if ledger == nil {
		return new(uint256.Int)
	}
	return ledger.BalanceOf(v.address)
}

// TransferOut moves funds to every leg atomically. Only the owner may call it.
func (v *Vault) TransferOut(caller account.Address, legs ...token.Leg) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.initialized {
		return ErrNotInitialized
	}
	if caller != v.owner {
		return ErrUnauthorized
	}
	return v.ledger.TransferBatch(v.address, legs...)
}
