// Package token implements an in-process fungible token ledger with
// balances, allowances and owner-only minting.
package token

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
)

// Leg is one outbound transfer in a batch.
type Leg struct {
	To     account.Address
	Amount *uint256.Int
}

// Ledger is a fungible token. All methods are safe for concurrent use and
// every mutation is all-or-nothing.
type Ledger struct {
	mu         sync.Mutex
	address    account.Address
	owner      account.Address
	name       string
	symbol     string
	supply     *uint256.Int
	balances   map[account.Address]*uint256.Int
	allowances map[account.Address]map[account.Address]*uint256.Int
}

// NewLedger creates an empty ledger deployed at address and owned by owner.
func NewLedger(address, owner account.Address, name, symbol string) *Ledger {
	return &Ledger{
		address:    address,
		owner:      owner,
		name:       name,
		symbol:     symbol,
		supply:     new(uint256.Int),
		balances:   map[account.Address]*uint256.Int{},
		allowances: map[account.Address]map[account.Address]*uint256.Int{},
	}
}

// Address returns the ledger's contract address.
func (l *Ledger) Address() account.Address { return l.address }

// Owner returns the account allowed to mint.
func (l *Ledger) Owner() account.Address { return l.owner }

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// TotalSupply returns the minted supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.supply.Clone()
}

// BalanceOf returns the balance held by holder.
func (l *Ledger) BalanceOf(holder account.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(holder).Clone()
}

// Allowance returns how much spender may still move on behalf of holder.
func (l *Ledger) Allowance(holder, spender account.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if byHolder, ok := l.allowances[holder]; ok {
		if value, ok := byHolder[spender]; ok {
			return value.Clone()
		}
	}
	return new(uint256.Int)
}

// Mint creates amount new tokens for to. Only the owner may mint.
func (l *Ledger) Mint(caller, to account.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrUnauthorized
	}
	supply, overflow := new(uint256.Int).AddOverflow(l.supply, amount)
	if overflow {
		return ErrOverflow
	}
	balance, overflow := new(uint256.Int).AddOverflow(l.balanceLocked(to), amount)
	if overflow {
		return ErrOverflow
	}
	l.supply = supply
	l.balances[to] = balance
	return nil
}

// Burn destroys amount held by from. Only the owner may burn.
func (l *Ledger) Burn(caller, from account.Address, amount *uint256.Int) error {
	if from.IsZero() {
		return ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return ErrUnauthorized
	}
	balance := l.balanceLocked(from)
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	l.balances[from] = new(uint256.Int).Sub(balance, amount)
	l.supply = new(uint256.Int).Sub(l.supply, amount)
	return nil
}

// Approve sets the allowance spender may move on behalf of holder.
func (l *Ledger) Approve(holder, spender account.Address, amount *uint256.Int) error {
	if holder.IsZero() || spender.IsZero() {
		return ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	byHolder, ok := l.allowances[holder]
	if !ok {
		byHolder = map[account.Address]*uint256.Int{}
		l.allowances[holder] = byHolder
	}
	byHolder[spender] = amount.Clone()
	return nil
}

// Transfer moves amount from from to to.
func (l *Ledger) Transfer(from, to account.Address, amount *uint256.Int) error {
	return l.TransferBatch(from, Leg{To: to, Amount: amount})
}

// TransferBatch moves every leg out of from, or none of them when the
// combined amount exceeds the balance.
func (l *Ledger) TransferBatch(from account.Address, legs ...Leg) error {
	if from.IsZero() {
		return ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, legs)
}

// TransferFrom moves amount from holder to to, spending spender's allowance.
// A holder cannot pull funds into its own balance.
func (l *Ledger) TransferFrom(spender, holder, to account.Address, amount *uint256.Int) error {
	if holder.IsZero() || holder == to {
		return ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	byHolder, ok := l.allowances[holder]
	if !ok {
		byHolder = map[account.Address]*uint256.Int{}
	}
	allowed, ok := byHolder[spender]
	if !ok {
		allowed = new(uint256.Int)
	}
	if allowed.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := l.transferLocked(holder, []Leg{{To: to, Amount: amount}}); err != nil {
		return err
	}
	byHolder[spender] = new(uint256.Int).Sub(allowed, amount)
	l.allowances[holder] = byHolder
	return nil
}

func (l *Ledger) transferLocked(from account.Address, legs []Leg) error {
	total := new(uint256.Int)
	for _, leg := range legs {
		if leg.To.IsZero() {
			return ErrInvalidAddress
		}
		var overflow bool
		total, overflow = new(uint256.Int).AddOverflow(total, leg.Amount)
		if overflow {
			return ErrOverflow
		}
	}
	if l.balanceLocked(from).Lt(total) {
		return ErrInsufficientBalance
	}
	for _, leg := range legs {
		if leg.Amount.IsZero() || leg.To == from {
			continue
		}
		l.balances[from] = new(uint256.Int).Sub(l.balanceLocked(from), leg.Amount)
		// Credit cannot overflow: supply bounds every balance.
		l.balances[leg.To] = new(uint256.Int).Add(l.balanceLocked(leg.To), leg.Amount)
	}
	return nil
}

func (l *Ledger) balanceLocked(holder account.Address) *uint256.Int {
	if value, ok := l.balances[holder]; ok {
		return value
	}
	return new(uint256.Int)
}
