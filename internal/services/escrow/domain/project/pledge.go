package project

import (
	"slices"
	"time"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
)

// PledgeEvent is one deposit made by a pledger.
type PledgeEvent struct {
	Pledger   account.Address
	Sum       *uint256.Int
	Timestamp time.Time
}

// NewPledge pulls sum of paymentToken from caller into the vault. The caller
// must have approved the project as spender for at least sum.
func (p *Project) NewPledge(caller account.Address, sum *uint256.Int, paymentToken account.Address) error {
	return p.run(caller, true, func(tx *txn) error {
		b := &p.b
		if err := tx.requireInProgress(); err != nil {
			return err
		}
		// The vault and the project cannot pledge: a pull into the vault
		// from itself moves nothing.
		if caller.IsZero() || caller == b.vault.Address() || caller == p.address {
			return ErrInvalidAddress
		}
		if sum == nil || sum.IsZero() || sum.Lt(b.minPledgedSum) {
			return belowMinimumError(b.minPledgedSum)
		}
		if paymentToken != b.payment.Address() {
			return ErrPaymentTokenMismatch
		}
		if b.payment.Allowance(caller, p.address).Lt(sum) {
			return allowanceError(sum)
		}
		total, overflow := new(uint256.Int).AddOverflow(b.totalPledged, sum)
		if overflow {
			return ErrAmountOverflow
		}

		amount := sum.Clone()
		if _, ok := b.pledges[caller]; !ok {
			b.pledgers = append(b.pledgers, caller)
			b.numPledgers++
		}
		b.pledges[caller] = append(b.pledges[caller], PledgeEvent{Pledger: caller, Sum: amount, Timestamp: tx.now})
		b.totalPledged = total
		tx.emit(event.TypePledgeAdded, event.EntityPledger, caller.String(), event.PledgeAddedPayload{
			Pledger: caller.String(),
			Sum:     amount.Dec(),
		})
		if tx.err != nil {
			return tx.err
		}
		return b.payment.TransferFrom(p.address, caller, b.vault.Address(), amount)
	})
}

// NumEventsForPledger returns how many pledges addr has made.
func (p *Project) NumEventsForPledger(addr account.Address) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.b.pledges[addr])
}

// PledgeEvent returns the index-th pledge made by addr.
func (p *Project) PledgeEvent(addr account.Address, index int) (PledgeEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.b.pledges[addr]
	if index < 0 || index >= len(events) {
		return PledgeEvent{}, ErrPledgeIndexOutOfRange
	}
	evt := events[index]
	evt.Sum = evt.Sum.Clone()
	return evt, nil
}

// IsActivePledger reports whether addr currently holds a pledge.
func (p *Project) IsActivePledger(addr account.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.b.pledges[addr]
	return ok
}

// PledgedBy returns the total addr has pledged.
func (p *Project) PledgedBy(addr account.Address) *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pledgedTotal(p.b.pledges[addr])
}

// removePledger drops addr and returns what it had pledged.
func (b *book) removePledger(addr account.Address) *uint256.Int {
	total := pledgedTotal(b.pledges[addr])
	delete(b.pledges, addr)
	b.pledgers = slices.DeleteFunc(b.pledgers, func(a account.Address) bool { return a == addr })
	b.numPledgers--
	b.totalPledged = new(uint256.Int).Sub(b.totalPledged, total)
	return total
}

// pledgedTotal cannot overflow: NewPledge bounds the sum of every pledge.
func pledgedTotal(events []PledgeEvent) *uint256.Int {
	total := new(uint256.Int)
	for _, evt := range events {
		total = new(uint256.Int).Add(total, evt.Sum)
	}
	return total
}

func earliestPledge(events []PledgeEvent) time.Time {
	earliest := events[0].Timestamp
	for _, evt := range events[1:] {
		if evt.Timestamp.Before(earliest) {
			earliest = evt.Timestamp
		}
	}
	return earliest
}
