package project

import (
	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
)

// OnGracePeriodPledgerRefund lets a pledger leave during a grace period. The
// pledger is removed entirely and refunded up to what the vault holds.
func (p *Project) OnGracePeriodPledgerRefund(caller account.Address) error {
	return p.run(caller, true, func(tx *txn) error {
		b := &p.b
		if err := tx.requireInProgress(); err != nil {
			return err
		}
		if b.graceEnd.IsZero() || !tx.now.Before(b.graceEnd) {
			return ErrGracePeriodInactive
		}
		events, ok := b.pledges[caller]
		if !ok {
			return ErrNotAPledger
		}
		if tx.now.Sub(earliestPledge(events)) < b.exitWait {
			return ErrPledgeTooRecent
		}

		should := b.removePledger(caller)
		actual := should
		if balance := p.vaultBalanceLocked(); balance.Lt(actual) {
			actual = balance
		}
		tx.emit(event.TypeGracePeriodRefund, event.EntityPledger, caller.String(), event.GracePeriodRefundPayload{
			Pledger:          caller.String(),
			ShouldBeRefunded: should.Dec(),
			ActuallyRefunded: actual.Dec(),
		})
		return tx.payOut(token.Leg{To: caller, Amount: actual})
	})
}

// OnProjectFailurePledgerRefund pays a pledger their share of the vault after
// the project failed. The share is the vault balance scaled by the pledger's
// total over the totals of pledgers that have not claimed yet, so the last
// claimer receives whatever remains.
func (p *Project) OnProjectFailurePledgerRefund(caller account.Address) error {
	return p.run(caller, true, func(tx *txn) error {
		b := &p.b
		if b.state.get() != StateFailed {
			return ErrProjectNotFailed
		}
		events, ok := b.pledges[caller]
		if !ok {
			return ErrNotAPledger
		}
		if b.claimedRefund[caller] {
			return ErrAlreadyClaimed
		}

		total := pledgedTotal(events)
		outstanding := new(uint256.Int).Sub(b.totalPledged, b.refundedTotal)
		share := proRata(p.vaultBalanceLocked(), total, outstanding)
		b.claimedRefund[caller] = true
		b.refundedTotal = new(uint256.Int).Add(b.refundedTotal, total)
		tx.emit(event.TypeFailureRefund, event.EntityPledger, caller.String(), event.FailureRefundPayload{
			Pledger:          caller.String(),
			ShouldBeRefunded: total.Dec(),
			ActuallyRefunded: share.Dec(),
		})
		return tx.payOut(token.Leg{To: caller, Amount: share})
	})
}

// TransferProjectTokensToPledgerOnProjectSuccess pays a pledger their share
// of the project tokens held by the project after success.
func (p *Project) TransferProjectTokensToPledgerOnProjectSuccess(caller account.Address) error {
	return p.run(caller, true, func(tx *txn) error {
		b := &p.b
		if b.state.get() != StateSucceeded {
			return ErrProjectNotSucceeded
		}
		events, ok := b.pledges[caller]
		if !ok {
			return ErrNotAPledger
		}
		if b.claimedReward[caller] {
			return ErrAlreadyClaimed
		}
		if b.reward == nil {
			return ErrInvalidAddress
		}

		total := pledgedTotal(events)
		unclaimed := new(uint256.Int).Sub(b.totalPledged, b.rewardedTotal)
		reward := proRata(b.reward.BalanceOf(p.address), total, unclaimed)
		b.claimedReward[caller] = true
		b.rewardedTotal = new(uint256.Int).Add(b.rewardedTotal, total)
		tx.emit(event.TypeSuccessTokenTransfer, event.EntityPledger, caller.String(), event.SuccessTokenTransferPayload{
			Pledger: caller.String(),
			Amount:  reward.Dec(),
		})
		if tx.err != nil {
			return tx.err
		}
		return b.reward.Transfer(p.address, caller, reward)
	})
}

// proRata returns pool*part/whole floored, or the whole pool when part is
// everything that is left.
func proRata(pool, part, whole *uint256.Int) *uint256.Int {
	if whole.IsZero() || !part.Lt(whole) {
		return pool.Clone()
	}
	share, overflow := new(uint256.Int).MulDivOverflow(pool, part, whole)
	if overflow {
		return pool.Clone()
	}
	return share
}
