package project

import (
	"strconv"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
)

// Resolution sources recorded on milestone.resolved events.
const (
	resolvedByApprover = "approver"
	resolvedByTarget   = "target"
)

var promilsDenominator = uint256.NewInt(1000)

// OnExternalApproverResolve records the designated approver's verdict on
// milestone index. A milestone past its due date fails regardless of
// succeeded and takes the project down with it; that case returns nil.
func (p *Project) OnExternalApproverResolve(caller account.Address, index int, succeeded bool, note string) error {
	return p.run(caller, true, func(tx *txn) error {
		if err := tx.requireInProgress(); err != nil {
			return err
		}
		m, err := p.b.milestone(index)
		if err != nil {
			return err
		}
		if m.Approver.Kind != ApproverExternal || caller.IsZero() || caller != m.Approver.Address {
			return ErrUnauthorized
		}
		if m.Result() != ResultUnresolved {
			return milestoneError(ErrMilestoneAlreadyResolved, index)
		}
		return tx.resolve(index, succeeded, note, resolvedByApprover)
	})
}

// CheckIfOnchainTargetWasReached resolves a target milestone when the number
// of pledgers or the pledged total meets its threshold. It reports whether the
// milestone succeeded; false with a nil error means nothing changed, or the
// milestone was overdue and the project failed.
func (p *Project) CheckIfOnchainTargetWasReached(caller account.Address, index int) (bool, error) {
	reached := false
	err := p.run(caller, true, func(tx *txn) error {
		if err := tx.requireInProgress(); err != nil {
			return err
		}
		m, err := p.b.milestone(index)
		if err != nil {
			return err
		}
		if m.Approver.Kind != ApproverTarget {
			return milestoneError(ErrMilestoneNotOnchain, index)
		}
		if m.Result() != ResultUnresolved {
			return milestoneError(ErrMilestoneAlreadyResolved, index)
		}
		if m.overdue(tx.now) {
			return tx.failMilestone(index, ReasonOverdue, "", resolvedByTarget)
		}
		if !p.b.targetReached(m.Approver) {
			return nil
		}
		if err := tx.resolve(index, true, "", resolvedByTarget); err != nil {
			return err
		}
		reached = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reached, nil
}

// OnMilestoneOverdue reports an overdue milestone. It never resolves it.
func (p *Project) OnMilestoneOverdue(caller account.Address, index int) error {
	return p.run(caller, true, func(tx *txn) error {
		m, err := p.b.milestone(index)
		if err != nil {
			return err
		}
		if !m.overdue(tx.now) {
			return milestoneError(ErrMilestoneNotOverdue, index)
		}
		tx.emit(event.TypeMilestoneOverdueReported, event.EntityMilestone, milestoneEntityID(p.address, index), event.MilestoneOverdueReportedPayload{
			Index:   index,
			DueDate: m.DueDate.Unix(),
		})
		return nil
	})
}

func (b *book) targetReached(a Approver) bool {
	if a.TargetNumPledgers > 0 && b.numPledgers >= a.TargetNumPledgers {
		return true
	}
	if a.FundingPTokTarget != nil && !a.FundingPTokTarget.IsZero() && !b.totalPledged.Lt(a.FundingPTokTarget) {
		return true
	}
	return false
}

// resolve applies the overdue, prerequisite and funding rules to an
// unresolved milestone.
func (tx *txn) resolve(index int, succeeded bool, note, by string) error {
	b := &tx.p.b
	m := &b.milestones[index]
	if m.overdue(tx.now) {
		return tx.failMilestone(index, ReasonOverdue, note, by)
	}
	if m.PrereqInd != NoPrerequisite && b.milestones[m.PrereqInd].Result() != ResultSucceeded {
		return prerequisiteError(index, m.PrereqInd)
	}
	if !succeeded {
		return tx.failMilestone(index, ReasonRejected, note, by)
	}

	balance := tx.p.vaultBalanceLocked()
	if balance.Lt(m.PTokValue) {
		return milestoneError(ErrInsufficientVaultFunds, index)
	}
	if err := m.result.resolve(ResultSucceeded); err != nil {
		return err
	}
	team, cut := b.split(m.PTokValue)
	tx.emit(event.TypeMilestoneResolved, event.EntityMilestone, milestoneEntityID(tx.p.address, index), event.MilestoneResolvedPayload{
		Index:          index,
		Result:         ResultSucceeded.String(),
		Note:           note,
		Payout:         team.Dec(),
		PlatformCut:    cut.Dec(),
		ResolvedByRule: by,
	})

	if b.succeededCount() < len(b.milestones) {
		return tx.payOut(b.legs(team, cut)...)
	}
	// Success releases everything left in the vault, not just this milestone.
	team, cut = b.split(balance)
	if err := tx.finish(StateSucceeded, index, "", team, cut); err != nil {
		return err
	}
	return tx.payOut(b.legs(team, cut)...)
}

// failMilestone fails milestone index and the project. The vault is left
// untouched for refunds.
func (tx *txn) failMilestone(index int, reason, note, by string) error {
	m := &tx.p.b.milestones[index]
	if err := m.result.resolve(ResultFailed); err != nil {
		return err
	}
	tx.emit(event.TypeMilestoneResolved, event.EntityMilestone, milestoneEntityID(tx.p.address, index), event.MilestoneResolvedPayload{
		Index:          index,
		Result:         ResultFailed.String(),
		Overdue:        reason == ReasonOverdue,
		Note:           note,
		ResolvedByRule: by,
	})
	return tx.finish(StateFailed, index, reason, nil, nil)
}

// split divides amount into the team share and the platform cut (floored).
func (b *book) split(amount *uint256.Int) (team, cut *uint256.Int) {
	cut, _ = new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(uint64(b.platformCut)), promilsDenominator)
	team = new(uint256.Int).Sub(amount, cut)
	return team, cut
}

func (b *book) legs(team, cut *uint256.Int) []token.Leg {
	legs := []token.Leg{{To: b.teamWallet, Amount: team}}
	if !cut.IsZero() {
		legs = append(legs, token.Leg{To: b.platform, Amount: cut})
	}
	return legs
}

func milestoneEntityID(project account.Address, index int) string {
	return project.String() + "/" + strconv.Itoa(index)
}
