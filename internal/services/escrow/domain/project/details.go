package project

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
)

// UpdateProjectDetails replaces the milestones and minimum pledge, and opens
// a grace period during which existing pledgers may exit. Resolved milestones
// must be passed back unchanged at the same index; they keep their results.
func (p *Project) UpdateProjectDetails(caller account.Address, specs []MilestoneSpec, minPledgedSum *uint256.Int) error {
	return p.run(caller, true, func(tx *txn) error {
		b := &p.b
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if err := tx.requireInProgress(); err != nil {
			return err
		}
		milestones, err := validateSpecs(specs)
		if err != nil {
			return err
		}
		for i, old := range b.milestones {
			if old.Result() == ResultUnresolved {
				continue
			}
			if i >= len(milestones) || !old.MilestoneSpec.equal(milestones[i].MilestoneSpec) {
				return milestoneError(ErrResolvedMilestoneChanged, i)
			}
			milestones[i].result = old.result
		}

		b.milestones = milestones
		b.minPledgedSum = amountOrZero(minPledgedSum).Clone()
		b.graceEnd = tx.now.Add(b.graceWindow)
		tx.emit(event.TypeProjectDetailsChanged, event.EntityProject, p.address.String(), event.DetailsChangedPayload{
			Milestones:    len(milestones),
			MinPledgedSum: b.minPledgedSum.Dec(),
			GraceEndDate:  b.graceEnd.Unix(),
		})

		if b.succeededCount() < len(b.milestones) {
			return nil
		}
		team, cut := b.split(p.vaultBalanceLocked())
		if err := tx.finish(StateSucceeded, len(b.milestones)-1, "", team, cut); err != nil {
			return err
		}
		return tx.payOut(b.legs(team, cut)...)
	})
}

// SetPledgerWaitTimeBeforeGraceExit sets how old a pledge must be before its
// holder may exit during a grace period.
func (p *Project) SetPledgerWaitTimeBeforeGraceExit(caller account.Address, wait time.Duration) error {
	return p.run(caller, true, func(tx *txn) error {
		if err := tx.requireOwner(); err != nil {
			return err
		}
		if wait < 0 {
			return ErrInvalidDuration
		}
		p.b.exitWait = wait
		tx.emit(event.TypeGraceExitWaitTimeChanged, event.EntityProject, p.address.String(), event.GraceExitWaitTimeChangedPayload{
			NewValue: int64(wait / time.Second),
		})
		return nil
	})
}
