package project

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
)

// NoPrerequisite marks a milestone without a prerequisite.
const NoPrerequisite = -1

// ApproverKind discriminates how a milestone is resolved.
type ApproverKind uint8

const (
	ApproverUnspecified ApproverKind = iota
	// ApproverExternal milestones are resolved by a designated address.
	ApproverExternal
	// ApproverTarget milestones are resolved once pledge thresholds are met.
	ApproverTarget
)

func (k ApproverKind) String() string {
	switch k {
	case ApproverExternal:
		return "external"
	case ApproverTarget:
		return "target"
	default:
		return "unspecified"
	}
}

// Approver describes who or what can resolve a milestone.
type Approver struct {
	Kind ApproverKind
	// Address is set for external approvers.
	Address account.Address
	// TargetNumPledgers and FundingPTokTarget are set for target approvers.
	// A zero threshold is ignored.
	TargetNumPledgers uint64
	FundingPTokTarget *uint256.Int
}

// ExternalApprover returns an approver resolved by addr.
func ExternalApprover(addr account.Address) Approver {
	return Approver{Kind: ApproverExternal, Address: addr}
}

// TargetApprover returns an approver resolved when either threshold is met.
func TargetApprover(numPledgers uint64, funding *uint256.Int) Approver {
	return Approver{Kind: ApproverTarget, TargetNumPledgers: numPledgers, FundingPTokTarget: funding}
}

func (a Approver) valid() bool {
	switch a.Kind {
	case ApproverExternal:
		return !a.Address.IsZero()
	case ApproverTarget:
		return a.TargetNumPledgers > 0 || (a.FundingPTokTarget != nil && !a.FundingPTokTarget.IsZero())
	default:
		return false
	}
}

func (a Approver) equal(b Approver) bool {
	if a.Kind != b.Kind || a.Address != b.Address || a.TargetNumPledgers != b.TargetNumPledgers {
		return false
	}
	return amountOrZero(a.FundingPTokTarget).Eq(amountOrZero(b.FundingPTokTarget))
}

// MilestoneSpec is the definition of a milestone supplied at initialization
// or on a details update.
type MilestoneSpec struct {
	Approver  Approver
	PrereqInd int
	PTokValue *uint256.Int
	DueDate   time.Time
}

func (s MilestoneSpec) equal(o MilestoneSpec) bool {
	return s.Approver.equal(o.Approver) &&
		s.PrereqInd == o.PrereqInd &&
		amountOrZero(s.PTokValue).Eq(amountOrZero(o.PTokValue)) &&
		s.DueDate.Equal(o.DueDate)
}

// Milestone is a milestone definition plus its write-once result.
type Milestone struct {
	MilestoneSpec
	result resultCell
}

// Result returns the milestone outcome.
func (m Milestone) Result() Result { return m.result.get() }

// overdue reports whether the milestone is unresolved and past due at now.
func (m Milestone) overdue(now time.Time) bool {
	return m.result.get() == ResultUnresolved && now.After(m.DueDate)
}

// validateSpecs checks a milestone list and returns normalized copies.
func validateSpecs(specs []MilestoneSpec) ([]Milestone, error) {
	if len(specs) == 0 {
		return nil, ErrNoMilestones
	}
	milestones := make([]Milestone, len(specs))
	for i, spec := range specs {
		if !spec.Approver.valid() {
			return nil, milestoneError(ErrInvalidApprover, i)
		}
		if spec.PrereqInd < NoPrerequisite || spec.PrereqInd >= len(specs) || spec.PrereqInd == i {
			return nil, milestoneError(ErrInvalidPrerequisite, i)
		}
		if spec.DueDate.IsZero() {
			return nil, milestoneError(ErrInvalidMilestone, i)
		}
		spec.PTokValue = amountOrZero(spec.PTokValue).Clone()
		if spec.Approver.FundingPTokTarget != nil {
			spec.Approver.FundingPTokTarget = spec.Approver.FundingPTokTarget.Clone()
		}
		spec.DueDate = spec.DueDate.UTC()
		milestones[i] = Milestone{MilestoneSpec: spec}
	}
	for i := range specs {
		if prerequisiteCycle(specs, i) {
			return nil, milestoneError(ErrInvalidPrerequisite, i)
		}
	}
	return milestones, nil
}

// prerequisiteCycle reports whether following prerequisites from start loops.
func prerequisiteCycle(specs []MilestoneSpec, start int) bool {
	current := specs[start].PrereqInd
	for steps := 0; current != NoPrerequisite; steps++ {
		if current == start || steps >= len(specs) {
			return true
		}
		current = specs[current].PrereqInd
	}
	return false
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
