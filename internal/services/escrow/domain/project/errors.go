package project

import (
	"strconv"

	"github.com/holiman/uint256"
	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
)

var (
	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = apperrors.New(apperrors.CodeAlreadyInitialized, "can only be initialized once")
	// ErrNotInitialized indicates an operation on a project that was never initialized.
	ErrNotInitialized = apperrors.New(apperrors.CodeNotInitialized, "project is not initialized")
	// ErrUnauthorized indicates the caller lacks the role the operation requires.
	ErrUnauthorized = apperrors.New(apperrors.CodeUnauthorized, "caller is not authorized")
	// ErrNotAPledger indicates the caller holds no active pledge.
	ErrNotAPledger = apperrors.New(apperrors.CodeNotAPledger, "caller is not a pledger")
	// ErrInvalidAddress indicates a required address is missing.
	ErrInvalidAddress = apperrors.New(apperrors.CodeInvalidAddress, "address is required")
	// ErrInvalidAmount indicates a missing or zero amount.
	ErrInvalidAmount = apperrors.New(apperrors.CodeInvalidAmount, "amount is invalid")
	// ErrNoMilestones indicates an empty milestone list.
	ErrNoMilestones = apperrors.WithMetadata(apperrors.CodeMilestoneCount, "at least one milestone is required", map[string]string{"Min": "1", "Max": "-"})
	// ErrInvalidMilestone indicates a malformed milestone definition.
	ErrInvalidMilestone = apperrors.New(apperrors.CodeInvalidMilestone, "milestone is invalid")
	// ErrInvalidApprover indicates an approver descriptor that cannot resolve anything.
	ErrInvalidApprover = apperrors.New(apperrors.CodeInvalidApprover, "milestone approver is invalid")
	// ErrInvalidPrerequisite indicates a prerequisite index out of range or self-referencing.
	ErrInvalidPrerequisite = apperrors.New(apperrors.CodeInvalidPrerequisite, "milestone prerequisite is invalid")
	// ErrInvalidPlatformCut indicates a cut above 1000 promils.
	ErrInvalidPlatformCut = apperrors.New(apperrors.CodeInvalidPlatformCut, "platform cut must not exceed 1000 promils")
	// ErrInvalidDuration indicates a negative duration.
	ErrInvalidDuration = apperrors.New(apperrors.CodeInvalidDuration, "duration must not be negative")
	// ErrMilestoneIndexOutOfRange indicates an index outside the milestone list.
	ErrMilestoneIndexOutOfRange = apperrors.New(apperrors.CodeMilestoneIndexOutOfRange, "milestone index out of range")
	// ErrPledgeIndexOutOfRange indicates an index outside a pledger's events.
	ErrPledgeIndexOutOfRange = apperrors.New(apperrors.CodePledgeIndexOutOfRange, "pledge index out of range")
	// ErrPledgeBelowMinimum indicates a pledge smaller than the minimum.
	ErrPledgeBelowMinimum = apperrors.New(apperrors.CodePledgeBelowMinimum, "pledge must exceed min token count")
	// ErrInsufficientAllowance indicates the pledger did not approve enough tokens.
	ErrInsufficientAllowance = apperrors.New(apperrors.CodeInsufficientAllowance, "allowance is below the pledged sum")
	// ErrInsufficientVaultFunds indicates a payout larger than the vault balance.
	ErrInsufficientVaultFunds = apperrors.New(apperrors.CodeInsufficientVaultFunds, "vault balance is below the milestone value")
	// ErrPaymentTokenMismatch indicates a pledge in a token other than the configured one.
	ErrPaymentTokenMismatch = apperrors.New(apperrors.CodePaymentTokenMismatch, "payment token does not match")
	// ErrPrerequisiteUnresolved indicates the prerequisite milestone has not succeeded.
	ErrPrerequisiteUnresolved = apperrors.New(apperrors.CodePrerequisiteUnresolved, "prerequisite milestone has not succeeded")
	// ErrMilestoneAlreadyResolved indicates a second resolution attempt.
	ErrMilestoneAlreadyResolved = apperrors.New(apperrors.CodeMilestoneAlreadyResolved, "milestone already resolved")
	// ErrMilestoneNotOnchain indicates a target check on an approver milestone.
	ErrMilestoneNotOnchain = apperrors.New(apperrors.CodeMilestoneNotOnchain, "milestone not onchain")
	// ErrMilestoneNotOverdue indicates an overdue report for a milestone that is not overdue.
	ErrMilestoneNotOverdue = apperrors.New(apperrors.CodeMilestoneNotOverdue, "milestone is not overdue")
	// ErrResolvedMilestoneChanged indicates a details update touching a resolved milestone.
	ErrResolvedMilestoneChanged = apperrors.New(apperrors.CodeResolvedMilestoneChanged, "resolved milestones cannot change")
	// ErrGracePeriodInactive indicates a grace exit outside the grace window.
	ErrGracePeriodInactive = apperrors.New(apperrors.CodeGracePeriodInactive, "grace period is not active")
	// ErrPledgeTooRecent indicates a grace exit before the exit wait time elapsed.
	ErrPledgeTooRecent = apperrors.New(apperrors.CodePledgeTooRecent, "pledge is too recent for a grace exit")
	// ErrAlreadyClaimed indicates a second refund or reward claim.
	ErrAlreadyClaimed = apperrors.New(apperrors.CodeAlreadyClaimed, "already claimed")
	// ErrAmountOverflow indicates an accumulated amount that no longer fits 256 bits.
	ErrAmountOverflow = apperrors.New(apperrors.CodeAmountOverflow, "amount overflow")
	// ErrProjectNotInProgress indicates an operation rejected in a terminal state.
	ErrProjectNotInProgress = apperrors.New(apperrors.CodeProjectNotInProgress, "project is not in progress")
	// ErrProjectNotFailed indicates a failure refund before the project failed.
	ErrProjectNotFailed = apperrors.New(apperrors.CodeProjectNotFailed, "project has not failed")
	// ErrProjectNotSucceeded indicates a reward claim before the project succeeded.
	ErrProjectNotSucceeded = apperrors.New(apperrors.CodeProjectNotSucceeded, "project has not succeeded")
	// ErrStateAlreadyTerminal indicates a second terminal transition.
	ErrStateAlreadyTerminal = apperrors.New(apperrors.CodeStateAlreadyTerminal, "project state is already terminal")
)

func indexMeta(index int) map[string]string {
	return map[string]string{"Index": strconv.Itoa(index)}
}

func milestoneIndexError(index int) error {
	return apperrors.WithMetadata(apperrors.CodeMilestoneIndexOutOfRange, "milestone index out of range", indexMeta(index))
}

func milestoneError(base *apperrors.Error, index int) error {
	return apperrors.WithMetadata(base.Code, base.Message, indexMeta(index))
}

func prerequisiteError(index, prereq int) error {
	meta := indexMeta(index)
	meta["Prerequisite"] = strconv.Itoa(prereq)
	return apperrors.WithMetadata(apperrors.CodePrerequisiteUnresolved, "prerequisite milestone has not succeeded", meta)
}

func belowMinimumError(minimum *uint256.Int) error {
	return apperrors.WithMetadata(apperrors.CodePledgeBelowMinimum, "pledge must exceed min token count", map[string]string{"Minimum": minimum.Dec()})
}

func allowanceError(required *uint256.Int) error {
	return apperrors.WithMetadata(apperrors.CodeInsufficientAllowance, "allowance is below the pledged sum", map[string]string{"Required": required.Dec()})
}
