// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Initialization errors
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeNotInitialized     Code = "NOT_INITIALIZED"

	// Authorization errors
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeNotAPledger        Code = "NOT_A_PLEDGER"
	CodeBetaTesterRequired Code = "BETA_TESTER_REQUIRED"

	// Authentication errors
	CodeCallerTokenInvalid Code = "CALLER_TOKEN_INVALID"
	CodeCallerTokenExpired Code = "CALLER_TOKEN_EXPIRED"

	// Validation errors
	CodeInvalidAddress      Code = "INVALID_ADDRESS"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeInvalidMilestone    Code = "INVALID_MILESTONE"
	CodeInvalidApprover     Code = "INVALID_APPROVER"
	CodeInvalidPrerequisite Code = "INVALID_PREREQUISITE"
	CodeInvalidPlatformCut  Code = "INVALID_PLATFORM_CUT"
	CodeInvalidDuration     Code = "INVALID_DURATION"
	CodeMilestoneCount      Code = "MILESTONE_COUNT_OUT_OF_RANGE"
	CodeInvalidFilter       Code = "INVALID_FILTER"

	// Bounds errors
	CodeMilestoneIndexOutOfRange Code = "MILESTONE_INDEX_OUT_OF_RANGE"
	CodePledgeIndexOutOfRange    Code = "PLEDGE_INDEX_OUT_OF_RANGE"

	// Precondition errors
	CodePledgeBelowMinimum       Code = "PLEDGE_BELOW_MINIMUM"
	CodeInsufficientAllowance    Code = "INSUFFICIENT_ALLOWANCE"
	CodeInsufficientBalance      Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientVaultFunds   Code = "INSUFFICIENT_VAULT_FUNDS"
	CodePaymentTokenMismatch     Code = "PAYMENT_TOKEN_MISMATCH"
	CodePaymentTokenNotApproved  Code = "PAYMENT_TOKEN_NOT_APPROVED"
	CodePrerequisiteUnresolved   Code = "PREREQUISITE_UNRESOLVED"
	CodeMilestoneAlreadyResolved Code = "MILESTONE_ALREADY_RESOLVED"
	CodeMilestoneNotOnchain      Code = "MILESTONE_NOT_ONCHAIN"
	CodeMilestoneNotOverdue      Code = "MILESTONE_NOT_OVERDUE"
	CodeResolvedMilestoneChanged Code = "RESOLVED_MILESTONE_CHANGED"
	CodeGracePeriodInactive      Code = "GRACE_PERIOD_INACTIVE"
	CodePledgeTooRecent          Code = "PLEDGE_TOO_RECENT"
	CodeAlreadyClaimed           Code = "ALREADY_CLAIMED"
	CodeVaultInUse               Code = "VAULT_IN_USE"
	CodeAmountOverflow           Code = "AMOUNT_OVERFLOW"

	// Terminal-state errors
	CodeProjectNotInProgress Code = "PROJECT_NOT_IN_PROGRESS"
	CodeProjectNotFailed     Code = "PROJECT_NOT_FAILED"
	CodeProjectNotSucceeded  Code = "PROJECT_NOT_SUCCEEDED"
	CodeStateAlreadyTerminal Code = "STATE_ALREADY_TERMINAL"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidAddress,
		CodeInvalidAmount,
		CodeInvalidMilestone,
		CodeInvalidApprover,
		CodeInvalidPrerequisite,
		CodeInvalidPlatformCut,
		CodeInvalidDuration,
		CodeMilestoneCount,
		CodeInvalidFilter,
		CodePaymentTokenMismatch,
		CodeMilestoneNotOnchain:
		return codes.InvalidArgument

	// OutOfRange - index outside the addressed sequence
	case CodeMilestoneIndexOutOfRange,
		CodePledgeIndexOutOfRange:
		return codes.OutOfRange

	// Unauthenticated - caller identity could not be established
	case CodeCallerTokenInvalid,
		CodeCallerTokenExpired:
		return codes.Unauthenticated

	// PermissionDenied - caller lacks the capability
	case CodeUnauthorized,
		CodeNotAPledger,
		CodeBetaTesterRequired:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeNotInitialized,
		CodePledgeBelowMinimum,
		CodeInsufficientAllowance,
		CodeInsufficientBalance,
		CodeInsufficientVaultFunds,
		CodePaymentTokenNotApproved,
		CodePrerequisiteUnresolved,
		CodeMilestoneAlreadyResolved,
		CodeMilestoneNotOverdue,
		CodeResolvedMilestoneChanged,
		CodeGracePeriodInactive,
		CodePledgeTooRecent,
		CodeAlreadyClaimed,
		CodeVaultInUse,
		CodeAmountOverflow,
		CodeProjectNotInProgress,
		CodeProjectNotFailed,
		CodeProjectNotSucceeded,
		CodeStateAlreadyTerminal:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - one-time capability already used
	case CodeAlreadyInitialized,
		CodeAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
