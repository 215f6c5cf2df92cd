package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeAlreadyInitialized       = "ALREADY_INITIALIZED"
	CodeNotInitialized           = "NOT_INITIALIZED"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeNotAPledger              = "NOT_A_PLEDGER"
	CodeBetaTesterRequired       = "BETA_TESTER_REQUIRED"
	CodeCallerTokenInvalid       = "CALLER_TOKEN_INVALID"
	CodeCallerTokenExpired       = "CALLER_TOKEN_EXPIRED"
	CodeInvalidFilter            = "INVALID_FILTER"
	CodeInvalidAddress           = "INVALID_ADDRESS"
	CodeInvalidAmount            = "INVALID_AMOUNT"
	CodeInvalidMilestone         = "INVALID_MILESTONE"
	CodeInvalidApprover          = "INVALID_APPROVER"
	CodeInvalidPrerequisite      = "INVALID_PREREQUISITE"
	CodeInvalidPlatformCut       = "INVALID_PLATFORM_CUT"
	CodeInvalidDuration          = "INVALID_DURATION"
	CodeMilestoneCount           = "MILESTONE_COUNT_OUT_OF_RANGE"
	CodeMilestoneIndexOutOfRange = "MILESTONE_INDEX_OUT_OF_RANGE"
	CodePledgeIndexOutOfRange    = "PLEDGE_INDEX_OUT_OF_RANGE"
	CodePledgeBelowMinimum       = "PLEDGE_BELOW_MINIMUM"
	CodeInsufficientAllowance    = "INSUFFICIENT_ALLOWANCE"
	CodeInsufficientBalance      = "INSUFFICIENT_BALANCE"
	CodeInsufficientVaultFunds   = "INSUFFICIENT_VAULT_FUNDS"
	CodePaymentTokenMismatch     = "PAYMENT_TOKEN_MISMATCH"
	CodePaymentTokenNotApproved  = "PAYMENT_TOKEN_NOT_APPROVED"
	CodePrerequisiteUnresolved   = "PREREQUISITE_UNRESOLVED"
	CodeMilestoneAlreadyResolved = "MILESTONE_ALREADY_RESOLVED"
	CodeMilestoneNotOnchain      = "MILESTONE_NOT_ONCHAIN"
	CodeMilestoneNotOverdue      = "MILESTONE_NOT_OVERDUE"
	CodeResolvedMilestoneChanged = "RESOLVED_MILESTONE_CHANGED"
	CodeGracePeriodInactive      = "GRACE_PERIOD_INACTIVE"
	CodePledgeTooRecent          = "PLEDGE_TOO_RECENT"
	CodeAlreadyClaimed           = "ALREADY_CLAIMED"
	CodeVaultInUse               = "VAULT_IN_USE"
	CodeAmountOverflow           = "AMOUNT_OVERFLOW"
	CodeProjectNotInProgress     = "PROJECT_NOT_IN_PROGRESS"
	CodeProjectNotFailed         = "PROJECT_NOT_FAILED"
	CodeProjectNotSucceeded      = "PROJECT_NOT_SUCCEEDED"
	CodeStateAlreadyTerminal     = "STATE_ALREADY_TERMINAL"
	CodeNotFound                 = "NOT_FOUND"
	CodeAlreadyExists            = "ALREADY_EXISTS"
)

var enUSMessages = map[Code]string{
	CodeAlreadyInitialized:       "This contract can only be initialized once.",
	CodeNotInitialized:           "This contract has not been initialized yet.",
	CodeUnauthorized:             "You are not allowed to perform this operation.",
	CodeNotAPledger:              "Only active pledgers can perform this operation.",
	CodeBetaTesterRequired:       "Project creation is limited to beta testers.",
	CodeCallerTokenInvalid:       "The caller token is not valid.",
	CodeCallerTokenExpired:       "The caller token has expired.",
	CodeInvalidFilter:            "The filter {{.Filter}} is not valid.",
	CodeInvalidAddress:           "The address {{.Address}} is not valid.",
	CodeInvalidAmount:            "The amount {{.Amount}} is not valid.",
	CodeInvalidMilestone:         "Milestone {{.Index}} is not valid.",
	CodeInvalidApprover:          "Milestone {{.Index}} needs an approver or an on-chain target.",
	CodeInvalidPrerequisite:      "Milestone {{.Index}} refers to an invalid prerequisite.",
	CodeInvalidPlatformCut:       "The platform cut must be between 0 and 1000 promils.",
	CodeInvalidDuration:          "The duration must not be negative or exceed the supported range.",
	CodeMilestoneCount:           "A project needs between {{.Min}} and {{.Max}} milestones.",
	CodeMilestoneIndexOutOfRange: "Milestone {{.Index}} does not exist.",
	CodePledgeIndexOutOfRange:    "Pledge {{.Index}} does not exist.",
	CodePledgeBelowMinimum:       "The pledge must be at least {{.Minimum}}.",
	CodeInsufficientAllowance:    "Approve at least {{.Required}} tokens before pledging.",
	CodeInsufficientBalance:      "The account balance is too low for this transfer.",
	CodeInsufficientVaultFunds:   "The project vault does not hold enough funds for milestone {{.Index}}.",
	CodePaymentTokenMismatch:     "This project only accepts its configured payment token.",
	CodePaymentTokenNotApproved:  "The payment token is not approved by the platform.",
	CodePrerequisiteUnresolved:   "Milestone {{.Prerequisite}} must succeed first.",
	CodeMilestoneAlreadyResolved: "Milestone {{.Index}} was already resolved.",
	CodeMilestoneNotOnchain:      "Milestone {{.Index}} is not resolved by on-chain targets.",
	CodeMilestoneNotOverdue:      "Milestone {{.Index}} is not overdue.",
	CodeResolvedMilestoneChanged: "Resolved milestone {{.Index}} cannot be changed.",
	CodeGracePeriodInactive:      "There is no active grace period.",
	CodePledgeTooRecent:          "Your pledge is too recent to exit during this grace period.",
	CodeAlreadyClaimed:           "This claim was already made.",
	CodeVaultInUse:               "The vault is already bound to a project.",
	CodeAmountOverflow:           "The amount is too large.",
	CodeProjectNotInProgress:     "The project is no longer in progress.",
	CodeProjectNotFailed:         "Refunds are only available for failed projects.",
	CodeProjectNotSucceeded:      "Rewards are only available for successful projects.",
	CodeStateAlreadyTerminal:     "The project already reached a final state.",
	CodeNotFound:                 "The requested resource was not found.",
	CodeAlreadyExists:            "The resource already exists.",
}
