package event

// ProjectCreatedPayload captures the payload for project.created events.
type ProjectCreatedPayload struct {
	ProjectAddress string `json:"project_address"`
	VaultAddress   string `json:"vault_address"`
	TeamWallet     string `json:"team_wallet"`
	PaymentToken   string `json:"payment_token"`
	ProjectToken   string `json:"project_token"`
	Milestones     int    `json:"milestones"`
	CID            string `json:"cid,omitempty"`
}

// PledgeAddedPayload captures the payload for pledge.added events.
type PledgeAddedPayload struct {
	Pledger string `json:"pledger"`
	Sum     string `json:"sum"`
}

// DetailsChangedPayload captures the payload for project.details_changed events.
type DetailsChangedPayload struct {
	Milestones    int    `json:"milestones"`
	MinPledgedSum string `json:"min_pledged_sum"`
	GraceEndDate  int64  `json:"grace_end_date"`
}

// GraceExitWaitTimeChangedPayload captures the payload for project.grace_exit_wait_time_changed events.
type GraceExitWaitTimeChangedPayload struct {
	NewValue int64 `json:"new_value"`
}

// GracePeriodRefundPayload captures the payload for pledger.grace_period_refund events.
type GracePeriodRefundPayload struct {
	Pledger          string `json:"pledger"`
	ShouldBeRefunded string `json:"should_be_refunded"`
	ActuallyRefunded string `json:"actually_refunded"`
}

// FailureRefundPayload captures the payload for pledger.failure_refund events.
type FailureRefundPayload struct {
	Pledger          string `json:"pledger"`
	ShouldBeRefunded string `json:"should_be_refunded"`
	ActuallyRefunded string `json:"actually_refunded"`
}

// SuccessTokenTransferPayload captures the payload for pledger.success_token_transfer events.
type SuccessTokenTransferPayload struct {
	Pledger string `json:"pledger"`
	Amount  string `json:"amount"`
}

// MilestoneResolvedPayload captures the payload for milestone.resolved events.
type MilestoneResolvedPayload struct {
	Index          int    `json:"index"`
	Result         string `json:"result"`
	Overdue        bool   `json:"overdue,omitempty"`
	Note           string `json:"note,omitempty"`
	Payout         string `json:"payout,omitempty"`
	PlatformCut    string `json:"platform_cut,omitempty"`
	ResolvedByRule string `json:"resolved_by"`
}

// MilestoneOverdueReportedPayload captures the payload for milestone.overdue_reported events.
type MilestoneOverdueReportedPayload struct {
	Index   int   `json:"index"`
	DueDate int64 `json:"due_date"`
}

// ProjectStateChangedPayload captures the payload for project.state_changed events.
type ProjectStateChangedPayload struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Reason         string `json:"reason,omitempty"`
	MilestoneIndex int    `json:"milestone_index"`
	Swept          string `json:"swept,omitempty"`
	PlatformCut    string `json:"platform_cut,omitempty"`
}
