package escrow

// Amounts are base-10 strings. Times are unix seconds; durations are seconds.

// CreatePaymentTokenRequest deploys a payment token owned by the platform.
type CreatePaymentTokenRequest struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// TokenResponse describes a token ledger.
type TokenResponse struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Owner       string `json:"owner"`
	TotalSupply string `json:"total_supply"`
}

// MintTokensRequest mints Amount of Token to To. Only the token owner may mint.
type MintTokensRequest struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// ApproveAllowanceRequest sets the caller's allowance for Spender.
type ApproveAllowanceRequest struct {
	Token   string `json:"token"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// GetBalanceRequest reads Holder's balance and, when Spender is set, the
// allowance Holder granted Spender.
type GetBalanceRequest struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Spender string `json:"spender,omitempty"`
}

// BalanceResponse reports a holder's standing on a token.
type BalanceResponse struct {
	Token     string `json:"token"`
	Holder    string `json:"holder"`
	Balance   string `json:"balance"`
	Spender   string `json:"spender,omitempty"`
	Allowance string `json:"allowance,omitempty"`
}

// ApprovePaymentTokenRequest whitelists or delists a payment token.
type ApprovePaymentTokenRequest struct {
	Token    string `json:"token"`
	Approved bool   `json:"approved"`
}

// SetBetaTesterRequest grants or revokes beta access.
type SetBetaTesterRequest struct {
	Address string `json:"address"`
	Allowed bool   `json:"allowed"`
}

// SetBetaModeRequest toggles beta gating of project creation.
type SetBetaModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SettingsResponse reports the platform settings.
type SettingsResponse struct {
	Owner                    string   `json:"owner"`
	Wallet                   string   `json:"wallet"`
	PlatformCutPromils       uint16   `json:"platform_cut_promils"`
	BetaMode                 bool     `json:"beta_mode"`
	MinMilestones            int      `json:"min_milestones"`
	MaxMilestones            int      `json:"max_milestones"`
	OnChangeExitGracePeriod  int64    `json:"on_change_exit_grace_period"`
	PledgerGraceExitWaitTime int64    `json:"pledger_grace_exit_wait_time"`
	ApprovedTokens           []string `json:"approved_tokens"`
}

// MilestoneMessage describes a milestone. Exactly one of Approver or the
// target fields is set.
type MilestoneMessage struct {
	Approver       string `json:"approver,omitempty"`
	TargetPledgers uint64 `json:"target_pledgers,omitempty"`
	FundingTarget  string `json:"funding_target,omitempty"`
	Value          string `json:"value"`
	Due            int64  `json:"due"`
	Prereq         *int   `json:"prereq,omitempty"`
}

// CreateProjectRequest deploys a project and vault pair.
type CreateProjectRequest struct {
	TeamWallet         string             `json:"team_wallet"`
	PaymentToken       string             `json:"payment_token"`
	ProjectAddress     string             `json:"project_address,omitempty"`
	Vault              string             `json:"vault,omitempty"`
	ProjectToken       string             `json:"project_token,omitempty"`
	TokenName          string             `json:"token_name"`
	TokenSymbol        string             `json:"token_symbol"`
	InitialTokenSupply string             `json:"initial_token_supply,omitempty"`
	MinPledgedSum      string             `json:"min_pledged_sum"`
	Milestones         []MilestoneMessage `json:"milestones"`
	CID                string             `json:"cid,omitempty"`
}

// ProjectRequest addresses a single project.
type ProjectRequest struct {
	Project string `json:"project"`
}

// PledgeRequest pledges Sum of PaymentToken to Project.
type PledgeRequest struct {
	Project      string `json:"project"`
	Sum          string `json:"sum"`
	PaymentToken string `json:"payment_token"`
}

// ResolveMilestoneRequest records an external approver's decision.
type ResolveMilestoneRequest struct {
	Project   string `json:"project"`
	Index     int    `json:"index"`
	Succeeded bool   `json:"succeeded"`
	Note      string `json:"note,omitempty"`
}

// MilestoneRequest addresses one milestone of a project.
type MilestoneRequest struct {
	Project string `json:"project"`
	Index   int    `json:"index"`
}

// UpdateProjectDetailsRequest replaces milestones and the minimum pledge.
type UpdateProjectDetailsRequest struct {
	Project       string             `json:"project"`
	Milestones    []MilestoneMessage `json:"milestones"`
	MinPledgedSum string             `json:"min_pledged_sum"`
}

// SetGraceExitWaitTimeRequest sets how long a pledge must age before a
// grace exit.
type SetGraceExitWaitTimeRequest struct {
	Project string `json:"project"`
	Seconds int64  `json:"seconds"`
}

// MilestoneView is the read model of one milestone.
type MilestoneView struct {
	Index int `json:"index"`
	MilestoneMessage
	Result  string `json:"result"`
	Overdue bool   `json:"overdue"`
}

// PledgerView is the read model of one active pledger.
type PledgerView struct {
	Address       string `json:"address"`
	Total         string `json:"total"`
	Events        int    `json:"events"`
	FirstPledgeAt int64  `json:"first_pledge_at"`
	ClaimedReward bool   `json:"claimed_reward"`
	ClaimedRefund bool   `json:"claimed_refund"`
}

// FailureView describes why a project failed.
type FailureView struct {
	At             int64  `json:"at"`
	MilestoneIndex int    `json:"milestone_index"`
	Reason         string `json:"reason"`
}

// ProjectView is the live read model of a project.
type ProjectView struct {
	Address             string          `json:"address"`
	Owner               string          `json:"owner"`
	TeamWallet          string          `json:"team_wallet"`
	Platform            string          `json:"platform"`
	Vault               string          `json:"vault"`
	PaymentToken        string          `json:"payment_token"`
	ProjectToken        string          `json:"project_token"`
	State               string          `json:"state"`
	VaultBalance        string          `json:"vault_balance"`
	MinPledgedSum       string          `json:"min_pledged_sum"`
	TotalPledged        string          `json:"total_pledged"`
	NumPledgers         uint64          `json:"num_pledgers"`
	PlatformCutPromils  uint16          `json:"platform_cut_promils"`
	SucceededMilestones int             `json:"succeeded_milestones"`
	Milestones          []MilestoneView `json:"milestones"`
	Pledgers            []PledgerView   `json:"pledgers"`
	GraceEnd            int64           `json:"grace_end,omitempty"`
	GraceExitWait       int64           `json:"grace_exit_wait"`
	StartTime           int64           `json:"start_time"`
	CID                 string          `json:"cid,omitempty"`
	Failure             *FailureView    `json:"failure,omitempty"`
	LastSeq             uint64          `json:"last_seq"`
}

// ProjectResponse wraps a project view.
type ProjectResponse struct {
	Project ProjectView `json:"project"`
}

// CheckOnchainTargetResponse reports whether the target milestone resolved.
type CheckOnchainTargetResponse struct {
	Reached bool        `json:"reached"`
	Project ProjectView `json:"project"`
}

// ListProjectsRequest pages stored project summaries. Filter is an AIP-160
// expression over state, team_wallet, vault, payment_token, project_token,
// num_pledgers, milestones, succeeded_milestones, grace_end, created_at and
// updated_at.
type ListProjectsRequest struct {
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
	State     string `json:"state,omitempty"`
	Filter    string `json:"filter,omitempty"`
}

// ProjectSummaryView is the stored read model of a project.
type ProjectSummaryView struct {
	Address             string `json:"address"`
	TeamWallet          string `json:"team_wallet"`
	State               string `json:"state"`
	Vault               string `json:"vault"`
	PaymentToken        string `json:"payment_token"`
	ProjectToken        string `json:"project_token,omitempty"`
	VaultBalance        string `json:"vault_balance"`
	TotalPledged        string `json:"total_pledged"`
	MinPledgedSum       string `json:"min_pledged_sum"`
	NumPledgers         uint64 `json:"num_pledgers"`
	Milestones          int    `json:"milestones"`
	SucceededMilestones int    `json:"succeeded_milestones"`
	GraceEnd            int64  `json:"grace_end,omitempty"`
	CID                 string `json:"cid,omitempty"`
	LastSeq             uint64 `json:"last_seq"`
	UpdatedAt           int64  `json:"updated_at"`
}

// ListProjectsResponse is one page of project summaries.
type ListProjectsResponse struct {
	Projects      []ProjectSummaryView `json:"projects"`
	NextPageToken string               `json:"next_page_token,omitempty"`
}

// ListProjectEventsRequest pages a project's journal. Filter is an AIP-160
// expression over type, actor_id, entity_type, entity_id, seq and ts.
type ListProjectEventsRequest struct {
	Project   string `json:"project"`
	PageSize  int32  `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
	Filter    string `json:"filter,omitempty"`
}

// EventView is one journal entry.
type EventView struct {
	Seq        uint64         `json:"seq"`
	Hash       string         `json:"hash"`
	Type       string         `json:"type"`
	Timestamp  string         `json:"timestamp"`
	ActorID    string         `json:"actor_id,omitempty"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload"`
}

// ListProjectEventsResponse is one page of journal entries.
type ListProjectEventsResponse struct {
	Events        []EventView `json:"events"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// Empty is returned by calls with no result.
type Empty struct{}
