package escrow

import (
	"context"
	"fmt"

	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/metadata"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// CallerSigner issues the token that proves a call acts for caller.
type CallerSigner interface {
	Sign(caller string) (string, error)
}

// Client calls escrow.v1.EscrowService with typed messages.
type Client struct {
	conn   grpc.ClientConnInterface
	signer CallerSigner
}

// NewClient wraps a client connection. signer may be nil for clients that
// only read.
func NewClient(conn grpc.ClientConnInterface, signer CallerSigner) *Client {
	return &Client{conn: conn, signer: signer}
}

// Call invokes method as caller. An empty caller makes an anonymous call.
func (c *Client) Call(ctx context.Context, caller, method string, req, resp any) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("escrow client is not configured")
	}
	in, err := Encode(req)
	if err != nil {
		return err
	}
	if caller != "" {
		if c.signer == nil {
			return fmt.Errorf("escrow client cannot act as %s without a signer", caller)
		}
		token, err := c.signer.Sign(caller)
		if err != nil {
			return fmt.Errorf("sign caller token: %w", err)
		}
		ctx = metadata.WithCallerToken(ctx, token)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return Decode(out, resp)
}

// CreatePaymentToken deploys a payment token.
func (c *Client) CreatePaymentToken(ctx context.Context, caller string, req CreatePaymentTokenRequest) (TokenResponse, error) {
	var resp TokenResponse
	err := c.Call(ctx, caller, MethodCreatePaymentToken, req, &resp)
	return resp, err
}

// MintTokens mints tokens to a holder.
func (c *Client) MintTokens(ctx context.Context, caller string, req MintTokensRequest) (BalanceResponse, error) {
	var resp BalanceResponse
	err := c.Call(ctx, caller, MethodMintTokens, req, &resp)
	return resp, err
}

// ApproveAllowance sets an allowance for a spender.
func (c *Client) ApproveAllowance(ctx context.Context, caller string, req ApproveAllowanceRequest) (BalanceResponse, error) {
	var resp BalanceResponse
	err := c.Call(ctx, caller, MethodApproveAllowance, req, &resp)
	return resp, err
}

// GetBalance reads a balance.
func (c *Client) GetBalance(ctx context.Context, req GetBalanceRequest) (BalanceResponse, error) {
	var resp BalanceResponse
	err := c.Call(ctx, "", MethodGetBalance, req, &resp)
	return resp, err
}

// ApprovePaymentToken whitelists a payment token.
func (c *Client) ApprovePaymentToken(ctx context.Context, caller string, req ApprovePaymentTokenRequest) (SettingsResponse, error) {
	var resp SettingsResponse
	err := c.Call(ctx, caller, MethodApprovePaymentToken, req, &resp)
	return resp, err
}

// SetBetaTester grants or revokes beta access.
func (c *Client) SetBetaTester(ctx context.Context, caller string, req SetBetaTesterRequest) (SettingsResponse, error) {
	var resp SettingsResponse
	err := c.Call(ctx, caller, MethodSetBetaTester, req, &resp)
	return resp, err
}

// SetBetaMode toggles beta gating.
func (c *Client) SetBetaMode(ctx context.Context, caller string, req SetBetaModeRequest) (SettingsResponse, error) {
	var resp SettingsResponse
	err := c.Call(ctx, caller, MethodSetBetaMode, req, &resp)
	return resp, err
}

// CreateProject deploys a project.
func (c *Client) CreateProject(ctx context.Context, caller string, req CreateProjectRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodCreateProject, req)
}

// Pledge pledges to a project.
func (c *Client) Pledge(ctx context.Context, caller string, req PledgeRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodPledge, req)
}

// ResolveMilestone records an approver decision.
func (c *Client) ResolveMilestone(ctx context.Context, caller string, req ResolveMilestoneRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodResolveMilestone, req)
}

// CheckOnchainTarget resolves a target milestone when reached.
func (c *Client) CheckOnchainTarget(ctx context.Context, caller string, req MilestoneRequest) (CheckOnchainTargetResponse, error) {
	var resp CheckOnchainTargetResponse
	err := c.Call(ctx, caller, MethodCheckOnchainTarget, req, &resp)
	return resp, err
}

// ReportMilestoneOverdue reports an overdue milestone.
func (c *Client) ReportMilestoneOverdue(ctx context.Context, caller string, req MilestoneRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodReportMilestoneOverdue, req)
}

// UpdateProjectDetails replaces a project's milestones.
func (c *Client) UpdateProjectDetails(ctx context.Context, caller string, req UpdateProjectDetailsRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodUpdateProjectDetails, req)
}

// SetGraceExitWaitTime sets the grace exit wait time.
func (c *Client) SetGraceExitWaitTime(ctx context.Context, caller string, req SetGraceExitWaitTimeRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodSetGraceExitWaitTime, req)
}

// GracePeriodRefund exits a project during its grace period.
func (c *Client) GracePeriodRefund(ctx context.Context, caller string, req ProjectRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodGracePeriodRefund, req)
}

// FailureRefund claims a refund from a failed project.
func (c *Client) FailureRefund(ctx context.Context, caller string, req ProjectRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodFailureRefund, req)
}

// ClaimSuccessTokens claims reward tokens from a successful project.
func (c *Client) ClaimSuccessTokens(ctx context.Context, caller string, req ProjectRequest) (ProjectView, error) {
	return c.projectCall(ctx, caller, MethodClaimSuccessTokens, req)
}

// GetProject reads a project.
func (c *Client) GetProject(ctx context.Context, req ProjectRequest) (ProjectView, error) {
	return c.projectCall(ctx, "", MethodGetProject, req)
}

// ListProjects pages stored project summaries.
func (c *Client) ListProjects(ctx context.Context, req ListProjectsRequest) (ListProjectsResponse, error) {
	var resp ListProjectsResponse
	err := c.Call(ctx, "", MethodListProjects, req, &resp)
	return resp, err
}

// ListProjectEvents pages a project's journal.
func (c *Client) ListProjectEvents(ctx context.Context, req ListProjectEventsRequest) (ListProjectEventsResponse, error) {
	var resp ListProjectEventsResponse
	err := c.Call(ctx, "", MethodListProjectEvents, req, &resp)
	return resp, err
}

func (c *Client) projectCall(ctx context.Context, caller, method string, req any) (ProjectView, error) {
	var resp ProjectResponse
	if err := c.Call(ctx, caller, method, req, &resp); err != nil {
		return ProjectView{}, err
	}
	return resp.Project, nil
}
