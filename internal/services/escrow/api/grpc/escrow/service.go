package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	apperrors "github.com/louisbranch/commongood/internal/platform/errors"
	"github.com/louisbranch/commongood/internal/platform/grpc/pagination"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/metadata"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/factory"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
	"github.com/louisbranch/commongood/internal/services/escrow/storage"
	"github.com/louisbranch/commongood/internal/services/escrow/storage/filter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultListProjectsPageSize = 20
	maxListProjectsPageSize     = 100
	defaultListEventsPageSize   = 50
	maxListEventsPageSize       = 200

	tracerName = "github.com/louisbranch/commongood/internal/services/escrow/api/grpc/escrow"
)

// Service exposes escrow.v1 gRPC operations.
type Service struct {
	factory   *factory.Factory
	events    storage.EventStore
	summaries storage.SummaryStore
	tracer    trace.Tracer
}

// NewService creates an escrow service over the platform registry and the
// journal stores.
func NewService(f *factory.Factory, events storage.EventStore, summaries storage.SummaryStore) *Service {
	return &Service{
		factory:   f,
		events:    events,
		summaries: summaries,
		tracer:    otel.Tracer(tracerName),
	}
}

// handle runs one call inside a span, resolves the caller when required and
// converts the result to a Struct.
func (s *Service) handle(ctx context.Context, method string, needCaller bool, in *structpb.Struct, req any, fn func(ctx context.Context, caller account.Address) (any, error)) (*structpb.Struct, error) {
	if s == nil || s.factory == nil {
		return nil, status.Error(codes.Internal, "escrow factory is not configured")
	}
	ctx, span := s.tracer.Start(ctx, "escrow."+method)
	defer span.End()

	if req != nil {
		if err := decodeRequest(in, req); err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
	}
	var caller account.Address
	if needCaller {
		var err error
		caller, err = callerFromContext(ctx)
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			return nil, err
		}
		span.SetAttributes(attribute.String("escrow.caller", caller.String()))
	}

	out, err := fn(ctx, caller)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, toStatus(ctx, err)
	}
	return encodeResponse(out)
}

func callerFromContext(ctx context.Context) (account.Address, error) {
	caller := metadata.CallerFromContext(ctx)
	if caller.IsZero() {
		return account.Zero, status.Error(codes.Unauthenticated, "a caller token is required")
	}
	return caller, nil
}

// CreatePaymentToken deploys a payment token owned by the platform owner.
func (s *Service) CreatePaymentToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreatePaymentTokenRequest
	return s.handle(ctx, MethodCreatePaymentToken, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		name := strings.TrimSpace(req.Name)
		symbol := strings.TrimSpace(req.Symbol)
		if name == "" || symbol == "" {
			return nil, status.Error(codes.InvalidArgument, "token name and symbol are required")
		}
		ledger, err := s.factory.NewPaymentToken(caller, name, symbol)
		if err != nil {
			return nil, err
		}
		return tokenResponse(ledger), nil
	})
}

// MintTokens mints tokens. Only the ledger owner may mint.
func (s *Service) MintTokens(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req MintTokensRequest
	return s.handle(ctx, MethodMintTokens, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		ledger, err := s.ledger(req.Token)
		if err != nil {
			return nil, err
		}
		to, err := parseRequiredAddress(req.To)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		if err := ledger.Mint(caller, to, amount); err != nil {
			return nil, err
		}
		return BalanceResponse{
			Token:   ledger.Address().String(),
			Holder:  to.String(),
			Balance: ledger.BalanceOf(to).Dec(),
		}, nil
	})
}

// ApproveAllowance sets the caller's allowance for a spender.
func (s *Service) ApproveAllowance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ApproveAllowanceRequest
	return s.handle(ctx, MethodApproveAllowance, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		ledger, err := s.ledger(req.Token)
		if err != nil {
			return nil, err
		}
		spender, err := parseRequiredAddress(req.Spender)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, err
		}
		if err := ledger.Approve(caller, spender, amount); err != nil {
			return nil, err
		}
		return BalanceResponse{
			Token:     ledger.Address().String(),
			Holder:    caller.String(),
			Balance:   ledger.BalanceOf(caller).Dec(),
			Spender:   spender.String(),
			Allowance: ledger.Allowance(caller, spender).Dec(),
		}, nil
	})
}

// GetBalance reads a balance and optionally an allowance.
func (s *Service) GetBalance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req GetBalanceRequest
	return s.handle(ctx, MethodGetBalance, false, in, &req, func(ctx context.Context, _ account.Address) (any, error) {
		ledger, err := s.ledger(req.Token)
		if err != nil {
			return nil, err
		}
		holder, err := parseRequiredAddress(req.Holder)
		if err != nil {
			return nil, err
		}
		resp := BalanceResponse{
			Token:   ledger.Address().String(),
			Holder:  holder.String(),
			Balance: ledger.BalanceOf(holder).Dec(),
		}
		if strings.TrimSpace(req.Spender) != "" {
			spender, err := parseRequiredAddress(req.Spender)
			if err != nil {
				return nil, err
			}
			resp.Spender = spender.String()
			resp.Allowance = ledger.Allowance(holder, spender).Dec()
		}
		return resp, nil
	})
}

// ApprovePaymentToken whitelists or delists a payment token.
func (s *Service) ApprovePaymentToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ApprovePaymentTokenRequest
	return s.handle(ctx, MethodApprovePaymentToken, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		addr, err := parseRequiredAddress(req.Token)
		if err != nil {
			return nil, err
		}
		if err := s.factory.ApprovePaymentToken(caller, addr, req.Approved); err != nil {
			return nil, err
		}
		return settingsResponse(s.factory.Settings()), nil
	})
}

// SetBetaTester grants or revokes beta access.
func (s *Service) SetBetaTester(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SetBetaTesterRequest
	return s.handle(ctx, MethodSetBetaTester, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		addr, err := parseRequiredAddress(req.Address)
		if err != nil {
			return nil, err
		}
		if err := s.factory.SetBetaTester(caller, addr, req.Allowed); err != nil {
			return nil, err
		}
		return settingsResponse(s.factory.Settings()), nil
	})
}

// SetBetaMode toggles beta gating.
func (s *Service) SetBetaMode(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SetBetaModeRequest
	return s.handle(ctx, MethodSetBetaMode, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		if err := s.factory.SetBetaMode(caller, req.Enabled); err != nil {
			return nil, err
		}
		return settingsResponse(s.factory.Settings()), nil
	})
}

// CreateProject deploys and initializes a project and vault pair.
func (s *Service) CreateProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CreateProjectRequest
	return s.handle(ctx, MethodCreateProject, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		params, err := createParams(req)
		if err != nil {
			return nil, err
		}
		p, err := s.factory.CreateProject(caller, params)
		if err != nil {
			return nil, err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("escrow.project", p.Address().String()))
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// Pledge pledges payment tokens to a project.
func (s *Service) Pledge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PledgeRequest
	return s.handle(ctx, MethodPledge, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		sum, err := parseAmount(req.Sum)
		if err != nil {
			return nil, err
		}
		paymentToken, err := parseRequiredAddress(req.PaymentToken)
		if err != nil {
			return nil, err
		}
		if err := p.NewPledge(caller, sum, paymentToken); err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// ResolveMilestone records an external approver decision.
func (s *Service) ResolveMilestone(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ResolveMilestoneRequest
	return s.handle(ctx, MethodResolveMilestone, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		if err := p.OnExternalApproverResolve(caller, req.Index, req.Succeeded, req.Note); err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// CheckOnchainTarget resolves a target milestone when its thresholds are met.
func (s *Service) CheckOnchainTarget(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req MilestoneRequest
	return s.handle(ctx, MethodCheckOnchainTarget, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		reached, err := p.CheckIfOnchainTargetWasReached(caller, req.Index)
		if err != nil {
			return nil, err
		}
		return CheckOnchainTargetResponse{Reached: reached, Project: projectView(p.Snapshot())}, nil
	})
}

// ReportMilestoneOverdue records that a milestone missed its due date.
func (s *Service) ReportMilestoneOverdue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req MilestoneRequest
	return s.handle(ctx, MethodReportMilestoneOverdue, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		if err := p.OnMilestoneOverdue(caller, req.Index); err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// UpdateProjectDetails replaces the milestones and opens a grace period.
func (s *Service) UpdateProjectDetails(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req UpdateProjectDetailsRequest
	return s.handle(ctx, MethodUpdateProjectDetails, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		specs, err := milestoneSpecs(req.Milestones)
		if err != nil {
			return nil, err
		}
		minimum, err := parseAmount(req.MinPledgedSum)
		if err != nil {
			return nil, err
		}
		if err := p.UpdateProjectDetails(caller, specs, minimum); err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// SetGraceExitWaitTime sets the minimum pledge age for grace exits.
func (s *Service) SetGraceExitWaitTime(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req SetGraceExitWaitTimeRequest
	return s.handle(ctx, MethodSetGraceExitWaitTime, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		wait, err := secondsDuration(req.Seconds)
		if err != nil {
			return nil, err
		}
		if err := p.SetPledgerWaitTimeBeforeGraceExit(caller, wait); err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// secondsDuration converts a wire second count without overflowing.
func secondsDuration(seconds int64) (time.Duration, error) {
	if seconds < 0 || seconds > maxDurationSeconds {
		return 0, apperrors.WithMetadata(apperrors.CodeInvalidDuration, "wait time is out of range", map[string]string{
			"Seconds": strconv.FormatInt(seconds, 10),
		})
	}
	return time.Duration(seconds) * time.Second, nil
}

// GracePeriodRefund lets the caller exit during an active grace period.
func (s *Service) GracePeriodRefund(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.pledgerCall(ctx, MethodGracePeriodRefund, in, (*project.Project).OnGracePeriodPledgerRefund)
}

// FailureRefund pays the caller's share of a failed project's vault.
func (s *Service) FailureRefund(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.pledgerCall(ctx, MethodFailureRefund, in, (*project.Project).OnProjectFailurePledgerRefund)
}

// ClaimSuccessTokens pays the caller's share of reward tokens.
func (s *Service) ClaimSuccessTokens(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.pledgerCall(ctx, MethodClaimSuccessTokens, in, (*project.Project).TransferProjectTokensToPledgerOnProjectSuccess)
}

func (s *Service) pledgerCall(ctx context.Context, method string, in *structpb.Struct, call func(*project.Project, account.Address) error) (*structpb.Struct, error) {
	var req ProjectRequest
	return s.handle(ctx, method, true, in, &req, func(ctx context.Context, caller account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		if err := call(p, caller); err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// GetProject returns the live view of a project.
func (s *Service) GetProject(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProjectRequest
	return s.handle(ctx, MethodGetProject, false, in, &req, func(ctx context.Context, _ account.Address) (any, error) {
		p, err := s.project(req.Project)
		if err != nil {
			return nil, err
		}
		return ProjectResponse{Project: projectView(p.Snapshot())}, nil
	})
}

// ListProjects pages the stored project summaries.
func (s *Service) ListProjects(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListProjectsRequest
	return s.handle(ctx, MethodListProjects, false, in, &req, func(ctx context.Context, _ account.Address) (any, error) {
		if s.summaries == nil {
			return nil, status.Error(codes.Internal, "project summary store is not configured")
		}
		expression := strings.TrimSpace(req.Filter)
		if state := strings.TrimSpace(req.State); state != "" {
			parsed, ok := project.ParseState(state)
			if !ok {
				return nil, status.Errorf(codes.InvalidArgument, "unknown project state %q", req.State)
			}
			stateFilter := fmt.Sprintf("state = %q", parsed.String())
			if expression == "" {
				expression = stateFilter
			} else {
				expression = stateFilter + " AND (" + expression + ")"
			}
		}
		cond, err := filter.ParseProjectFilter(expression)
		if err != nil {
			return nil, invalidFilter(req.Filter, err)
		}
		pageSize := pagination.ClampPageSize(req.PageSize, pagination.PageSizeConfig{
			Default: defaultListProjectsPageSize,
			Max:     maxListProjectsPageSize,
		})
		page, err := s.summaries.ListProjectSummaries(ctx, pageSize, req.PageToken, cond)
		if err != nil {
			return nil, err
		}
		resp := ListProjectsResponse{
			Projects:      make([]ProjectSummaryView, 0, len(page.Summaries)),
			NextPageToken: page.NextPageToken,
		}
		for _, summary := range page.Summaries {
			resp.Projects = append(resp.Projects, summaryView(summary))
		}
		return resp, nil
	})
}

// ListProjectEvents pages a project's stored journal.
func (s *Service) ListProjectEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ListProjectEventsRequest
	return s.handle(ctx, MethodListProjectEvents, false, in, &req, func(ctx context.Context, _ account.Address) (any, error) {
		if s.events == nil {
			return nil, status.Error(codes.Internal, "event store is not configured")
		}
		addr, err := parseRequiredAddress(req.Project)
		if err != nil {
			return nil, err
		}
		pageSize := pagination.ClampPageSize(req.PageSize, pagination.PageSizeConfig{
			Default: defaultListEventsPageSize,
			Max:     maxListEventsPageSize,
		})
		cond, err := filter.ParseEventFilter(req.Filter)
		if err != nil {
			return nil, invalidFilter(req.Filter, err)
		}
		page, err := s.events.ListEvents(ctx, addr.String(), pageSize, req.PageToken, cond)
		if err != nil {
			return nil, err
		}
		resp := ListProjectEventsResponse{
			Events:        make([]EventView, 0, len(page.Events)),
			NextPageToken: page.NextPageToken,
		}
		for _, evt := range page.Events {
			view, err := eventView(evt)
			if err != nil {
				return nil, err
			}
			resp.Events = append(resp.Events, view)
		}
		return resp, nil
	})
}

func invalidFilter(expression string, err error) error {
	return apperrors.WrapWithMetadata(apperrors.CodeInvalidFilter, "invalid filter", map[string]string{
		"Filter": expression,
	}, err)
}

func (s *Service) ledger(value string) (*token.Ledger, error) {
	addr, err := parseRequiredAddress(value)
	if err != nil {
		return nil, err
	}
	return s.factory.Token(addr)
}

func (s *Service) project(value string) (*project.Project, error) {
	addr, err := parseRequiredAddress(value)
	if err != nil {
		return nil, err
	}
	return s.factory.Project(addr)
}

func createParams(req CreateProjectRequest) (factory.CreateParams, error) {
	var params factory.CreateParams
	var err error
	if params.TeamWallet, err = parseRequiredAddress(req.TeamWallet); err != nil {
		return params, err
	}
	if params.PaymentToken, err = parseRequiredAddress(req.PaymentToken); err != nil {
		return params, err
	}
	if params.ProjectAddress, err = parseOptionalAddress(req.ProjectAddress); err != nil {
		return params, err
	}
	if params.Vault, err = parseOptionalAddress(req.Vault); err != nil {
		return params, err
	}
	if params.ProjectToken, err = parseOptionalAddress(req.ProjectToken); err != nil {
		return params, err
	}
	if params.MinPledgedSum, err = parseAmount(req.MinPledgedSum); err != nil {
		return params, err
	}
	params.InitialTokenSupply = new(uint256.Int)
	if strings.TrimSpace(req.InitialTokenSupply) != "" {
		if params.InitialTokenSupply, err = parseAmount(req.InitialTokenSupply); err != nil {
			return params, err
		}
	}
	if params.Milestones, err = milestoneSpecs(req.Milestones); err != nil {
		return params, err
	}
	params.TokenName = strings.TrimSpace(req.TokenName)
	params.TokenSymbol = strings.TrimSpace(req.TokenSymbol)
	params.CID = strings.TrimSpace(req.CID)
	return params, nil
}

func milestoneSpecs(msgs []MilestoneMessage) ([]project.MilestoneSpec, error) {
	specs := make([]project.MilestoneSpec, 0, len(msgs))
	for _, msg := range msgs {
		spec := project.MilestoneSpec{
			PrereqInd: project.NoPrerequisite,
			DueDate:   time.Unix(msg.Due, 0).UTC(),
		}
		if msg.Due == 0 {
			spec.DueDate = time.Time{}
		}
		if msg.Prereq != nil {
			spec.PrereqInd = *msg.Prereq
		}
		value, err := parseAmount(msg.Value)
		if err != nil {
			return nil, err
		}
		spec.PTokValue = value
		if strings.TrimSpace(msg.Approver) != "" {
			approver, err := parseRequiredAddress(msg.Approver)
			if err != nil {
				return nil, err
			}
			spec.Approver = project.ExternalApprover(approver)
		}
		if msg.TargetPledgers > 0 || strings.TrimSpace(msg.FundingTarget) != "" {
			var funding *uint256.Int
			if strings.TrimSpace(msg.FundingTarget) != "" {
				if funding, err = parseAmount(msg.FundingTarget); err != nil {
					return nil, err
				}
			}
			if spec.Approver.Kind == project.ApproverExternal {
				// Both kinds set; leave the approver unspecified so validation rejects it.
				spec.Approver = project.Approver{}
			} else {
				spec.Approver = project.TargetApprover(msg.TargetPledgers, funding)
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseRequiredAddress(value string) (account.Address, error) {
	addr, err := parseOptionalAddress(value)
	if err != nil {
		return account.Zero, err
	}
	if addr.IsZero() {
		return account.Zero, apperrors.WithMetadata(apperrors.CodeInvalidAddress, "address is required", map[string]string{"Address": value})
	}
	return addr, nil
}

func parseOptionalAddress(value string) (account.Address, error) {
	addr, err := account.Parse(value)
	if err != nil {
		return account.Zero, apperrors.WrapWithMetadata(apperrors.CodeInvalidAddress, "invalid address", map[string]string{"Address": value}, err)
	}
	return addr, nil
}

func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return new(uint256.Int), nil
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, apperrors.WrapWithMetadata(apperrors.CodeInvalidAmount, "invalid amount", map[string]string{"Amount": value}, err)
	}
	return amount, nil
}

func tokenResponse(ledger *token.Ledger) TokenResponse {
	return TokenResponse{
		Address:     ledger.Address().String(),
		Name:        ledger.Name(),
		Symbol:      ledger.Symbol(),
		Owner:       ledger.Owner().String(),
		TotalSupply: ledger.TotalSupply().Dec(),
	}
}

func settingsResponse(settings factory.Settings) SettingsResponse {
	resp := SettingsResponse{
		Owner:                    settings.Owner.String(),
		Wallet:                   settings.Wallet.String(),
		PlatformCutPromils:       settings.PlatformCutPromils,
		BetaMode:                 settings.BetaMode,
		MinMilestones:            settings.MinMilestones,
		MaxMilestones:            settings.MaxMilestones,
		OnChangeExitGracePeriod:  int64(settings.OnChangeExitGracePeriod / time.Second),
		PledgerGraceExitWaitTime: int64(settings.PledgerGraceExitWaitTime / time.Second),
		ApprovedTokens:           make([]string, 0, len(settings.ApprovedTokens)),
	}
	for _, addr := range settings.ApprovedTokens {
		resp.ApprovedTokens = append(resp.ApprovedTokens, addr.String())
	}
	return resp
}

func milestoneMessage(spec project.MilestoneSpec) MilestoneMessage {
	msg := MilestoneMessage{
		Value: amountString(spec.PTokValue),
		Due:   unixOrZero(spec.DueDate),
	}
	if spec.PrereqInd != project.NoPrerequisite {
		prereq := spec.PrereqInd
		msg.Prereq = &prereq
	}
	switch spec.Approver.Kind {
	case project.ApproverExternal:
		msg.Approver = spec.Approver.Address.String()
	case project.ApproverTarget:
		msg.TargetPledgers = spec.Approver.TargetNumPledgers
		if spec.Approver.FundingPTokTarget != nil && !spec.Approver.FundingPTokTarget.IsZero() {
			msg.FundingTarget = spec.Approver.FundingPTokTarget.Dec()
		}
	}
	return msg
}

func projectView(s project.Summary) ProjectView {
	view := ProjectView{
		Address:             s.Address.String(),
		Owner:               s.Owner.String(),
		TeamWallet:          s.TeamWallet.String(),
		Platform:            s.Platform.String(),
		Vault:               s.VaultAddress.String(),
		PaymentToken:        s.PaymentToken.String(),
		State:               s.State.String(),
		VaultBalance:        amountString(s.VaultBalance),
		MinPledgedSum:       amountString(s.MinPledgedSum),
		TotalPledged:        amountString(s.TotalPledged),
		NumPledgers:         s.NumPledgers,
		PlatformCutPromils:  s.PlatformCutPromils,
		SucceededMilestones: s.SucceededMilestones,
		Milestones:          make([]MilestoneView, 0, len(s.Milestones)),
		Pledgers:            make([]PledgerView, 0, len(s.Pledgers)),
		GraceEnd:            unixOrZero(s.GraceEnd),
		GraceExitWait:       int64(s.GraceExitWait / time.Second),
		StartTime:           unixOrZero(s.StartTime),
		CID:                 s.CID,
		LastSeq:             s.LastSeq,
	}
	if !s.ProjectToken.IsZero() {
		view.ProjectToken = s.ProjectToken.String()
	}
	for _, m := range s.Milestones {
		view.Milestones = append(view.Milestones, MilestoneView{
			Index:            m.Index,
			MilestoneMessage: milestoneMessage(m.MilestoneSpec),
			Result:           m.Result.String(),
			Overdue:          m.Overdue,
		})
	}
	for _, p := range s.Pledgers {
		view.Pledgers = append(view.Pledgers, PledgerView{
			Address:       p.Address.String(),
			Total:         amountString(p.Total),
			Events:        p.Events,
			FirstPledgeAt: unixOrZero(p.FirstPledgeAt),
			ClaimedReward: p.ClaimedReward,
			ClaimedRefund: p.ClaimedRefund,
		})
	}
	if s.Failure.Failed {
		view.Failure = &FailureView{
			At:             unixOrZero(s.Failure.At),
			MilestoneIndex: s.Failure.MilestoneIndex,
			Reason:         s.Failure.Reason,
		}
	}
	return view
}

func summaryView(s storage.ProjectSummary) ProjectSummaryView {
	return ProjectSummaryView{
		Address:             s.Address,
		TeamWallet:          s.TeamWallet,
		State:               s.State,
		Vault:               s.VaultAddress,
		PaymentToken:        s.PaymentToken,
		ProjectToken:        s.ProjectToken,
		VaultBalance:        s.VaultBalance,
		TotalPledged:        s.TotalPledged,
		MinPledgedSum:       s.MinPledgedSum,
		NumPledgers:         s.NumPledgers,
		Milestones:          s.Milestones,
		SucceededMilestones: s.SucceededMilestones,
		GraceEnd:            unixOrZero(s.GraceEnd),
		CID:                 s.CID,
		LastSeq:             s.LastSeq,
		UpdatedAt:           unixOrZero(s.UpdatedAt),
	}
}

func eventView(evt event.Event) (EventView, error) {
	view := EventView{
		Seq:        evt.Seq,
		Hash:       evt.Hash,
		Type:       string(evt.Type),
		Timestamp:  evt.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:    evt.ActorID,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
	}
	if len(evt.PayloadJSON) > 0 {
		if err := json.Unmarshal(evt.PayloadJSON, &view.Payload); err != nil {
			return EventView{}, status.Errorf(codes.Internal, "decode %s payload: %v", evt.Type, err)
		}
	}
	return view, nil
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

var _ EscrowServer = (*Service)(nil)
