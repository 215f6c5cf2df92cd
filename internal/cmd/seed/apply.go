package seed

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/louisbranch/commongood/internal/platform/timeouts"
	"github.com/louisbranch/commongood/internal/services/escrow/api/grpc/escrow"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
	"github.com/louisbranch/commongood/internal/services/escrow/manifest"
	"golang.org/x/sync/errgroup"
)

const defaultParallel = 4

// Seeder replays a manifest through the escrow client.
type Seeder struct {
	Client   *escrow.Client
	Admin    string
	Parallel int
	Out      io.Writer
	Verbose  bool

	mu sync.Mutex
}

// Result is the final state of one seeded project.
type Result struct {
	Key     string
	Project escrow.ProjectView
}

// Apply deploys tokens, funds pledgers and replays every project. Projects
// are replayed concurrently; steps within a project run in order.
func (s *Seeder) Apply(ctx context.Context, m *manifest.Manifest) ([]Result, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("escrow client is required")
	}
	parallel := s.Parallel
	if parallel <= 0 {
		parallel = defaultParallel
	}

	tokens := make(map[string]string, len(m.PaymentTokens))
	for _, pt := range m.PaymentTokens {
		var tok escrow.TokenResponse
		err := s.call(ctx, func(ctx context.Context) (err error) {
			tok, err = s.Client.CreatePaymentToken(ctx, s.Admin, escrow.CreatePaymentTokenRequest{Name: pt.Name, Symbol: pt.Symbol})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("payment token %s: %w", pt.Key, err)
		}
		if err := s.call(ctx, func(ctx context.Context) error {
			_, err := s.Client.ApprovePaymentToken(ctx, s.Admin, escrow.ApprovePaymentTokenRequest{Token: tok.Address, Approved: true})
			return err
		}); err != nil {
			return nil, fmt.Errorf("approve payment token %s: %w", pt.Key, err)
		}
		tokens[pt.Key] = tok.Address
		s.logf("payment token %s deployed at %s", pt.Key, tok.Address)
	}

	mints, mintCtx := errgroup.WithContext(ctx)
	mints.SetLimit(parallel)
	for _, p := range m.Pledgers {
		mints.Go(func() error {
			err := s.call(mintCtx, func(ctx context.Context) error {
				_, err := s.Client.MintTokens(ctx, s.Admin, escrow.MintTokensRequest{
					Token:  tokens[p.PaymentToken],
					To:     p.Address.String(),
					Amount: p.Mint.Dec(),
				})
				return err
			})
			if err != nil {
				return fmt.Errorf("mint to %s: %w", p.Address, err)
			}
			s.logf("minted %s %s to %s", p.Mint.Dec(), p.PaymentToken, p.Address)
			return nil
		})
	}
	if err := mints.Wait(); err != nil {
		return nil, err
	}

	allowances := make(map[string]string, len(m.Pledgers))
	for _, p := range m.Pledgers {
		if p.Allowance != nil {
			allowances[p.Address.String()] = p.Allowance.Dec()
		}
	}

	results := make([]Result, len(m.Projects))
	replays, replayCtx := errgroup.WithContext(ctx)
	replays.SetLimit(parallel)
	for i, p := range m.Projects {
		replays.Go(func() error {
			view, err := s.replay(replayCtx, p, tokens[p.PaymentToken], allowances)
			if err != nil {
				return fmt.Errorf("project %s: %w", p.Key, err)
			}
			results[i] = Result{Key: p.Key, Project: view}
			return nil
		})
	}
	if err := replays.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Seeder) replay(ctx context.Context, p manifest.Project, paymentToken string, allowances map[string]string) (escrow.ProjectView, error) {
	req := escrow.CreateProjectRequest{
		TeamWallet:         p.Team.String(),
		PaymentToken:       paymentToken,
		TokenName:          p.TokenName,
		TokenSymbol:        p.TokenSymbol,
		InitialTokenSupply: p.InitialTokenSupply.Dec(),
		MinPledgedSum:      p.MinPledgedSum.Dec(),
		CID:                p.CID,
	}
	for _, spec := range p.Milestones {
		req.Milestones = append(req.Milestones, milestoneMessage(spec))
	}

	var view escrow.ProjectView
	err := s.call(ctx, func(ctx context.Context) (err error) {
		view, err = s.Client.CreateProject(ctx, p.Team.String(), req)
		return err
	})
	if err != nil {
		return escrow.ProjectView{}, fmt.Errorf("create: %w", err)
	}
	s.logf("project %s deployed at %s", p.Key, view.Address)

	for _, pledge := range p.Pledges {
		pledger := pledge.Pledger.String()
		amount, ok := allowances[pledger]
		if !ok {
			amount = pledge.Sum.Dec()
		}
		if err := s.call(ctx, func(ctx context.Context) error {
			_, err := s.Client.ApproveAllowance(ctx, pledger, escrow.ApproveAllowanceRequest{Token: paymentToken, Spender: view.Address, Amount: amount})
			return err
		}); err != nil {
			return escrow.ProjectView{}, fmt.Errorf("allowance for %s: %w", pledger, err)
		}
		err := s.call(ctx, func(ctx context.Context) (err error) {
			view, err = s.Client.Pledge(ctx, pledger, escrow.PledgeRequest{Project: view.Address, Sum: pledge.Sum.Dec(), PaymentToken: paymentToken})
			return err
		})
		if err != nil {
			return escrow.ProjectView{}, fmt.Errorf("pledge by %s: %w", pledger, err)
		}
		s.logf("%s pledged %s to %s", pledger, pledge.Sum.Dec(), p.Key)
	}

	for _, approval := range p.Approvals {
		spec := p.Milestones[approval.Milestone]
		switch spec.Approver.Kind {
		case project.ApproverExternal:
			err = s.call(ctx, func(ctx context.Context) (err error) {
				view, err = s.Client.ResolveMilestone(ctx, spec.Approver.Address.String(), escrow.ResolveMilestoneRequest{
					Project:   view.Address,
					Index:     approval.Milestone,
					Succeeded: approval.Succeeded,
					Note:      approval.Note,
				})
				return err
			})
		case project.ApproverTarget:
			err = s.call(ctx, func(ctx context.Context) error {
				resp, err := s.Client.CheckOnchainTarget(ctx, p.Team.String(), escrow.MilestoneRequest{Project: view.Address, Index: approval.Milestone})
				if err != nil {
					return err
				}
				view = resp.Project
				return nil
			})
		}
		if err != nil {
			return escrow.ProjectView{}, fmt.Errorf("milestone %d: %w", approval.Milestone, err)
		}
		s.logf("%s milestone %d is %s", p.Key, approval.Milestone, view.Milestones[approval.Milestone].Result)
	}
	return view, nil
}

// call bounds one request with the seed request timeout.
func (s *Seeder) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	return fn(callCtx)
}

func (s *Seeder) logf(format string, args ...any) {
	if !s.Verbose || s.Out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.Out, format+"\n", args...)
}

func milestoneMessage(spec project.MilestoneSpec) escrow.MilestoneMessage {
	msg := escrow.MilestoneMessage{
		Due: spec.DueDate.Unix(),
	}
	if spec.PTokValue != nil {
		msg.Value = spec.PTokValue.Dec()
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
		if spec.Approver.FundingPTokTarget != nil {
			msg.FundingTarget = spec.Approver.FundingPTokTarget.Dec()
		}
	}
	return msg
}
