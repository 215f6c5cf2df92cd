// Package manifest loads HCL campaign manifests used to seed an escrow
// server with tokens, projects, pledges and approvals.
package manifest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
	"github.com/zclconf/go-cty/cty"
)

// Manifest is a validated campaign definition.
type Manifest struct {
	PaymentTokens []PaymentToken
	Pledgers      []Pledger
	Projects      []Project
}

// PaymentToken declares a payment token to deploy and approve.
type PaymentToken struct {
	Key    string
	Name   string
	Symbol string
}

// Pledger declares a wallet funded before any pledge.
type Pledger struct {
	Address      account.Address
	PaymentToken string
	Mint         *uint256.Int
	// Allowance is approved per project; nil approves the pledged sum.
	Allowance *uint256.Int
}

// Project declares a campaign.
type Project struct {
	Key                string
	Team               account.Address
	TokenName          string
	TokenSymbol        string
	PaymentToken       string
	MinPledgedSum      *uint256.Int
	InitialTokenSupply *uint256.Int
	CID                string
	Milestones         []project.MilestoneSpec
	Pledges            []Pledge
	Approvals          []Approval
}

// Pledge is a scripted pledge.
type Pledge struct {
	Pledger account.Address
	Sum     *uint256.Int
}

// Approval is a scripted approver decision.
type Approval struct {
	Milestone int
	Succeeded bool
	Note      string
}

type hclFile struct {
	PaymentTokens []hclPaymentToken `hcl:"payment_token,block"`
	Pledgers      []hclPledger      `hcl:"pledger,block"`
	Projects      []hclProject      `hcl:"project,block"`
}

type hclPaymentToken struct {
	Key    string `hcl:"key,label"`
	Name   string `hcl:"name"`
	Symbol string `hcl:"symbol"`
}

type hclPledger struct {
	Address      string  `hcl:"address,label"`
	PaymentToken *string `hcl:"payment_token,optional"`
	Mint         string  `hcl:"mint"`
	Allowance    *string `hcl:"allowance,optional"`
}

type hclProject struct {
	Key                string         `hcl:"key,label"`
	Team               string         `hcl:"team"`
	TokenName          string         `hcl:"token_name"`
	TokenSymbol        string         `hcl:"token_symbol"`
	PaymentToken       string         `hcl:"payment_token"`
	MinPledgedSum      string         `hcl:"min_pledged_sum"`
	InitialTokenSupply *string        `hcl:"initial_token_supply,optional"`
	CID                *string        `hcl:"cid,optional"`
	Milestones         []hclMilestone `hcl:"milestone,block"`
	Pledges            []hclPledge    `hcl:"pledge,block"`
	Approvals          []hclApproval  `hcl:"approve,block"`
}

type hclMilestone struct {
	Approver       *string `hcl:"approver,optional"`
	TargetPledgers *int64  `hcl:"target_pledgers,optional"`
	FundingTarget  *string `hcl:"funding_target,optional"`
	Value          string  `hcl:"value"`
	Due            int64   `hcl:"due"`
	Prereq         *int    `hcl:"prereq,optional"`
}

type hclPledge struct {
	Pledger string `hcl:"pledger"`
	Sum     string `hcl:"sum"`
}

type hclApproval struct {
	Milestone int     `hcl:"milestone"`
	Succeeded *bool   `hcl:"succeeded,optional"`
	Note      *string `hcl:"note,optional"`
}

// EvalContext exposes now (unix seconds) and duration helpers in seconds.
func EvalContext(now time.Time) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"now":    cty.NumberIntVal(now.Unix()),
			"minute": cty.NumberIntVal(int64(time.Minute / time.Second)),
			"hour":   cty.NumberIntVal(int64(time.Hour / time.Second)),
			"day":    cty.NumberIntVal(int64(24 * time.Hour / time.Second)),
		},
	}
}

// Load reads and validates the manifest at path.
func Load(path string, now time.Time) (*Manifest, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(src, path, now)
}

// Parse decodes and validates manifest source. Expressions are evaluated
// against EvalContext(now).
func Parse(src []byte, filename string, now time.Time) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}
	var decoded hclFile
	diags = gohcl.DecodeBody(file.Body, EvalContext(now), &decoded)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", filename, diags)
	}
	m, err := build(decoded)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", filename, err)
	}
	return m, nil
}

func build(decoded hclFile) (*Manifest, error) {
	m := &Manifest{}
	tokens := map[string]bool{}
	for _, t := range decoded.PaymentTokens {
		key := strings.TrimSpace(t.Key)
		if key == "" {
			return nil, fmt.Errorf("payment_token label is required")
		}
		if tokens[key] {
			return nil, fmt.Errorf("payment_token %q declared twice", key)
		}
		tokens[key] = true
		m.PaymentTokens = append(m.PaymentTokens, PaymentToken{Key: key, Name: t.Name, Symbol: t.Symbol})
	}

	for _, p := range decoded.Pledgers {
		addr, err := parseAddress(p.Address)
		if err != nil {
			return nil, fmt.Errorf("pledger %q: %w", p.Address, err)
		}
		tokenKey, err := resolveToken(tokens, m.PaymentTokens, p.PaymentToken)
		if err != nil {
			return nil, fmt.Errorf("pledger %q: %w", p.Address, err)
		}
		mint, err := parseAmount(p.Mint)
		if err != nil {
			return nil, fmt.Errorf("pledger %q mint: %w", p.Address, err)
		}
		pledger := Pledger{Address: addr, PaymentToken: tokenKey, Mint: mint}
		if p.Allowance != nil {
			if pledger.Allowance, err = parseAmount(*p.Allowance); err != nil {
				return nil, fmt.Errorf("pledger %q allowance: %w", p.Address, err)
			}
		}
		m.Pledgers = append(m.Pledgers, pledger)
	}

	projects := map[string]bool{}
	for _, p := range decoded.Projects {
		built, err := buildProject(p, tokens)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", p.Key, err)
		}
		if projects[built.Key] {
			return nil, fmt.Errorf("project %q declared twice", built.Key)
		}
		projects[built.Key] = true
		m.Projects = append(m.Projects, built)
	}
	return m, nil
}

func buildProject(p hclProject, tokens map[string]bool) (Project, error) {
	out := Project{
		Key:          strings.TrimSpace(p.Key),
		TokenName:    p.TokenName,
		TokenSymbol:  p.TokenSymbol,
		PaymentToken: strings.TrimSpace(p.PaymentToken),
	}
	if out.Key == "" {
		return Project{}, fmt.Errorf("label is required")
	}
	if !tokens[out.PaymentToken] {
		return Project{}, fmt.Errorf("unknown payment_token %q", out.PaymentToken)
	}
	var err error
	if out.Team, err = parseAddress(p.Team); err != nil {
		return Project{}, fmt.Errorf("team: %w", err)
	}
	if out.MinPledgedSum, err = parseAmount(p.MinPledgedSum); err != nil {
		return Project{}, fmt.Errorf("min_pledged_sum: %w", err)
	}
	out.InitialTokenSupply = new(uint256.Int)
	if p.InitialTokenSupply != nil {
		if out.InitialTokenSupply, err = parseAmount(*p.InitialTokenSupply); err != nil {
			return Project{}, fmt.Errorf("initial_token_supply: %w", err)
		}
	}
	if p.CID != nil {
		out.CID = *p.CID
	}
	if len(p.Milestones) == 0 {
		return Project{}, fmt.Errorf("at least one milestone is required")
	}
	for i, ms := range p.Milestones {
		spec, err := buildMilestone(ms)
		if err != nil {
			return Project{}, fmt.Errorf("milestone %d: %w", i, err)
		}
		out.Milestones = append(out.Milestones, spec)
	}
	for i, pl := range p.Pledges {
		addr, err := parseAddress(pl.Pledger)
		if err != nil {
			return Project{}, fmt.Errorf("pledge %d: %w", i, err)
		}
		sum, err := parseAmount(pl.Sum)
		if err != nil {
			return Project{}, fmt.Errorf("pledge %d sum: %w", i, err)
		}
		out.Pledges = append(out.Pledges, Pledge{Pledger: addr, Sum: sum})
	}
	for i, ap := range p.Approvals {
		if ap.Milestone < 0 || ap.Milestone >= len(out.Milestones) {
			return Project{}, fmt.Errorf("approve %d: milestone %d out of range", i, ap.Milestone)
		}
		approval := Approval{Milestone: ap.Milestone, Succeeded: true}
		if ap.Succeeded != nil {
			approval.Succeeded = *ap.Succeeded
		}
		if ap.Note != nil {
			approval.Note = *ap.Note
		}
		out.Approvals = append(out.Approvals, approval)
	}
	return out, nil
}

func buildMilestone(ms hclMilestone) (project.MilestoneSpec, error) {
	spec := project.MilestoneSpec{
		PrereqInd: project.NoPrerequisite,
		DueDate:   time.Unix(ms.Due, 0).UTC(),
	}
	if ms.Prereq != nil {
		spec.PrereqInd = *ms.Prereq
	}
	value, err := parseAmount(ms.Value)
	if err != nil {
		return project.MilestoneSpec{}, fmt.Errorf("value: %w", err)
	}
	spec.PTokValue = value

	hasTarget := ms.TargetPledgers != nil || ms.FundingTarget != nil
	switch {
	case ms.Approver != nil && hasTarget:
		return project.MilestoneSpec{}, fmt.Errorf("approver and targets are mutually exclusive")
	case ms.Approver != nil:
		addr, err := parseAddress(*ms.Approver)
		if err != nil {
			return project.MilestoneSpec{}, fmt.Errorf("approver: %w", err)
		}
		spec.Approver = project.ExternalApprover(addr)
	case hasTarget:
		var pledgers uint64
		if ms.TargetPledgers != nil {
			if *ms.TargetPledgers < 0 {
				return project.MilestoneSpec{}, fmt.Errorf("target_pledgers must not be negative")
			}
			pledgers = uint64(*ms.TargetPledgers)
		}
		var funding *uint256.Int
		if ms.FundingTarget != nil {
			if funding, err = parseAmount(*ms.FundingTarget); err != nil {
				return project.MilestoneSpec{}, fmt.Errorf("funding_target: %w", err)
			}
		}
		spec.Approver = project.TargetApprover(pledgers, funding)
	default:
		return project.MilestoneSpec{}, fmt.Errorf("approver or a target is required")
	}
	return spec, nil
}

func resolveToken(known map[string]bool, declared []PaymentToken, key *string) (string, error) {
	if key == nil {
		if len(declared) != 1 {
			return "", fmt.Errorf("payment_token is required when %d tokens are declared", len(declared))
		}
		return declared[0].Key, nil
	}
	value := strings.TrimSpace(*key)
	if !known[value] {
		return "", fmt.Errorf("unknown payment_token %q", value)
	}
	return value, nil
}

func parseAddress(value string) (account.Address, error) {
	addr, err := account.Parse(value)
	if err != nil {
		return account.Zero, err
	}
	if addr.IsZero() {
		return account.Zero, fmt.Errorf("address is required")
	}
	return addr, nil
}

// parseAmount reads a base-10 amount. Underscores may separate digits.
func parseAmount(value string) (*uint256.Int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	amount, err := uint256.FromDecimal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", value, err)
	}
	return amount, nil
}
