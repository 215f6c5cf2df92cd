package project

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/clock"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
)

// MaxPlatformCutPromils is the largest accepted platform cut.
const MaxPlatformCutPromils = 1000

// Vault is the custody account paired with a project.
type Vault interface {
	Address() account.Address
	Balance() *uint256.Int
	TransferOut(caller account.Address, legs ...token.Leg) error
}

// PaymentToken is the ledger pledges are made in.
type PaymentToken interface {
	Address() account.Address
	Allowance(holder, spender account.Address) *uint256.Int
	TransferFrom(spender, holder, to account.Address, amount *uint256.Int) error
}

// RewardToken is the ledger holding the project tokens paid out on success.
type RewardToken interface {
	Address() account.Address
	BalanceOf(holder account.Address) *uint256.Int
	Transfer(from, to account.Address, amount *uint256.Int) error
}

// InitParams configures a project once.
type InitParams struct {
	// Creator is recorded as the actor of the project.created event.
	Creator account.Address
	// Owner may update details; defaults to TeamWallet.
	Owner                    account.Address
	TeamWallet               account.Address
	Platform                 account.Address
	Vault                    Vault
	PaymentToken             PaymentToken
	ProjectToken             RewardToken
	Milestones               []MilestoneSpec
	MinPledgedSum            *uint256.Int
	PlatformCutPromils       uint16
	OnChangeExitGracePeriod  time.Duration
	PledgerGraceExitWaitTime time.Duration
	CID                      string
}

// Project is one crowdfunding campaign. It is safe for concurrent use.
type Project struct {
	address account.Address
	clock   clock.Clock
	sink    event.Sink

	mu sync.Mutex
	b  book
}

// book holds everything a failed operation must roll back.
type book struct {
	initialized bool

	owner       account.Address
	teamWallet  account.Address
	platform    account.Address
	vault       Vault
	payment     PaymentToken
	reward      RewardToken
	platformCut uint16
	graceWindow time.Duration
	cid         string
	startTime   time.Time

	state         stateCell
	failure       FailureRecord
	milestones    []Milestone
	minPledgedSum *uint256.Int

	pledges       map[account.Address][]PledgeEvent
	pledgers      []account.Address
	numPledgers   uint64
	totalPledged  *uint256.Int
	refundedTotal *uint256.Int
	rewardedTotal *uint256.Int
	claimedReward map[account.Address]bool
	claimedRefund map[account.Address]bool

	graceEnd time.Time
	exitWait time.Duration

	log []event.Event
}

func (b book) clone() book {
	c := b
	c.milestones = slices.Clone(b.milestones)
	c.pledges = make(map[account.Address][]PledgeEvent, len(b.pledges))
	for addr, events := range b.pledges {
		c.pledges[addr] = slices.Clone(events)
	}
	c.pledgers = slices.Clone(b.pledgers)
	c.claimedReward = maps.Clone(b.claimedReward)
	c.claimedRefund = maps.Clone(b.claimedRefund)
	c.log = slices.Clone(b.log)
	return c
}

// New returns an uninitialized project deployed at address. A nil sink
// discards events.
func New(address account.Address, clk clock.Clock, sink event.Sink) *Project {
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = event.Discard
	}
	return &Project{
		address: address,
		clock:   clk,
		sink:    sink,
		b: book{
			minPledgedSum: new(uint256.Int),
			pledges:       map[account.Address][]PledgeEvent{},
			totalPledged:  new(uint256.Int),
			refundedTotal: new(uint256.Int),
			rewardedTotal: new(uint256.Int),
			claimedReward: map[account.Address]bool{},
			claimedRefund: map[account.Address]bool{},
		},
	}
}

// Initialize binds the project to its collaborators. It succeeds once.
func (p *Project) Initialize(params InitParams) error {
	return p.run(params.Creator, false, func(tx *txn) error {
		b := &p.b
		if b.initialized {
			return ErrAlreadyInitialized
		}
		if params.TeamWallet.IsZero() || params.Vault == nil || params.PaymentToken == nil ||
			params.Vault.Address().IsZero() || params.PaymentToken.Address().IsZero() {
			return ErrInvalidAddress
		}
		if params.PlatformCutPromils > MaxPlatformCutPromils {
			return ErrInvalidPlatformCut
		}
		if params.PlatformCutPromils > 0 && params.Platform.IsZero() {
			return ErrInvalidAddress
		}
		if params.OnChangeExitGracePeriod < 0 || params.PledgerGraceExitWaitTime < 0 {
			return ErrInvalidDuration
		}
		milestones, err := validateSpecs(params.Milestones)
		if err != nil {
			return err
		}

		b.initialized = true
		b.owner = params.Owner
		if b.owner.IsZero() {
			b.owner = params.TeamWallet
		}
		b.teamWallet = params.TeamWallet
		b.platform = params.Platform
		b.vault = params.Vault
		b.payment = params.PaymentToken
		b.reward = params.ProjectToken
		b.platformCut = params.PlatformCutPromils
		b.graceWindow = params.OnChangeExitGracePeriod
		b.exitWait = params.PledgerGraceExitWaitTime
		b.cid = params.CID
		b.startTime = tx.now
		b.milestones = milestones
		b.minPledgedSum = amountOrZero(params.MinPledgedSum).Clone()

		projectToken := ""
		if b.reward != nil {
			projectToken = b.reward.Address().String()
		}
		tx.emit(event.TypeProjectCreated, event.EntityProject, p.address.String(), event.ProjectCreatedPayload{
			ProjectAddress: p.address.String(),
			VaultAddress:   b.vault.Address().String(),
			TeamWallet:     b.teamWallet.String(),
			PaymentToken:   b.payment.Address().String(),
			ProjectToken:   projectToken,
			Milestones:     len(milestones),
			CID:            b.cid,
		})
		return nil
	})
}

// Address returns the project's contract address.
func (p *Project) Address() account.Address { return p.address }

// Initialized reports whether Initialize succeeded.
func (p *Project) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.initialized
}

// State returns the lifecycle state.
func (p *Project) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.state.get()
}

// Owner returns the account allowed to update details.
func (p *Project) Owner() account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.owner
}

// TeamWallet returns the payout destination.
func (p *Project) TeamWallet() account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.teamWallet
}

// VaultAddress returns the paired vault address.
func (p *Project) VaultAddress() account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.b.vault == nil {
		return account.Zero
	}
	return p.b.vault.Address()
}

// VaultBalance returns the payment tokens held in the vault.
func (p *Project) VaultBalance() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vaultBalanceLocked()
}

func (p *Project) vaultBalanceLocked() *uint256.Int {
	if p.b.vault == nil {
		return new(uint256.Int)
	}
	return p.b.vault.Balance()
}

// PaymentTokenAddress returns the accepted payment token.
func (p *Project) PaymentTokenAddress() account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.b.payment == nil {
		return account.Zero
	}
	return p.b.payment.Address()
}

// ProjectTokenAddress returns the reward token, or Zero when none is set.
func (p *Project) ProjectTokenAddress() account.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.b.reward == nil {
		return account.Zero
	}
	return p.b.reward.Address()
}

// MinPledgedSum returns the smallest accepted pledge.
func (p *Project) MinPledgedSum() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.minPledgedSum.Clone()
}

// NumPledgersSofar returns the number of distinct active pledgers.
func (p *Project) NumPledgersSofar() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.numPledgers
}

// TotalPledged returns the sum of every active pledge.
func (p *Project) TotalPledged() *uint256.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.totalPledged.Clone()
}

// NumberOfMilestones returns the milestone count.
func (p *Project) NumberOfMilestones() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.b.milestones)
}

// NumberOfSuccessfulMilestones returns how many milestones succeeded.
func (p *Project) NumberOfSuccessfulMilestones() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.succeededCount()
}

func (b *book) succeededCount() int {
	count := 0
	for _, m := range b.milestones {
		if m.Result() == ResultSucceeded {
			count++
		}
	}
	return count
}

// MilestoneResult returns the outcome of milestone index.
func (p *Project) MilestoneResult(index int) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.b.milestone(index)
	if err != nil {
		return ResultUnresolved, err
	}
	return m.Result(), nil
}

// MilestoneValue returns the payment tokens released by milestone index.
func (p *Project) MilestoneValue(index int) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.b.milestone(index)
	if err != nil {
		return nil, err
	}
	return m.PTokValue.Clone(), nil
}

// MilestoneOverdueTime returns the due date of milestone index.
func (p *Project) MilestoneOverdueTime(index int) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.b.milestone(index)
	if err != nil {
		return time.Time{}, err
	}
	return m.DueDate, nil
}

// MilestoneIsOverdue reports whether milestone index is unresolved and past due.
func (p *Project) MilestoneIsOverdue(index int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.b.milestone(index)
	if err != nil {
		return false, err
	}
	return m.overdue(p.clock.Now()), nil
}

func (b *book) milestone(index int) (*Milestone, error) {
	if index < 0 || index >= len(b.milestones) {
		return nil, milestoneIndexError(index)
	}
	return &b.milestones[index], nil
}

// EndOfGracePeriod returns the end of the current grace period, or the zero
// time when none was opened.
func (p *Project) EndOfGracePeriod() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.graceEnd
}

// PledgerGraceExitWaitTime returns how old a pledge must be to exit during a
// grace period.
func (p *Project) PledgerGraceExitWaitTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.exitWait
}

// OnFailureParams returns the failure record.
func (p *Project) OnFailureParams() FailureRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.failure
}

// ProjectStartTime returns when the project was initialized.
func (p *Project) ProjectStartTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.startTime
}

// PlatformCutPromils returns the platform cut in thousandths.
func (p *Project) PlatformCutPromils() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.platformCut
}

// CID returns the opaque content identifier.
func (p *Project) CID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.b.cid
}

// Events returns the committed event log in sequence order.
func (p *Project) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.b.log)
}

// MilestoneStatus is a read-only view of a milestone.
type MilestoneStatus struct {
	Index int
	MilestoneSpec
	Result  Result
	Overdue bool
}

// PledgerStatus is a read-only view of a pledger's standing.
type PledgerStatus struct {
	Address       account.Address
	Total         *uint256.Int
	Events        int
	FirstPledgeAt time.Time
	ClaimedReward bool
	ClaimedRefund bool
}

// Summary is a consistent point-in-time view of a project.
type Summary struct {
	Address             account.Address
	Owner               account.Address
	TeamWallet          account.Address
	Platform            account.Address
	VaultAddress        account.Address
	PaymentToken        account.Address
	ProjectToken        account.Address
	State               State
	VaultBalance        *uint256.Int
	MinPledgedSum       *uint256.Int
	TotalPledged        *uint256.Int
	NumPledgers         uint64
	PlatformCutPromils  uint16
	Milestones          []MilestoneStatus
	SucceededMilestones int
	Pledgers            []PledgerStatus
	GraceEnd            time.Time
	GraceExitWait       time.Duration
	StartTime           time.Time
	CID                 string
	Failure             FailureRecord
	LastSeq             uint64
}

// Snapshot returns a consistent summary of the project.
func (p *Project) Snapshot() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := &p.b
	now := p.clock.Now()
	summary := Summary{
		Address:             p.address,
		Owner:               b.owner,
		TeamWallet:          b.teamWallet,
		Platform:            b.platform,
		State:               b.state.get(),
		VaultBalance:        p.vaultBalanceLocked(),
		MinPledgedSum:       b.minPledgedSum.Clone(),
		TotalPledged:        b.totalPledged.Clone(),
		NumPledgers:         b.numPledgers,
		PlatformCutPromils:  b.platformCut,
		SucceededMilestones: b.succeededCount(),
		GraceEnd:            b.graceEnd,
		GraceExitWait:       b.exitWait,
		StartTime:           b.startTime,
		CID:                 b.cid,
		Failure:             b.failure,
		LastSeq:             uint64(len(b.log)),
	}
	if b.vault != nil {
		summary.VaultAddress = b.vault.Address()
	}
	if b.payment != nil {
		summary.PaymentToken = b.payment.Address()
	}
	if b.reward != nil {
		summary.ProjectToken = b.reward.Address()
	}
	for i, m := range b.milestones {
		summary.Milestones = append(summary.Milestones, MilestoneStatus{
			Index:         i,
			MilestoneSpec: m.MilestoneSpec,
			Result:        m.Result(),
			Overdue:       m.overdue(now),
		})
	}
	for _, addr := range b.pledgers {
		events := b.pledges[addr]
		summary.Pledgers = append(summary.Pledgers, PledgerStatus{
			Address:       addr,
			Total:         pledgedTotal(events),
			Events:        len(events),
			FirstPledgeAt: events[0].Timestamp,
			ClaimedReward: b.claimedReward[addr],
			ClaimedRefund: b.claimedRefund[addr],
		})
	}
	return summary
}
