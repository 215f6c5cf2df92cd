// Package factory deploys project and vault pairs and holds the platform
// settings that gate their creation.
package factory

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/platform/id"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/clock"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/vault"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultMinMilestones = 1
	DefaultMaxMilestones = 300
)

// Config holds the platform settings.
type Config struct {
	// Owner administers the platform and owns every token it deploys.
	Owner account.Address
	// Wallet receives platform cuts; defaults to Owner.
	Wallet                   account.Address
	PlatformCutPromils       uint16
	BetaMode                 bool
	MinMilestones            int
	MaxMilestones            int
	OnChangeExitGracePeriod  time.Duration
	PledgerGraceExitWaitTime time.Duration
}

// Settings is a snapshot of the mutable platform settings.
type Settings struct {
	Owner                    account.Address
	Wallet                   account.Address
	PlatformCutPromils       uint16
	BetaMode                 bool
	MinMilestones            int
	MaxMilestones            int
	OnChangeExitGracePeriod  time.Duration
	PledgerGraceExitWaitTime time.Duration
	ApprovedTokens           []account.Address
}

// CreateParams describes a new campaign.
type CreateParams struct {
	TeamWallet   account.Address
	PaymentToken account.Address
	// ProjectAddress, Vault and ProjectToken reuse existing addresses when
	// non-zero; otherwise new instances are deployed.
	ProjectAddress     account.Address
	Vault              account.Address
	ProjectToken       account.Address
	TokenName          string
	TokenSymbol        string
	InitialTokenSupply *uint256.Int
	MinPledgedSum      *uint256.Int
	Milestones         []project.MilestoneSpec
	CID                string
}

// Factory is the platform registry. It is safe for concurrent use.
type Factory struct {
	clock clock.Clock
	sink  event.Sink
	newID func() (string, error)

	mu             sync.RWMutex
	settings       Config
	betaTesters    map[account.Address]bool
	approvedTokens map[account.Address]bool
	tokens         map[account.Address]*token.Ledger
	vaults         map[account.Address]*vault.Vault
	boundVaults    map[account.Address]account.Address
	projects       map[account.Address]*project.Project
	order          []account.Address
}

// New returns a factory with cfg applied. A nil sink discards project events.
func New(cfg Config, clk clock.Clock, sink event.Sink) (*Factory, error) {
	if cfg.Owner.IsZero() {
		return nil, ErrInvalidAddress
	}
	if cfg.Wallet.IsZero() {
		cfg.Wallet = cfg.Owner
	}
	if cfg.MinMilestones == 0 {
		cfg.MinMilestones = DefaultMinMilestones
	}
	if cfg.MaxMilestones == 0 {
		cfg.MaxMilestones = DefaultMaxMilestones
	}
	if cfg.PlatformCutPromils > project.MaxPlatformCutPromils {
		return nil, ErrInvalidPlatformCut
	}
	if cfg.MinMilestones < 1 || cfg.MaxMilestones < cfg.MinMilestones {
		return nil, ErrInvalidMilestoneBounds
	}
	if cfg.OnChangeExitGracePeriod < 0 || cfg.PledgerGraceExitWaitTime < 0 {
		return nil, ErrInvalidDuration
	}
	if clk == nil {
		clk = clock.System{}
	}
	if sink == nil {
		sink = event.Discard
	}
	return &Factory{
		clock:          clk,
		sink:           sink,
		newID:          id.NewID,
		settings:       cfg,
		betaTesters:    map[account.Address]bool{},
		approvedTokens: map[account.Address]bool{},
		tokens:         map[account.Address]*token.Ledger{},
		vaults:         map[account.Address]*vault.Vault{},
		boundVaults:    map[account.Address]account.Address{},
		projects:       map[account.Address]*project.Project{},
	}, nil
}

// Owner returns the platform administrator.
func (f *Factory) Owner() account.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.settings.Owner
}

// Clock returns the shared time source.
func (f *Factory) Clock() clock.Clock { return f.clock }

// BlockTimestamp returns the current platform time.
func (f *Factory) BlockTimestamp() time.Time { return f.clock.Now() }

// Settings returns the current platform settings.
func (f *Factory) Settings() Settings {
	f.mu.RLock()
	defer f.mu.RUnlock()
	approved := make([]account.Address, 0, len(f.approvedTokens))
	for addr, ok := range f.approvedTokens {
		if ok {
			approved = append(approved, addr)
		}
	}
	slices.Sort(approved)
	return Settings{
		Owner:                    f.settings.Owner,
		Wallet:                   f.settings.Wallet,
		PlatformCutPromils:       f.settings.PlatformCutPromils,
		BetaMode:                 f.settings.BetaMode,
		MinMilestones:            f.settings.MinMilestones,
		MaxMilestones:            f.settings.MaxMilestones,
		OnChangeExitGracePeriod:  f.settings.OnChangeExitGracePeriod,
		PledgerGraceExitWaitTime: f.settings.PledgerGraceExitWaitTime,
		ApprovedTokens:           approved,
	}
}

// admin runs fn under the write lock when caller is the owner.
func (f *Factory) admin(caller account.Address, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.settings.Owner {
		return ErrUnauthorized
	}
	return fn()
}

// SetBetaMode toggles beta gating of project creation.
func (f *Factory) SetBetaMode(caller account.Address, enabled bool) error {
	return f.admin(caller, func() error {
		f.settings.BetaMode = enabled
		return nil
	})
}

// SetBetaTester adds or removes addr from the beta allowlist.
func (f *Factory) SetBetaTester(caller, addr account.Address, allowed bool) error {
	return f.admin(caller, func() error {
		if addr.IsZero() {
			return ErrInvalidAddress
		}
		if allowed {
			f.betaTesters[addr] = true
		} else {
			delete(f.betaTesters, addr)
		}
		return nil
	})
}

// IsBetaTester reports whether addr may create projects in beta mode.
func (f *Factory) IsBetaTester(addr account.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.betaTesters[addr]
}

// ApprovePaymentToken adds or removes addr from the payment token whitelist.
func (f *Factory) ApprovePaymentToken(caller, addr account.Address, approved bool) error {
	return f.admin(caller, func() error {
		if addr.IsZero() {
			return ErrInvalidAddress
		}
		if _, ok := f.tokens[addr]; !ok {
			return notFound("token", addr.String())
		}
		if approved {
			f.approvedTokens[addr] = true
		} else {
			delete(f.approvedTokens, addr)
		}
		return nil
	})
}

// ApprovePTok is ApprovePaymentToken.
func (f *Factory) ApprovePTok(caller, addr account.Address, approved bool) error {
	return f.ApprovePaymentToken(caller, addr, approved)
}

// IsApprovedPaymentToken reports whether addr is whitelisted.
func (f *Factory) IsApprovedPaymentToken(addr account.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.approvedTokens[addr]
}

// SetMilestoneMinMaxCounts bounds how many milestones a project may have.
func (f *Factory) SetMilestoneMinMaxCounts(caller account.Address, min, max int) error {
	return f.admin(caller, func() error {
		if min < 1 || max < min {
			return ErrInvalidMilestoneBounds
		}
		f.settings.MinMilestones = min
		f.settings.MaxMilestones = max
		return nil
	})
}

// SetPlatformCutPromils sets the cut applied to projects created afterwards.
func (f *Factory) SetPlatformCutPromils(caller account.Address, promils uint16) error {
	return f.admin(caller, func() error {
		if promils > project.MaxPlatformCutPromils {
			return ErrInvalidPlatformCut
		}
		f.settings.PlatformCutPromils = promils
		return nil
	})
}

// SetGracePeriodDefaults sets the grace window and exit wait applied to
// projects created afterwards.
func (f *Factory) SetGracePeriodDefaults(caller account.Address, window, wait time.Duration) error {
	return f.admin(caller, func() error {
		if window < 0 || wait < 0 {
			return ErrInvalidDuration
		}
		f.settings.OnChangeExitGracePeriod = window
		f.settings.PledgerGraceExitWaitTime = wait
		return nil
	})
}

// RegisterToken makes an existing ledger known to the platform.
func (f *Factory) RegisterToken(ledger *token.Ledger) error {
	if ledger == nil || ledger.Address().IsZero() {
		return ErrInvalidAddress
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[ledger.Address()]; ok {
		return ErrAlreadyExists
	}
	f.tokens[ledger.Address()] = ledger
	return nil
}

// NewPaymentToken deploys a ledger owned by the platform owner.
func (f *Factory) NewPaymentToken(caller account.Address, name, symbol string) (*token.Ledger, error) {
	var ledger *token.Ledger
	err := f.admin(caller, func() error {
		addr, err := f.contractAddress(account.KindToken)
		if err != nil {
			return err
		}
		ledger = token.NewLedger(addr, f.settings.Owner, name, symbol)
		f.tokens[addr] = ledger
		return nil
	})
	return ledger, err
}

// Token returns a registered ledger.
func (f *Factory) Token(addr account.Address) (*token.Ledger, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ledger, ok := f.tokens[addr]
	if !ok {
		return nil, notFound("token", addr.String())
	}
	return ledger, nil
}

// Tokens returns every registered ledger sorted by address.
func (f *Factory) Tokens() []*token.Ledger {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ledgers := make([]*token.Ledger, 0, len(f.tokens))
	for _, ledger := range f.tokens {
		ledgers = append(ledgers, ledger)
	}
	slices.SortFunc(ledgers, func(a, b *token.Ledger) int {
		if a.Address() < b.Address() {
			return -1
		}
		if a.Address() > b.Address() {
			return 1
		}
		return 0
	})
	return ledgers
}

// NewVault deploys an unbound vault that a later CreateProject may reuse.
func (f *Factory) NewVault() (*vault.Vault, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr, err := f.contractAddress(account.KindVault)
	if err != nil {
		return nil, err
	}
	v := vault.New(addr)
	f.vaults[addr] = v
	return v, nil
}

// Vault returns a registered vault.
func (f *Factory) Vault(addr account.Address) (*vault.Vault, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.vaults[addr]
	if !ok {
		return nil, notFound("vault", addr.String())
	}
	return v, nil
}

// Project returns a registered project.
func (f *Factory) Project(addr account.Address) (*project.Project, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.projects[addr]
	if !ok {
		return nil, notFound("project", addr.String())
	}
	return p, nil
}

// Projects returns every project in creation order.
func (f *Factory) Projects() []*project.Project {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*project.Project, 0, len(f.order))
	for _, addr := range f.order {
		out = append(out, f.projects[addr])
	}
	return out
}

func (f *Factory) contractAddress(kind string) (account.Address, error) {
	value, err := f.newID()
	if err != nil {
		return account.Zero, fmt.Errorf("deploy %s: %w", kind, err)
	}
	return account.Contract(kind, value), nil
}
