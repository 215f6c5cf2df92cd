package factory

import (
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/vault"
)

// deployment is the set of instances reserved for one new project.
type deployment struct {
	project   *project.Project
	vault     *vault.Vault
	newVault  bool
	payment   *token.Ledger
	reward    *token.Ledger
	newReward bool
	settings  Config
}

// CreateProject deploys and initializes a project and vault pair, mints the
// initial project token supply to the project and records the pair. The
// project.created event is published by the project itself, after the mint,
// so a failed deployment publishes nothing.
func (f *Factory) CreateProject(caller account.Address, params CreateParams) (*project.Project, error) {
	d, err := f.reserve(caller, params)
	if err != nil {
		return nil, err
	}

	supply := params.InitialTokenSupply
	minted := supply != nil && !supply.IsZero()
	if minted {
		if err := d.reward.Mint(d.settings.Owner, d.project.Address(), supply); err != nil {
			f.release(d)
			return nil, err
		}
	}

	// Initialize runs outside the registry lock so sinks can read back.
	err = d.project.Initialize(project.InitParams{
		Creator:                  caller,
		TeamWallet:               params.TeamWallet,
		Platform:                 d.settings.Wallet,
		Vault:                    d.vault,
		PaymentToken:             d.payment,
		ProjectToken:             d.reward,
		Milestones:               params.Milestones,
		MinPledgedSum:            params.MinPledgedSum,
		PlatformCutPromils:       d.settings.PlatformCutPromils,
		OnChangeExitGracePeriod:  d.settings.OnChangeExitGracePeriod,
		PledgerGraceExitWaitTime: d.settings.PledgerGraceExitWaitTime,
		CID:                      params.CID,
	})
	if err != nil {
		if minted && !d.newReward {
			// The uninitialized project cannot move tokens, so the mint is
			// still intact.
			_ = d.reward.Burn(d.settings.Owner, d.project.Address(), supply)
		}
		f.release(d)
		return nil, err
	}
	if err := d.vault.Initialize(d.project.Address(), d.payment); err != nil {
		f.release(d)
		return nil, err
	}
	return d.project, nil
}

// reserve validates params and registers the instances a new project needs.
func (f *Factory) reserve(caller account.Address, params CreateParams) (deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg := f.settings
	if cfg.BetaMode && !f.betaTesters[caller] {
		return deployment{}, ErrBetaTesterRequired
	}
	if caller.IsZero() || params.TeamWallet.IsZero() || params.PaymentToken.IsZero() {
		return deployment{}, ErrInvalidAddress
	}
	payment, ok := f.tokens[params.PaymentToken]
	if !ok || !f.approvedTokens[params.PaymentToken] {
		return deployment{}, ErrPaymentTokenNotApproved
	}
	if n := len(params.Milestones); n < cfg.MinMilestones || n > cfg.MaxMilestones {
		return deployment{}, milestoneCountError(cfg.MinMilestones, cfg.MaxMilestones)
	}

	projectAddr := params.ProjectAddress
	if projectAddr.IsZero() {
		addr, err := f.contractAddress(account.KindProject)
		if err != nil {
			return deployment{}, err
		}
		projectAddr = addr
	} else {
		if projectAddr.Kind() != account.KindProject {
			return deployment{}, ErrInvalidAddress
		}
		if _, exists := f.projects[projectAddr]; exists {
			return deployment{}, ErrAlreadyExists
		}
	}

	d := deployment{payment: payment, settings: cfg}
	if params.Vault.IsZero() {
		addr, err := f.contractAddress(account.KindVault)
		if err != nil {
			return deployment{}, err
		}
		d.vault = vault.New(addr)
		d.newVault = true
	} else {
		v, ok := f.vaults[params.Vault]
		if !ok {
			return deployment{}, notFound("vault", params.Vault.String())
		}
		if _, bound := f.boundVaults[params.Vault]; bound || v.Initialized() {
			return deployment{}, ErrVaultInUse
		}
		d.vault = v
	}

	if params.ProjectToken.IsZero() {
		addr, err := f.contractAddress(account.KindToken)
		if err != nil {
			return deployment{}, err
		}
		d.reward = token.NewLedger(addr, cfg.Owner, params.TokenName, params.TokenSymbol)
		d.newReward = true
	} else {
		reward, ok := f.tokens[params.ProjectToken]
		if !ok {
			return deployment{}, notFound("token", params.ProjectToken.String())
		}
		if reward.Owner() != cfg.Owner {
			return deployment{}, ErrUnauthorized
		}
		d.reward = reward
	}

	d.project = project.New(projectAddr, f.clock, f.sink)
	f.projects[projectAddr] = d.project
	f.order = append(f.order, projectAddr)
	f.vaults[d.vault.Address()] = d.vault
	f.boundVaults[d.vault.Address()] = projectAddr
	f.tokens[d.reward.Address()] = d.reward
	return d, nil
}

// release undoes reserve after a failed initialization.
func (f *Factory) release(d deployment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr := d.project.Address()
	delete(f.projects, addr)
	for i, a := range f.order {
		if a == addr {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	delete(f.boundVaults, d.vault.Address())
	if d.newVault {
		delete(f.vaults, d.vault.Address())
	}
	if d.newReward {
		delete(f.tokens, d.reward.Address())
	}
}
