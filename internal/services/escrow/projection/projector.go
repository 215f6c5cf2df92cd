// Package projection persists project journals and keeps project summaries
// current as events are published.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/louisbranch/commongood/internal/platform/timeouts"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/project"
	"github.com/louisbranch/commongood/internal/services/escrow/storage"
)

// Source resolves live projects by address.
type Source interface {
	Project(addr account.Address) (*project.Project, error)
}

// Projector applies published events to the journal and summary stores.
type Projector struct {
	// Events stores the journal.
	Events storage.EventStore
	// Summaries stores the project read models.
	Summaries storage.SummaryStore

	mu     sync.RWMutex
	source Source
}

// New returns a projector writing to the given stores.
func New(events storage.EventStore, summaries storage.SummaryStore) *Projector {
	return &Projector{Events: events, Summaries: summaries}
}

// Attach sets the project source used to refresh summaries. Projects publish
// through the projector before the source exists, so wiring happens in two
// steps.
func (p *Projector) Attach(source Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = source
}

// Publish implements event.Sink. Failures are logged; the in-memory journal
// stays authoritative and Backfill repairs gaps on the next event.
func (p *Projector) Publish(evt event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Projection)
	defer cancel()
	if err := p.Apply(ctx, evt); err != nil {
		log.Printf("project %s: apply %s #%d: %v", evt.ProjectAddress, evt.Type, evt.Seq, err)
	}
}

// Apply stores evt and refreshes the project summary.
func (p *Projector) Apply(ctx context.Context, evt event.Event) error {
	if p.Events == nil {
		return fmt.Errorf("event store is not configured")
	}
	live, err := p.lookup(account.Address(evt.ProjectAddress))
	if err != nil {
		return err
	}
	latest, err := p.Events.LatestSeq(ctx, evt.ProjectAddress)
	if err != nil {
		return err
	}
	switch {
	case evt.Seq <= latest:
		// Already stored by an earlier backfill.
	case evt.Seq == latest+1:
		if err := p.Events.AppendEvent(ctx, evt); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("append event: %w", err)
		}
	default:
		if err := p.backfill(ctx, live, latest); err != nil {
			return err
		}
	}
	return p.refresh(ctx, live, evt.Timestamp)
}

// Backfill stores every committed event of a project missing from the journal.
func (p *Projector) Backfill(ctx context.Context, addr account.Address) error {
	live, err := p.lookup(addr)
	if err != nil {
		return err
	}
	latest, err := p.Events.LatestSeq(ctx, addr.String())
	if err != nil {
		return err
	}
	return p.backfill(ctx, live, latest)
}

func (p *Projector) backfill(ctx context.Context, live *project.Project, latest uint64) error {
	for _, evt := range live.Events() {
		if evt.Seq <= latest {
			continue
		}
		if err := p.Events.AppendEvent(ctx, evt); err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			return fmt.Errorf("backfill seq %d: %w", evt.Seq, err)
		}
	}
	return nil
}

// Refresh rewrites the summary of a project from its live state.
func (p *Projector) Refresh(ctx context.Context, addr account.Address, at time.Time) error {
	live, err := p.lookup(addr)
	if err != nil {
		return err
	}
	return p.refresh(ctx, live, at)
}

func (p *Projector) refresh(ctx context.Context, live *project.Project, at time.Time) error {
	if p.Summaries == nil {
		return nil
	}
	return p.Summaries.PutProjectSummary(ctx, SummaryFromSnapshot(live.Snapshot(), at))
}

func (p *Projector) lookup(addr account.Address) (*project.Project, error) {
	p.mu.RLock()
	source := p.source
	p.mu.RUnlock()
	if source == nil {
		return nil, fmt.Errorf("project source is not attached")
	}
	return source.Project(addr)
}

// SummaryFromSnapshot converts a live snapshot into the stored read model.
func SummaryFromSnapshot(s project.Summary, at time.Time) storage.ProjectSummary {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return storage.ProjectSummary{
		Address:             s.Address.String(),
		TeamWallet:          s.TeamWallet.String(),
		State:               s.State.String(),
		VaultAddress:        s.VaultAddress.String(),
		PaymentToken:        s.PaymentToken.String(),
		ProjectToken:        addressOrEmpty(s.ProjectToken),
		VaultBalance:        s.VaultBalance.Dec(),
		TotalPledged:        s.TotalPledged.Dec(),
		MinPledgedSum:       s.MinPledgedSum.Dec(),
		NumPledgers:         s.NumPledgers,
		Milestones:          len(s.Milestones),
		SucceededMilestones: s.SucceededMilestones,
		GraceEnd:            s.GraceEnd,
		CID:                 s.CID,
		LastSeq:             s.LastSeq,
		CreatedAt:           s.StartTime,
		UpdatedAt:           at.UTC(),
	}
}

func addressOrEmpty(addr account.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}

var _ event.Sink = (*Projector)(nil)
