package project

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/account"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/token"
)

// txn is the scope of one public operation.
type txn struct {
	p       *Project
	now     time.Time
	actor   account.Address
	pending []event.Event
	err     error
}

// run executes fn under the project mutex. When fn fails the book is
// restored and no event is published.
func (p *Project) run(actor account.Address, requireInit bool, fn func(tx *txn) error) error {
	p.mu.Lock()
	if requireInit && !p.b.initialized {
		p.mu.Unlock()
		return ErrNotInitialized
	}
	saved := p.b.clone()
	tx := &txn{p: p, now: p.clock.Now(), actor: actor}
	err := fn(tx)
	if err == nil {
		err = tx.err
	}
	if err != nil {
		p.b = saved
		p.mu.Unlock()
		return err
	}
	p.b.log = append(p.b.log, tx.pending...)
	p.mu.Unlock()

	for _, evt := range tx.pending {
		p.sink.Publish(evt)
	}
	return nil
}

// emit buffers an event. Sequence numbers follow the committed log.
func (tx *txn) emit(typ event.Type, entityType, entityID string, payload any) {
	if tx.err != nil {
		return
	}
	evt, err := event.New(tx.now, event.Input{
		ProjectAddress: tx.p.address.String(),
		Type:           typ,
		ActorID:        actorID(tx.actor),
		EntityType:     entityType,
		EntityID:       entityID,
		Payload:        payload,
	})
	if err != nil {
		tx.err = err
		return
	}
	seq := uint64(len(tx.p.b.log) + len(tx.pending) + 1)
	evt, err = event.Sequence(evt, seq)
	if err != nil {
		tx.err = err
		return
	}
	tx.pending = append(tx.pending, evt)
}

// payOut moves vault funds. Callers update the book before calling it.
func (tx *txn) payOut(legs ...token.Leg) error {
	if tx.err != nil {
		return tx.err
	}
	return tx.p.b.vault.TransferOut(tx.p.address, legs...)
}

// requireInProgress rejects operations on a terminal project.
func (tx *txn) requireInProgress() error {
	if tx.p.b.state.get().Terminal() {
		return ErrProjectNotInProgress
	}
	return nil
}

// requireOwner rejects callers other than the project owner.
func (tx *txn) requireOwner() error {
	if tx.actor.IsZero() || tx.actor != tx.p.b.owner {
		return ErrUnauthorized
	}
	return nil
}

// finish moves the project to a terminal state and records the transition.
func (tx *txn) finish(to State, index int, reason string, swept, cut *uint256.Int) error {
	b := &tx.p.b
	from := b.state.get()
	if err := b.state.finish(to); err != nil {
		return err
	}
	if to == StateFailed {
		b.failure = FailureRecord{Failed: true, At: tx.now, MilestoneIndex: index, Reason: reason}
	}
	payload := event.ProjectStateChangedPayload{
		From:           from.String(),
		To:             to.String(),
		Reason:         reason,
		MilestoneIndex: index,
	}
	if swept != nil {
		payload.Swept = swept.Dec()
	}
	if cut != nil {
		payload.PlatformCut = cut.Dec()
	}
	tx.emit(event.TypeProjectStateChanged, event.EntityProject, tx.p.address.String(), payload)
	return nil
}

func actorID(addr account.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}
