package event

import (
	"testing"
	"time"
)

func TestNewRequiresProjectAndType(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	if _, err := New(now, Input{Type: TypePledgeAdded}); err == nil {
		t.Fatal("expected missing project address error")
	}
	if _, err := New(now, Input{ProjectAddress: "project:p1"}); err == nil {
		t.Fatal("expected missing type error")
	}
}

func TestSequenceAssignsStableHash(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	evt, err := New(now, Input{
		ProjectAddress: "project:p1",
		Type:           TypePledgeAdded,
		ActorID:        "0xa3",
		EntityType:     EntityPledger,
		EntityID:       "0xa3",
		Payload:        PledgeAddedPayload{Pledger: "0xa3", Sum: "3"},
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}

	first, err := Sequence(evt, 1)
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	again, err := Sequence(evt, 1)
	if err != nil {
		t.Fatalf("sequence again: %v", err)
	}
	if first.Hash == "" || first.Hash != again.Hash {
		t.Fatalf("hash = %q then %q, want equal non-empty", first.Hash, again.Hash)
	}
	if len(first.Hash) != 32 {
		t.Fatalf("hash length = %d, want 32", len(first.Hash))
	}

	second, err := Sequence(evt, 2)
	if err != nil {
		t.Fatalf("sequence second: %v", err)
	}
	if second.Hash == first.Hash {
		t.Fatal("expected sequence number to change the hash")
	}

	var payload PledgeAddedPayload
	if err := first.Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Sum != "3" {
		t.Fatalf("sum = %q, want 3", payload.Sum)
	}
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	t.Parallel()

	var got []Type
	sink := Fanout(nil, SinkFunc(func(evt Event) { got = append(got, evt.Type) }), Discard)
	sink.Publish(Event{Type: TypeProjectCreated})
	if len(got) != 1 || got[0] != TypeProjectCreated {
		t.Fatalf("published = %v, want [%s]", got, TypeProjectCreated)
	}
}
