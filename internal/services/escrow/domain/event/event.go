// Package event defines the notifications projects and the platform emit.
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type identifies the type of an escrow event.
type Type string

// Platform events.
const (
	// TypeProjectCreated records a project and vault pair deployed by the platform.
	TypeProjectCreated Type = "project.created"
)

// Project lifecycle events.
const (
	// TypeProjectDetailsChanged records replaced milestones or minimum pledge.
	TypeProjectDetailsChanged Type = "project.details_changed"
	// TypeGraceExitWaitTimeChanged records a new minimum pledge age for grace exits.
	TypeGraceExitWaitTimeChanged Type = "project.grace_exit_wait_time_changed"
	// TypeProjectStateChanged records the transition to a terminal state.
	TypeProjectStateChanged Type = "project.state_changed"
)

// Milestone events.
const (
	// TypeMilestoneResolved records a milestone reaching a final result.
	TypeMilestoneResolved Type = "milestone.resolved"
	// TypeMilestoneOverdueReported records that someone observed an overdue milestone.
	TypeMilestoneOverdueReported Type = "milestone.overdue_reported"
)

// Pledger events.
const (
	// TypePledgeAdded records funds pledged into the vault.
	TypePledgeAdded Type = "pledge.added"
	// TypeGracePeriodRefund records a pledger leaving during a grace period.
	TypeGracePeriodRefund Type = "pledger.grace_period_refund"
	// TypeFailureRefund records a pledger claiming their share after failure.
	TypeFailureRefund Type = "pledger.failure_refund"
	// TypeSuccessTokenTransfer records reward tokens sent after success.
	TypeSuccessTokenTransfer Type = "pledger.success_token_transfer"
)

// Entity types.
const (
	EntityProject   = "project"
	EntityMilestone = "milestone"
	EntityPledger   = "pledger"
)

// Event represents an immutable entry in a project's journal.
type Event struct {
	// ProjectAddress is the project this event belongs to.
	ProjectAddress string
	// Seq is the event sequence number within the project (starts at 1).
	Seq uint64
	// Hash is the content-addressed identity (SHA-256 truncated to 128-bit).
	Hash string
	// Timestamp is the platform time when the event occurred.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// ActorID is the address that triggered the event, empty for the system.
	ActorID string
	// EntityType is the type of entity affected.
	EntityType string
	// EntityID is the ID of the entity affected.
	EntityID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// Input describes an event before it is sequenced.
type Input struct {
	ProjectAddress string
	Type           Type
	ActorID        string
	EntityType     string
	EntityID       string
	Payload        any
}

// New builds an unsequenced event at the given time.
func New(at time.Time, input Input) (Event, error) {
	if strings.TrimSpace(input.ProjectAddress) == "" {
		return Event{}, fmt.Errorf("project address is required")
	}
	if strings.TrimSpace(string(input.Type)) == "" {
		return Event{}, fmt.Errorf("event type is required")
	}
	payloadJSON, err := json.Marshal(input.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event payload: %w", err)
	}
	return Event{
		ProjectAddress: input.ProjectAddress,
		Timestamp:      at.UTC(),
		Type:           input.Type,
		ActorID:        input.ActorID,
		EntityType:     input.EntityType,
		EntityID:       input.EntityID,
		PayloadJSON:    payloadJSON,
	}, nil
}

// Sequence assigns seq and the content hash.
func Sequence(evt Event, seq uint64) (Event, error) {
	evt.Seq = seq
	hash, err := Hash(evt)
	if err != nil {
		return Event{}, err
	}
	evt.Hash = hash
	return evt, nil
}

// hashEnvelope fixes the field order hashed by Hash.
type hashEnvelope struct {
	ProjectAddress string          `json:"project_address"`
	Seq            uint64          `json:"seq"`
	Timestamp      int64           `json:"timestamp_ms"`
	Type           string          `json:"type"`
	ActorID        string          `json:"actor_id"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	Payload        json.RawMessage `json:"payload"`
}

// Hash computes the event identity over every field except Hash itself.
func Hash(evt Event) (string, error) {
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data, err := json.Marshal(hashEnvelope{
		ProjectAddress: evt.ProjectAddress,
		Seq:            evt.Seq,
		Timestamp:      evt.Timestamp.UTC().UnixMilli(),
		Type:           string(evt.Type),
		ActorID:        evt.ActorID,
		EntityType:     evt.EntityType,
		EntityID:       evt.EntityID,
		Payload:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("marshal hash envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// Decode unmarshals the payload into target.
func (e Event) Decode(target any) error {
	if err := json.Unmarshal(e.PayloadJSON, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
