// Package storage defines persistence contracts for the escrow journal and
// project read models.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/storage/filter"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// EventPage stores one page of journal events.
type EventPage struct {
	Events        []event.Event
	NextPageToken string
}

// EventStore persists the per-project event journal.
type EventStore interface {
	// AppendEvent stores evt. A second event with the same project and
	// sequence returns ErrAlreadyExists.
	AppendEvent(ctx context.Context, evt event.Event) error
	// ListEvents returns events after the page token in sequence order,
	// restricted by cond.
	ListEvents(ctx context.Context, projectAddress string, pageSize int, pageToken string, cond filter.Condition) (EventPage, error)
	// LatestSeq returns the highest stored sequence, or zero.
	LatestSeq(ctx context.Context, projectAddress string) (uint64, error)
}

// ProjectSummary is the read model of one project.
type ProjectSummary struct {
	Address             string
	TeamWallet          string
	State               string
	VaultAddress        string
	PaymentToken        string
	ProjectToken        string
	VaultBalance        string
	TotalPledged        string
	MinPledgedSum       string
	NumPledgers         uint64
	Milestones          int
	SucceededMilestones int
	GraceEnd            time.Time
	CID                 string
	LastSeq             uint64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SummaryPage stores one page of project summaries.
type SummaryPage struct {
	Summaries     []ProjectSummary
	NextPageToken string
}

// SummaryStore persists project summaries.
type SummaryStore interface {
	// PutProjectSummary inserts or replaces a summary. Older LastSeq values
	// never overwrite newer ones.
	PutProjectSummary(ctx context.Context, summary ProjectSummary) error
	GetProjectSummary(ctx context.Context, address string) (ProjectSummary, error)
	// ListProjectSummaries pages by address. An empty cond lists every project.
	ListProjectSummaries(ctx context.Context, pageSize int, pageToken string, cond filter.Condition) (SummaryPage, error)
}

// Store combines the escrow persistence contracts.
type Store interface {
	EventStore
	SummaryStore
	Close() error
}
