// Package sqlite provides a SQLite-backed escrow storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/commongood/internal/platform/grpc/pagination"
	sqlitemigrate "github.com/louisbranch/commongood/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/commongood/internal/services/escrow/domain/event"
	"github.com/louisbranch/commongood/internal/services/escrow/storage"
	"github.com/louisbranch/commongood/internal/services/escrow/storage/filter"
	"github.com/louisbranch/commongood/internal/services/escrow/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists escrow state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite escrow store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// AppendEvent inserts one journal event.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	projectAddress := strings.TrimSpace(evt.ProjectAddress)
	if projectAddress == "" {
		return fmt.Errorf("project address is required")
	}
	if evt.Seq == 0 {
		return fmt.Errorf("event sequence is required")
	}
	if strings.TrimSpace(evt.Hash) == "" {
		return fmt.Errorf("event hash is required")
	}
	payload := evt.PayloadJSON
	if payload == nil {
		payload = []byte("null")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO project_events (
		   project_address,
		   seq,
		   hash,
		   event_type,
		   timestamp,
		   actor_id,
		   entity_type,
		   entity_id,
		   payload_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		projectAddress,
		int64(evt.Seq),
		evt.Hash,
		string(evt.Type),
		toMillis(evt.Timestamp),
		evt.ActorID,
		evt.EntityType,
		evt.EntityID,
		payload,
	)
	if err != nil {
		if isUniqueViolation(err, "project_events") {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns one page of a project's journal in sequence order.
func (s *Store) ListEvents(ctx context.Context, projectAddress string, pageSize int, pageToken string, cond filter.Condition) (storage.EventPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.EventPage{}, err
	}
	projectAddress = strings.TrimSpace(projectAddress)
	if projectAddress == "" {
		return storage.EventPage{}, fmt.Errorf("project address is required")
	}
	if pageSize <= 0 {
		return storage.EventPage{}, fmt.Errorf("page size must be greater than zero")
	}
	afterSeq, err := pagination.ParseSeqToken(pageToken)
	if err != nil {
		return storage.EventPage{}, err
	}

	query := `SELECT project_address, seq, hash, event_type, timestamp,
	                 actor_id, entity_type, entity_id, payload_json
	            FROM project_events
	           WHERE project_address = ? AND seq > ?`
	args := []any{projectAddress, int64(afterSeq)}
	if !cond.IsEmpty() {
		query += ` AND ` + cond.Clause
		args = append(args, cond.Params...)
	}
	query += ` ORDER BY seq ASC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.EventPage{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	page := storage.EventPage{Events: make([]event.Event, 0, pageSize)}
	for rows.Next() {
		var evt event.Event
		var seq int64
		var eventType string
		var timestamp int64
		if err := rows.Scan(
			&evt.ProjectAddress,
			&seq,
			&evt.Hash,
			&eventType,
			&timestamp,
			&evt.ActorID,
			&evt.EntityType,
			&evt.EntityID,
			&evt.PayloadJSON,
		); err != nil {
			return storage.EventPage{}, fmt.Errorf("list events: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Type = event.Type(eventType)
		evt.Timestamp = fromMillis(timestamp)
		page.Events = append(page.Events, evt)
	}
	if err := rows.Err(); err != nil {
		return storage.EventPage{}, fmt.Errorf("list events: %w", err)
	}
	if len(page.Events) > pageSize {
		page.NextPageToken = pagination.SeqToken(page.Events[pageSize-1].Seq)
		page.Events = page.Events[:pageSize]
	}
	return page, nil
}

// LatestSeq returns the highest stored sequence for a project.
func (s *Store) LatestSeq(ctx context.Context, projectAddress string) (uint64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var seq int64
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM project_events WHERE project_address = ?`,
		strings.TrimSpace(projectAddress),
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return uint64(seq), nil
}

// PutProjectSummary upserts a summary unless a newer one is stored.
func (s *Store) PutProjectSummary(ctx context.Context, summary storage.ProjectSummary) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	address := strings.TrimSpace(summary.Address)
	if address == "" {
		return fmt.Errorf("project address is required")
	}
	updatedAt := summary.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	createdAt := summary.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO project_summaries (
		   address, team_wallet, state, vault_address, payment_token, project_token,
		   vault_balance, total_pledged, min_pledged_sum, num_pledgers,
		   milestones, succeeded_milestones, grace_end, cid, last_seq,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   team_wallet = excluded.team_wallet,
		   state = excluded.state,
		   vault_address = excluded.vault_address,
		   payment_token = excluded.payment_token,
		   project_token = excluded.project_token,
		   vault_balance = excluded.vault_balance,
		   total_pledged = excluded.total_pledged,
		   min_pledged_sum = excluded.min_pledged_sum,
		   num_pledgers = excluded.num_pledgers,
		   milestones = excluded.milestones,
		   succeeded_milestones = excluded.succeeded_milestones,
		   grace_end = excluded.grace_end,
		   cid = excluded.cid,
		   last_seq = excluded.last_seq,
		   updated_at = excluded.updated_at
		 WHERE excluded.last_seq >= project_summaries.last_seq`,
		address,
		summary.TeamWallet,
		summary.State,
		summary.VaultAddress,
		summary.PaymentToken,
		summary.ProjectToken,
		defaultAmount(summary.VaultBalance),
		defaultAmount(summary.TotalPledged),
		defaultAmount(summary.MinPledgedSum),
		int64(summary.NumPledgers),
		summary.Milestones,
		summary.SucceededMilestones,
		toMillis(summary.GraceEnd),
		summary.CID,
		int64(summary.LastSeq),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put project summary: %w", err)
	}
	return nil
}

const summaryColumns = `address, team_wallet, state, vault_address, payment_token, project_token,
		        vault_balance, total_pledged, min_pledged_sum, num_pledgers,
		        milestones, succeeded_milestones, grace_end, cid, last_seq,
		        created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (storage.ProjectSummary, error) {
	var summary storage.ProjectSummary
	var numPledgers, graceEnd, lastSeq, createdAt, updatedAt int64
	err := row.Scan(
		&summary.Address,
		&summary.TeamWallet,
		&summary.State,
		&summary.VaultAddress,
		&summary.PaymentToken,
		&summary.ProjectToken,
		&summary.VaultBalance,
		&summary.TotalPledged,
		&summary.MinPledgedSum,
		&numPledgers,
		&summary.Milestones,
		&summary.SucceededMilestones,
		&graceEnd,
		&summary.CID,
		&lastSeq,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return storage.ProjectSummary{}, err
	}
	summary.NumPledgers = uint64(numPledgers)
	summary.GraceEnd = fromMillis(graceEnd)
	summary.LastSeq = uint64(lastSeq)
	summary.CreatedAt = fromMillis(createdAt)
	summary.UpdatedAt = fromMillis(updatedAt)
	return summary, nil
}

// GetProjectSummary returns one summary by project address.
func (s *Store) GetProjectSummary(ctx context.Context, address string) (storage.ProjectSummary, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ProjectSummary{}, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return storage.ProjectSummary{}, fmt.Errorf("project address is required")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM project_summaries WHERE address = ?`, address)
	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ProjectSummary{}, storage.ErrNotFound
		}
		return storage.ProjectSummary{}, fmt.Errorf("get project summary: %w", err)
	}
	return summary, nil
}

// ListProjectSummaries returns one page of summaries ordered by address.
func (s *Store) ListProjectSummaries(ctx context.Context, pageSize int, pageToken string, cond filter.Condition) (storage.SummaryPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.SummaryPage{}, err
	}
	if pageSize <= 0 {
		return storage.SummaryPage{}, fmt.Errorf("page size must be greater than zero")
	}
	pageToken = strings.TrimSpace(pageToken)

	query := `SELECT ` + summaryColumns + ` FROM project_summaries WHERE address > ?`
	args := []any{pageToken}
	if !cond.IsEmpty() {
		query += ` AND ` + cond.Clause
		args = append(args, cond.Params...)
	}
	query += ` ORDER BY address ASC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.SummaryPage{}, fmt.Errorf("list project summaries: %w", err)
	}
	defer rows.Close()

	page := storage.SummaryPage{Summaries: make([]storage.ProjectSummary, 0, pageSize)}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return storage.SummaryPage{}, fmt.Errorf("list project summaries: %w", err)
		}
		page.Summaries = append(page.Summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return storage.SummaryPage{}, fmt.Errorf("list project summaries: %w", err)
	}
	if len(page.Summaries) > pageSize {
		page.NextPageToken = page.Summaries[pageSize-1].Address
		page.Summaries = page.Summaries[:pageSize]
	}
	return page, nil
}

func defaultAmount(value string) string {
	if strings.TrimSpace(value) == "" {
		return "0"
	}
	return value
}

func isUniqueViolation(err error, table string) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, table+".")
}

var _ storage.Store = (*Store)(nil)
