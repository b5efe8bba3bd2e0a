package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertProcessedSQL = `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT (provider, event_id) DO NOTHING
		RETURNING processed_at`
	purgeProcessedSQL = `DELETE FROM processed_events WHERE processed_at < now() - make_interval(secs => $1)`
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore dedupes against the processed_events table (see
// migrations/). Rows are kept until Purge removes them.
type ProcessedStore struct {
	db pgQuerier
}

var _ Deduper = (*ProcessedStore)(nil)

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{db: pool}
}

func newProcessedStore(db pgQuerier) *ProcessedStore {
	return &ProcessedStore{db: db}
}

// MarkProcessed inserts the id in one round trip. A conflict returns no
// row, which means the event was seen before.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	var at time.Time
	err := s.db.QueryRow(ctx, insertProcessedSQL, provider, eventID).Scan(&at)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, fmt.Errorf("events: mark %s/%s processed: %w", provider, eventID, err)
	}
}

// Purge deletes rows older than retention and reports how many went.
func (s *ProcessedStore) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	tag, err := s.db.Exec(ctx, purgeProcessedSQL, retention.Seconds())
	if err != nil {
		return 0, fmt.Errorf("events: purge processed: %w", err)
	}
	return tag.RowsAffected(), nil
}
