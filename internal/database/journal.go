package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/channel-console/internal/session"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertJournalEntry = `
	INSERT INTO channel_session_events
		(connection_id, attempt, event, from_status, to_status, message, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Journal appends session status changes to PostgreSQL. The table is
// created by Migrate.
type Journal struct {
	db Execer
}

// NewJournal creates a Journal writing through db.
func NewJournal(db Execer) *Journal {
	return &Journal{db: db}
}

// Append implements session.Journal. A zero connection id is stored as NULL.
func (j *Journal) Append(ctx context.Context, e session.JournalEntry) error {
	var connID *int64
	if e.ConnectionID != 0 {
		id := e.ConnectionID
		connID = &id
	}

	ct, err := j.db.Exec(ctx, insertJournalEntry,
		connID,
		int64(e.Attempt),
		e.Event,
		string(e.From),
		string(e.To),
		e.Message,
		e.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("insert journal entry: %d rows affected", ct.RowsAffected())
	}
	return nil
}
