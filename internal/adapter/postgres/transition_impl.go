package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/user/slotwatch/internal/entity"
)

// Schema creates the single-row-per-target transition table.
const Schema = `
	CREATE TABLE IF NOT EXISTS slot_transitions (
		target           TEXT PRIMARY KEY,
		state            TEXT NOT NULL,
		transitioned_at  TIMESTAMPTZ NOT NULL,
		previous_for_ms  BIGINT NOT NULL DEFAULT 0,
		message          TEXT NOT NULL DEFAULT ''
	);
`

// DBTX is the subset of *pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TransitionRepoImpl provides a concrete implementation for the TransitionRepository interface using PostgreSQL.
type TransitionRepoImpl struct {
	db DBTX
}

// NewTransitionRepo creates a new instance of TransitionRepoImpl.
func NewTransitionRepo(db DBTX) *TransitionRepoImpl {
	return &TransitionRepoImpl{db: db}
}

// Migrate ensures the slot_transitions table exists.
func (r *TransitionRepoImpl) Migrate(ctx context.Context) error {
	_, err := r.db.Exec(ctx, Schema)
	return err
}

// Save upserts the latest transition for a target, replacing the previous one.
func (r *TransitionRepoImpl) Save(ctx context.Context, t *entity.Transition) error {
	query := `
		INSERT INTO slot_transitions (target, state, transitioned_at, previous_for_ms, message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (target) DO UPDATE SET
			state = EXCLUDED.state,
			transitioned_at = EXCLUDED.transitioned_at,
			previous_for_ms = EXCLUDED.previous_for_ms,
			message = EXCLUDED.message;
	`
	_, err := r.db.Exec(ctx, query,
		t.Target,
		t.State.String(),
		t.TransitionedAt,
		t.PreviousFor.Milliseconds(),
		t.Message,
	)
	return err
}

// FindByTarget retrieves the latest transition for a target.
func (r *TransitionRepoImpl) FindByTarget(ctx context.Context, target string) (*entity.Transition, error) {
	query := `
		SELECT target, state, transitioned_at, previous_for_ms, message
		FROM slot_transitions
		WHERE target = $1;
	`
	var (
		t          entity.Transition
		state      string
		previousMS int64
	)
	err := r.db.QueryRow(ctx, query, target).Scan(&t.Target, &state, &t.TransitionedAt, &previousMS, &t.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.State = parseState(state)
	t.PreviousFor = time.Duration(previousMS) * time.Millisecond
	return &t, nil
}

func parseState(s string) entity.TrackerState {
	switch s {
	case entity.StateHasSlot.String():
		return entity.StateHasSlot
	case entity.StateNoSlot.String():
		return entity.StateNoSlot
	default:
		return entity.StateUnknown
	}
}
