package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/ledger"
)

// LogRecorder writes entries to the structured log. Used when no database
// is configured.
type LogRecorder struct {
	logger zerolog.Logger
}

func NewLogRecorder(logger zerolog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(_ context.Context, e *Entry) error {
	ev := r.logger.Info()
	if e.Outcome != OutcomeSuccess {
		ev = r.logger.Warn()
	}
	ev.Str("audit_id", e.ID.String()).
		Str("transaction", e.Transaction).
		Str("class", string(e.Class)).
		Str("outcome", string(e.Outcome)).
		Dur("duration", e.Duration).
		Str("user_id", e.UserID).
		Str("request_id", e.RequestID)
	if e.Stage != "" {
		ev.Str("stage", string(e.Stage))
	}
	if e.TxID != "" {
		ev.Str("tx_id", e.TxID)
	}
	if e.Code != "" {
		ev.Str("code", e.Code)
	}
	if e.Error != "" {
		ev.Str("error", e.Error)
	}
	ev.Msg("ledger transaction")
	return nil
}

// PGRecorder stores entries in the ledger_audit table.
type PGRecorder struct {
	pool *pgxpool.Pool
}

func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

const insertEntry = `
	INSERT INTO ledger_audit (
		id, transaction, class, outcome, stage, tx_id, code, error,
		user_id, request_id, duration_ms, recorded_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

func (r *PGRecorder) Record(ctx context.Context, e *Entry) error {
	_, err := r.pool.Exec(ctx, insertEntry,
		e.ID, e.Transaction, string(e.Class), string(e.Outcome),
		nullable(string(e.Stage)), nullable(e.TxID), nullable(e.Code), nullable(e.Error),
		nullable(e.UserID), nullable(e.RequestID),
		e.Duration.Milliseconds(), e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger audit entry: %w", err)
	}
	return nil
}

const selectRecent = `
	SELECT id, transaction, class, outcome,
		COALESCE(stage, ''), COALESCE(tx_id, ''), COALESCE(code, ''), COALESCE(error, ''),
		COALESCE(user_id, ''), COALESCE(request_id, ''), duration_ms, recorded_at
	FROM ledger_audit
	ORDER BY recorded_at DESC
	LIMIT $1`

func (r *PGRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger audit: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("scan ledger audit: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var e Entry
	var class, outcome, stage string
	var durationMS int64
	err := row.Scan(&e.ID, &e.Transaction, &class, &outcome,
		&stage, &e.TxID, &e.Code, &e.Error,
		&e.UserID, &e.RequestID, &durationMS, &e.RecordedAt)
	if err != nil {
		return Entry{}, err
	}
	e.Class = ledger.Class(class)
	e.Outcome = Outcome(outcome)
	e.Stage = ledger.Stage(stage)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
