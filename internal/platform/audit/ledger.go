package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/auth"
	"github.com/simedi/gateway/internal/platform/ledger"
	"github.com/simedi/gateway/internal/platform/middleware"
)

// Ledger wraps a ledger.Ledger and records each call. The result of the
// wrapped call is returned unchanged; recorder failures are only logged.
type Ledger struct {
	next     ledger.Ledger
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

var _ ledger.Ledger = (*Ledger)(nil)

func NewLedger(next ledger.Ledger, recorder Recorder, logger zerolog.Logger) *Ledger {
	return &Ledger{
		next:     next,
		recorder: recorder,
		logger:   logger.With().Str("component", "audit").Logger(),
		now:      time.Now,
	}
}

func (l *Ledger) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := l.now()
	out, err := l.next.Submit(ctx, name, args...)
	l.record(ctx, ledger.ClassSubmit, name, err, l.now().Sub(start))
	return out, err
}

func (l *Ledger) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	start := l.now()
	out, err := l.next.Evaluate(ctx, name, args...)
	l.record(ctx, ledger.ClassEvaluate, name, err, l.now().Sub(start))
	return out, err
}

func (l *Ledger) record(ctx context.Context, class ledger.Class, name string, callErr error, took time.Duration) {
	e := NewEntry(class, name, callErr, took)
	e.UserID = auth.UserIDFromContext(ctx)
	e.RequestID = middleware.RequestIDFromContext(ctx)

	// The request context may already be done when the call timed out.
	if err := l.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		l.logger.Error().Err(err).
			Str("transaction", name).
			Str("request_id", e.RequestID).
			Msg("failed to record ledger audit entry")
	}
}
