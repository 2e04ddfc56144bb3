// Package audit keeps a metadata trail of every ledger transaction the
// gateway issues. Record payloads never reach the trail.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/simedi/gateway/internal/platform/ledger"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// Entry is one ledger call as seen by the gateway.
type Entry struct {
	ID          uuid.UUID     `json:"id"`
	Transaction string        `json:"transaction"`
	Class       ledger.Class  `json:"class"`
	Outcome     Outcome       `json:"outcome"`
	Stage       ledger.Stage  `json:"stage,omitempty"`
	TxID        string        `json:"txId,omitempty"`
	Code        string        `json:"code,omitempty"`
	Error       string        `json:"error,omitempty"`
	UserID      string        `json:"userId,omitempty"`
	RequestID   string        `json:"requestId,omitempty"`
	Duration    time.Duration `json:"-"`
	RecordedAt  time.Time     `json:"recordedAt"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	type plain Entry
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"durationMs"`
	}{plain(e), e.Duration.Milliseconds()})
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, e *Entry) error

func (f RecorderFunc) Record(ctx context.Context, e *Entry) error { return f(ctx, e) }

// Reader lists recorded entries, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// NewEntry fills the outcome and failure fields of an entry from the result
// of a ledger call.
func NewEntry(class ledger.Class, transaction string, err error, took time.Duration) *Entry {
	e := &Entry{
		ID:          uuid.New(),
		Transaction: transaction,
		Class:       class,
		Outcome:     OutcomeSuccess,
		Duration:    took,
		RecordedAt:  time.Now().UTC(),
	}
	if err == nil {
		return e
	}

	e.Outcome = OutcomeFailure
	e.Error = err.Error()
	var le *ledger.Error
	if errors.As(err, &le) {
		e.Stage = le.Stage
		e.TxID = le.TxID
		e.Code = le.Code
		if le.Timeout {
			e.Outcome = OutcomeTimeout
		}
	} else if errors.Is(err, context.DeadlineExceeded) {
		e.Outcome = OutcomeTimeout
	}
	return e
}
