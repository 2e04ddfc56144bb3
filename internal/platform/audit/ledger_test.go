package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/auth"
	"github.com/simedi/gateway/internal/platform/ledger"
	"github.com/simedi/gateway/internal/platform/ledger/ledgertest"
	"github.com/simedi/gateway/internal/platform/middleware"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []*Entry
	ctxErrs []error
	err     error
}

func (m *memRecorder) Record(ctx context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

func TestLedger_RecordsSubmit(t *testing.T) {
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Returns([]byte("ok"))}
	rec := &memRecorder{}
	l := NewLedger(fake, rec, zerolog.Nop())

	ctx := auth.WithUser(context.Background(), "dr-house", []string{"physician"})
	ctx = middleware.WithRequestID(ctx, "req-1")

	out, err := l.Submit(ctx, "CreatePrescription", "id1", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "ok" {
		t.Errorf("expected payload to pass through, got %q", out)
	}
	if len(fake.Calls()) != 1 || fake.Calls()[0].Args[0] != "id1" {
		t.Errorf("expected the call to reach the ledger unchanged, got %+v", fake.Calls())
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Class != ledger.ClassSubmit || e.Transaction != "CreatePrescription" || e.Outcome != OutcomeSuccess {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.UserID != "dr-house" || e.RequestID != "req-1" {
		t.Errorf("expected caller identity on the entry, got user=%q request=%q", e.UserID, e.RequestID)
	}
}

func TestLedger_RecordsEvaluateFailure(t *testing.T) {
	callErr := &ledger.Error{Stage: ledger.StageEvaluate, Transaction: "ReadPrescription", Err: errors.New("unavailable")}
	fake := &ledgertest.Fake{EvaluateFunc: ledgertest.Fails(callErr)}
	rec := &memRecorder{}
	l := NewLedger(fake, rec, zerolog.Nop())

	_, err := l.Evaluate(context.Background(), "ReadPrescription", "id1")
	if err != callErr {
		t.Fatalf("expected the ledger error unchanged, got %v", err)
	}
	e := rec.entries[0]
	if e.Class != ledger.ClassEvaluate || e.Outcome != OutcomeFailure || e.Stage != ledger.StageEvaluate {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestLedger_RecordsAfterCancellation(t *testing.T) {
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Blocks()}
	rec := &memRecorder{}
	l := NewLedger(fake, rec, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Submit(ctx, "SignPrescription", "id1", "sig"); err == nil {
		t.Fatal("expected the blocked call to fail")
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(rec.entries))
	}
	if rec.ctxErrs[0] != nil {
		t.Errorf("expected a live context for the recorder, got %v", rec.ctxErrs[0])
	}
	if rec.entries[0].Outcome != OutcomeTimeout {
		t.Errorf("expected timeout outcome, got %s", rec.entries[0].Outcome)
	}
}

func TestLedger_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Returns(nil)}
	rec := &memRecorder{err: errors.New("db down")}
	l := NewLedger(fake, rec, zerolog.New(&buf))

	if _, err := l.Submit(context.Background(), "DeletePrescription", "id1"); err != nil {
		t.Fatalf("recorder failure must not fail the call, got %v", err)
	}
	if !strings.Contains(buf.String(), "db down") || !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("expected the recorder failure in the log, got %s", buf.String())
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRecorder(zerolog.New(&buf))

	ok := NewEntry(ledger.ClassEvaluate, "GetAllPrescriptions", nil, time.Millisecond)
	if err := r.Record(context.Background(), ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed := NewEntry(ledger.ClassSubmit, "CreatePrescription",
		&ledger.Error{Stage: ledger.StageCommitStatus, TxID: "tx9"}, time.Millisecond)
	if err := r.Record(context.Background(), failed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], "GetAllPrescriptions") {
		t.Errorf("unexpected success line %s", lines[0])
	}
	for _, want := range []string{`"level":"warn"`, `"stage":"commit-status"`, `"tx_id":"tx9"`} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("expected %s in %s", want, lines[1])
		}
	}
}
