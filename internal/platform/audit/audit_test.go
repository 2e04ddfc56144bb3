package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/simedi/gateway/internal/platform/ledger"
)

func TestNewEntry_Success(t *testing.T) {
	e := NewEntry(ledger.ClassSubmit, "CreatePrescription", nil, 40*time.Millisecond)
	if e.Outcome != OutcomeSuccess {
		t.Errorf("expected success, got %s", e.Outcome)
	}
	if e.Stage != "" || e.Error != "" {
		t.Errorf("expected no failure fields, got %+v", e)
	}
	if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected an entry id")
	}
	if e.RecordedAt.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %s", e.RecordedAt.Location())
	}
}

func TestNewEntry_LedgerFailure(t *testing.T) {
	err := fmt.Errorf("create: %w", &ledger.Error{
		Stage:       ledger.StageEndorse,
		Transaction: "CreatePrescription",
		TxID:        "tx1",
		Code:        "Aborted",
		Err:         errors.New("chaincode said no"),
	})
	e := NewEntry(ledger.ClassSubmit, "CreatePrescription", err, time.Millisecond)
	if e.Outcome != OutcomeFailure {
		t.Errorf("expected failure, got %s", e.Outcome)
	}
	if e.Stage != ledger.StageEndorse || e.TxID != "tx1" || e.Code != "Aborted" {
		t.Errorf("unexpected failure fields %+v", e)
	}
	if !strings.Contains(e.Error, "chaincode said no") {
		t.Errorf("expected error text, got %q", e.Error)
	}
}

func TestNewEntry_Timeout(t *testing.T) {
	cases := []error{
		&ledger.Error{Stage: ledger.StageEvaluate, Timeout: true},
		context.DeadlineExceeded,
	}
	for _, err := range cases {
		if e := NewEntry(ledger.ClassEvaluate, "ReadPrescription", err, time.Second); e.Outcome != OutcomeTimeout {
			t.Errorf("%v: expected timeout, got %s", err, e.Outcome)
		}
	}
}

func TestNewEntry_PlainError(t *testing.T) {
	e := NewEntry(ledger.ClassEvaluate, "ReadPrescription", errors.New("boom"), 0)
	if e.Outcome != OutcomeFailure || e.Stage != "" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestEntry_MarshalJSON(t *testing.T) {
	e := NewEntry(ledger.ClassSubmit, "SignPrescription", nil, 1500*time.Millisecond)
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["durationMs"] != float64(1500) {
		t.Errorf("expected durationMs 1500, got %v", got["durationMs"])
	}
	if got["transaction"] != "SignPrescription" || got["class"] != "submit" {
		t.Errorf("unexpected payload %s", data)
	}
	if _, ok := got["stage"]; ok {
		t.Errorf("expected no stage on success, got %s", data)
	}
}
