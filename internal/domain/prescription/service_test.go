package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/gateway"
	"github.com/simedi/gateway/internal/platform/ledger"
	"github.com/simedi/gateway/internal/platform/ledger/ledgertest"
)

var testNow = time.Date(2024, 3, 10, 9, 30, 0, 5000, time.UTC)

func newTestService(fake *ledgertest.Fake) *Service {
	svc := NewService(fake, zerolog.Nop())
	svc.Core().SetClock(func() time.Time { return testNow })
	return svc
}

func TestService_CreatePrescription(t *testing.T) {
	fake := &ledgertest.Fake{}
	svc := newTestService(fake)

	sig := "forged"
	p := &Prescription{
		ID:         "client-chosen",
		SubjectID:  "12345678",
		Status:     StatusCompleted,
		Medication: "Amoxicillin 500mg",
		Signature:  &sig,
	}
	receipt, err := svc.CreatePrescription(context.Background(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.SubjectIdentifier != "12345678" {
		t.Errorf("expected subject 12345678, got %s", receipt.SubjectIdentifier)
	}
	if receipt.CreationTimestamp == "" {
		t.Error("expected creation timestamp")
	}

	calls := fake.CallsNamed("CreatePrescription")
	if len(calls) != 1 || calls[0].Class != ledger.ClassSubmit {
		t.Fatalf("expected one submit CreatePrescription, got %+v", fake.Calls())
	}
	var sent Prescription
	if err := json.Unmarshal([]byte(calls[0].Args[0]), &sent); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if sent.SubjectID != "12345678" || sent.Medication != "Amoxicillin 500mg" {
		t.Errorf("payload missing subject or medication: %s", calls[0].Args[0])
	}
	if sent.Status != StatusDraft {
		t.Errorf("expected draft status, got %s", sent.Status)
	}
	if sent.StatusChangedAt == nil || !sent.StatusChangedAt.Equal(testNow) {
		t.Errorf("expected statusChangedAt %s, got %v", testNow, sent.StatusChangedAt)
	}
	if sent.Signature != nil {
		t.Error("signature must not be set on create")
	}
	if sent.ID == "client-chosen" || sent.ID == "" {
		t.Errorf("expected generated id, got %q", sent.ID)
	}
}

func TestService_CreatePrescription_EndorsementAbsorbed(t *testing.T) {
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Fails(&ledger.Error{
		Stage: ledger.StageEndorse, Transaction: "CreatePrescription", Err: errors.New("prescription already exists"),
	})}
	svc := newTestService(fake)

	receipt, err := svc.CreatePrescription(context.Background(), &Prescription{SubjectID: "12345678"})
	if err != nil {
		t.Fatalf("expected endorsement failure to be absorbed, got %v", err)
	}
	if receipt == nil {
		t.Fatal("expected a receipt")
	}
}

func TestService_CreatePrescription_Nil(t *testing.T) {
	svc := newTestService(&ledgertest.Fake{})
	if _, err := svc.CreatePrescription(context.Background(), nil); !errors.Is(err, gateway.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_GetPrescription_NotFound(t *testing.T) {
	fake := &ledgertest.Fake{EvaluateFunc: ledgertest.Returns([]byte(""))}
	svc := newTestService(fake)

	if _, err := svc.GetPrescription(context.Background(), "missing"); !errors.Is(err, gateway.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_GetPrescriptions_Order(t *testing.T) {
	payload := `[{"id":"b","subjectIdentifier":"1"},{"id":"a","subjectIdentifier":"1"}]`
	fake := &ledgertest.Fake{EvaluateFunc: ledgertest.Returns([]byte(payload))}
	svc := newTestService(fake)

	items, err := svc.GetPrescriptions(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "b" || items[1].ID != "a" {
		t.Errorf("expected ledger order [b a], got %+v", items)
	}
}

func TestService_SearchPrescriptions_InvalidStatus(t *testing.T) {
	fake := &ledgertest.Fake{}
	svc := newTestService(fake)

	if _, err := svc.SearchPrescriptions(context.Background(), "1", "shipped"); !errors.Is(err, gateway.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
	if len(fake.Calls()) != 0 {
		t.Error("expected no ledger calls")
	}
}

func TestService_PagePrescriptions(t *testing.T) {
	fake := &ledgertest.Fake{EvaluateFunc: ledgertest.Returns([]byte(`{"records":[],"bookmark":"","fetchedCount":0}`))}
	svc := newTestService(fake)

	if _, err := svc.PagePrescriptions(context.Background(), "12345678", StatusActive, 0, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := fake.CallsNamed("GetPrescriptionsBySubjectPaginated")
	if len(calls) != 1 {
		t.Fatalf("expected one paginated query, got %d", len(calls))
	}
	want := []string{"12345678", StatusActive, "10", ""}
	got := calls[0].Args
	if len(got) != len(want) {
		t.Fatalf("expected args %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestService_SignPrescription_CommitStatus(t *testing.T) {
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Fails(&ledger.Error{
		Stage: ledger.StageCommitStatus, Transaction: "SignPrescription", Code: "MVCC_READ_CONFLICT",
	})}
	svc := newTestService(fake)

	if err := svc.SignPrescription(context.Background(), "p1", "sig"); !errors.Is(err, ledger.ErrCommitStatus) {
		t.Errorf("expected ErrCommitStatus, got %v", err)
	}
}

func TestService_DeliverPrescription(t *testing.T) {
	fake := &ledgertest.Fake{}
	svc := newTestService(fake)

	if err := svc.DeliverPrescription(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := fake.CallsNamed("DeliverPrescription")
	if len(calls) != 1 || calls[0].Args[0] != "p1" {
		t.Errorf("expected DeliverPrescription(p1), got %+v", fake.Calls())
	}
}

func TestService_TransferPrescription(t *testing.T) {
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Returns([]byte("dr-house"))}
	svc := newTestService(fake)

	prev, err := svc.TransferPrescription(context.Background(), "p1", "dr-wilson")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev != "dr-house" {
		t.Errorf("expected previous owner dr-house, got %s", prev)
	}
}

func TestService_DeletePrescription_Timeout(t *testing.T) {
	fake := &ledgertest.Fake{SubmitFunc: ledgertest.Blocks()}
	svc := newTestService(fake)
	svc.Core().SetTimeouts(gateway.Timeouts{Submit: 10 * time.Millisecond})

	if err := svc.DeletePrescription(context.Background(), "p1"); !errors.Is(err, ledger.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
