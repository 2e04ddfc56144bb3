// Package gateway turns record operations into ledger transactions. It owns
// record identifiers, the submit/evaluate split, the record codec and the
// handling of ledger failures; all state lives on the ledger.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simedi/gateway/internal/platform/ledger"
)

// Transactions names the chaincode transactions of one record kind. An
// empty name marks the operation as unsupported for that kind.
type Transactions struct {
	Create                  string
	Read                    string
	ReadMany                string
	ReadAll                 string
	QueryBySubjectAndStatus string
	QueryPage               string
	AdvanceStatus           string
	Sign                    string
	Transfer                string
	Delete                  string
}

// Timeouts bound each ledger call by class.
type Timeouts struct {
	Submit   time.Duration
	Evaluate time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Submit: 30 * time.Second, Evaluate: 10 * time.Second}
}

// Receipt is what create hands back: enough for the caller to correlate the
// record, not the record or its id.
type Receipt struct {
	SubjectIdentifier string `json:"subjectIdentifier"`
	CreationTimestamp string `json:"creationTimestamp"`
}

// Core runs the record operations of one record kind against a ledger.
// It holds no mutable state and is safe for concurrent use.
type Core[T any, R Record[T]] struct {
	ledger   ledger.Ledger
	tx       Transactions
	codec    Codec[T, R]
	timeouts Timeouts
	logger   zerolog.Logger
	now      func() time.Time
}

func NewCore[T any, R Record[T]](l ledger.Ledger, tx Transactions, logger zerolog.Logger) *Core[T, R] {
	return &Core[T, R]{
		ledger:   l,
		tx:       tx,
		timeouts: DefaultTimeouts(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetTimeouts replaces the per-call deadlines. Zero values keep the default.
func (c *Core[T, R]) SetTimeouts(t Timeouts) {
	if t.Submit > 0 {
		c.timeouts.Submit = t.Submit
	}
	if t.Evaluate > 0 {
		c.timeouts.Evaluate = t.Evaluate
	}
}

// SetClock replaces the clock used for creation instants.
func (c *Core[T, R]) SetClock(now func() time.Time) {
	c.now = now
}

// Now returns the core's current time.
func (c *Core[T, R]) Now() time.Time {
	return c.now()
}

// Create assigns the record id, encodes the record and submits it.
//
// Endorsement, ordering and commit-status failures are logged and absorbed:
// the receipt is returned even though the record may not be committed.
// Every other operation propagates those failures.
func (c *Core[T, R]) Create(ctx context.Context, rec R) (*Receipt, error) {
	if err := c.supports(c.tx.Create); err != nil {
		return nil, err
	}
	if (*T)(rec) == nil {
		return nil, fmt.Errorf("%w: record is required", ErrInvalidInput)
	}
	subject := rec.RecordSubject()
	instant := FormatInstant(c.now())
	id, err := GenerateID(subject, instant)
	if err != nil {
		return nil, err
	}
	rec.SetRecordID(id)

	payload, err := c.codec.Encode(rec)
	if err != nil {
		return nil, err
	}

	if _, err := c.submit(ctx, c.tx.Create, string(payload)); err != nil {
		if !ledger.IsSubmitPipeline(err) {
			return nil, err
		}
		c.logger.Warn().
			Err(err).
			Str("transaction", c.tx.Create).
			Str("record_id", id).
			Str("stage", string(ledger.StageOf(err))).
			Msg("create not confirmed by ledger; returning receipt")
	}

	return &Receipt{SubjectIdentifier: subject, CreationTimestamp: instant}, nil
}

// Read returns the record with the given id.
func (c *Core[T, R]) Read(ctx context.Context, id string) (R, error) {
	if err := c.supports(c.tx.Read); err != nil {
		return nil, err
	}
	if err := requireID(id); err != nil {
		return nil, err
	}
	data, err := c.evaluate(ctx, c.tx.Read, id)
	if err != nil {
		return nil, err
	}
	rec, err := c.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return rec, nil
}

// ReadMany returns the records for ids in the order the ledger returns them.
// An empty id list never reaches the ledger.
func (c *Core[T, R]) ReadMany(ctx context.Context, ids []string) ([]R, error) {
	if len(ids) == 0 {
		return []R{}, nil
	}
	if err := c.supports(c.tx.ReadMany); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := requireID(id); err != nil {
			return nil, err
		}
	}
	arg, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode ids: %w", err)
	}
	data, err := c.evaluate(ctx, c.tx.ReadMany, string(arg))
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeMany(data)
}

// ReadAll returns every record of this kind held on the ledger.
func (c *Core[T, R]) ReadAll(ctx context.Context) ([]R, error) {
	if err := c.supports(c.tx.ReadAll); err != nil {
		return nil, err
	}
	data, err := c.evaluate(ctx, c.tx.ReadAll)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeMany(data)
}

// ReadBySubjectAndStatus returns the subject's records in the given status.
func (c *Core[T, R]) ReadBySubjectAndStatus(ctx context.Context, subject, status string) ([]R, error) {
	if err := c.supports(c.tx.QueryBySubjectAndStatus); err != nil {
		return nil, err
	}
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: subject identifier is required", ErrInvalidQuery)
	}
	data, err := c.evaluate(ctx, c.tx.QueryBySubjectAndStatus, subject, status)
	if err != nil {
		return nil, err
	}
	return c.codec.DecodeMany(data)
}

// AdvanceStatus moves the record to its next lifecycle stage. Whether the
// transition is allowed is decided by the chaincode.
func (c *Core[T, R]) AdvanceStatus(ctx context.Context, id string) error {
	if err := c.supports(c.tx.AdvanceStatus); err != nil {
		return err
	}
	if err := requireID(id); err != nil {
		return err
	}
	_, err := c.submit(ctx, c.tx.AdvanceStatus, id)
	return err
}

// Sign attaches a signature. Not idempotent: each call is a new submit.
func (c *Core[T, R]) Sign(ctx context.Context, id, signature string) error {
	if err := c.supports(c.tx.Sign); err != nil {
		return err
	}
	if err := requireID(id); err != nil {
		return err
	}
	if strings.TrimSpace(signature) == "" {
		return fmt.Errorf("%w: signature is required", ErrInvalidInput)
	}
	_, err := c.submit(ctx, c.tx.Sign, id, signature)
	return err
}

// Transfer changes the record owner and returns the previous owner as
// reported by the chaincode.
func (c *Core[T, R]) Transfer(ctx context.Context, id, newOwner string) (string, error) {
	if err := c.supports(c.tx.Transfer); err != nil {
		return "", err
	}
	if err := requireID(id); err != nil {
		return "", err
	}
	if strings.TrimSpace(newOwner) == "" {
		return "", fmt.Errorf("%w: new owner is required", ErrInvalidInput)
	}
	out, err := c.submit(ctx, c.tx.Transfer, id, newOwner)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Delete removes the record from ledger state.
func (c *Core[T, R]) Delete(ctx context.Context, id string) error {
	if err := c.supports(c.tx.Delete); err != nil {
		return err
	}
	if err := requireID(id); err != nil {
		return err
	}
	_, err := c.submit(ctx, c.tx.Delete, id)
	return err
}

func (c *Core[T, R]) submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Submit)
	defer cancel()

	out, err := c.ledger.Submit(ctx, name, args...)
	if err != nil {
		return nil, ledger.Wrap(ledger.StageSubmit, name, err)
	}
	return out, nil
}

func (c *Core[T, R]) evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Evaluate)
	defer cancel()

	out, err := c.ledger.Evaluate(ctx, name, args...)
	if err != nil {
		return nil, ledger.Wrap(ledger.StageEvaluate, name, err)
	}
	return out, nil
}

func (c *Core[T, R]) supports(name string) error {
	if name == "" {
		return ErrUnsupported
	}
	return nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return nil
}
