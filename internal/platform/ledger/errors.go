package ledger

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Stage identifies where in the transaction pipeline a call failed.
type Stage string

const (
	StageEndorse      Stage = "endorse"
	StageSubmit       Stage = "submit"
	StageCommitStatus Stage = "commit-status"
	StageEvaluate     Stage = "evaluate"
)

// Error kinds, matched with errors.Is against an *Error.
var (
	ErrEndorsement   = errors.New("ledger endorsement failed")
	ErrOrdering      = errors.New("ledger ordering submission failed")
	ErrCommitStatus  = errors.New("ledger commit status failed")
	ErrCommunication = errors.New("ledger gateway communication failed")
	ErrTimeout       = errors.New("ledger deadline exceeded")
)

// Error is a failed ledger call tagged with its pipeline stage.
type Error struct {
	Stage       Stage
	Transaction string
	TxID        string
	// Code is the gRPC status code reported by the gateway, or the
	// transaction validation code for transactions invalidated at commit.
	Code    string
	Timeout bool
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ledger %s %s", e.Stage, e.Transaction)
	if e.Timeout {
		msg += " timed out"
	} else {
		msg += " failed"
	}
	if e.TxID != "" {
		msg += " (tx " + e.TxID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is maps the error onto exactly one of the exported kinds. A timed out call
// only matches ErrTimeout, whatever stage it was in.
func (e *Error) Is(target error) bool {
	if e.Timeout {
		return target == ErrTimeout
	}
	switch target {
	case ErrEndorsement:
		return e.Stage == StageEndorse
	case ErrOrdering:
		return e.Stage == StageSubmit
	case ErrCommitStatus:
		return e.Stage == StageCommitStatus
	case ErrCommunication:
		return e.Stage == StageEvaluate
	}
	return false
}

// StageOf returns the stage of a ledger failure, or "" when err is not one.
func StageOf(err error) Stage {
	var le *Error
	if errors.As(err, &le) {
		return le.Stage
	}
	return ""
}

// IsSubmitPipeline reports whether err is an endorsement, ordering or
// commit-status failure. Timeouts are not included.
func IsSubmitPipeline(err error) bool {
	var le *Error
	if !errors.As(err, &le) || le.Timeout {
		return false
	}
	switch le.Stage {
	case StageEndorse, StageSubmit, StageCommitStatus:
		return true
	}
	return false
}

// Wrap tags err with the given stage unless it already is an *Error.
// Deadline expiry, either from ctx or reported by the peer, becomes a timeout.
func Wrap(stage Stage, transaction string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return newError(stage, transaction, err)
}

func newError(stage Stage, transaction string, err error) *Error {
	out := &Error{Stage: stage, Transaction: transaction, Err: err}
	code := status.Code(err)
	if code != codes.Unknown && code != codes.OK {
		out.Code = code.String()
	}
	if errors.Is(err, context.DeadlineExceeded) || code == codes.DeadlineExceeded {
		out.Timeout = true
		out.Code = codes.DeadlineExceeded.String()
	}
	return out
}
