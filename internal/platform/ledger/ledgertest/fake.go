// Package ledgertest provides a recording in-memory ledger.Ledger for tests.
package ledgertest

import (
	"context"
	"sync"

	"github.com/simedi/gateway/internal/platform/ledger"
)

// Call is one recorded transaction invocation.
type Call struct {
	Class ledger.Class
	Name  string
	Args  []string
}

// Fake records every call and answers through SubmitFunc / EvaluateFunc.
// A nil func answers with an empty result and no error.
type Fake struct {
	SubmitFunc   func(ctx context.Context, name string, args ...string) ([]byte, error)
	EvaluateFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	mu    sync.Mutex
	calls []Call
}

var _ ledger.Ledger = (*Fake)(nil)

func (f *Fake) Submit(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.record(ledger.ClassSubmit, name, args)
	if f.SubmitFunc != nil {
		return f.SubmitFunc(ctx, name, args...)
	}
	return nil, nil
}

func (f *Fake) Evaluate(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.record(ledger.ClassEvaluate, name, args)
	if f.EvaluateFunc != nil {
		return f.EvaluateFunc(ctx, name, args...)
	}
	return nil, nil
}

// Calls returns a copy of the recorded calls in invocation order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsNamed returns the recorded calls for one transaction name.
func (f *Fake) CallsNamed(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(class ledger.Class, name string, args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Class: class, Name: name, Args: append([]string(nil), args...)})
}

// Returns answers every call with the given payload.
func Returns(payload []byte) func(context.Context, string, ...string) ([]byte, error) {
	return func(context.Context, string, ...string) ([]byte, error) {
		return payload, nil
	}
}

// Fails answers every call with err.
func Fails(err error) func(context.Context, string, ...string) ([]byte, error) {
	return func(context.Context, string, ...string) ([]byte, error) {
		return nil, err
	}
}

// Blocks waits for ctx to end and returns its error, simulating a peer that
// never answers.
func Blocks() func(context.Context, string, ...string) ([]byte, error) {
	return func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}
