// Package ledger is the transaction boundary to the Fabric network. Callers
// see two call classes: Submit, which goes through endorsement, ordering and
// commit, and Evaluate, which is a single-peer read.
package ledger

import "context"

// Ledger invokes named chaincode transactions with string arguments.
// Implementations must be safe for concurrent use.
type Ledger interface {
	Submit(ctx context.Context, name string, args ...string) ([]byte, error)
	Evaluate(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Class names the call class of a transaction.
type Class string

const (
	ClassSubmit   Class = "submit"
	ClassEvaluate Class = "evaluate"
)
