// Package seeder implements the offer-segment generation and batched-write
// pipeline: deterministic segment identity, multi-row upsert construction,
// coordinated two-table flushes, and the synthetic generator that feeds them.
package seeder

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch reports an Append whose value count does not match the
// builder's configured columns. It is a programmer error: fail fast, never
// retried or recovered.
var ErrShapeMismatch = errors.New("row shape does not match configured columns")

// FlushError reports which flush of a write run failed. The statement error
// from the execution layer passes through Unwrap unchanged. There is no
// automatic rollback of the concurrent write that succeeded; re-running the
// whole flush is the recovery path, and upsert semantics make that
// idempotent.
type FlushError struct {
	Index int
	Err   error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %d failed: %v", e.Index, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}

func IsShapeMismatch(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}

// AsFlushError extracts the failing flush report, if the error carries one
func AsFlushError(err error) (*FlushError, bool) {
	var fe *FlushError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
