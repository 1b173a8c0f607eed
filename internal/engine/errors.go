package engine

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch guards against a suspicious empty pull: the upstream
// returned zero items while the previous snapshot still tracks content. An
// empty response is indistinguishable from a transient upstream failure, so
// the run aborts before committing instead of deleting everything.
var ErrEmptyBatch = errors.New("pull returned no items while snapshot is non-empty")

// PullError is a run-level failure: the upstream pull did not produce a
// usable batch. Nothing has been mutated when it surfaces.
type PullError struct {
	Err error
}

func (e *PullError) Error() string { return fmt.Sprintf("pull failed: %v", e.Err) }
func (e *PullError) Unwrap() error { return e.Err }

// SinkError is a single-item apply failure. The run continues; the item's
// snapshot entry is left unset so the next run retries it as a create.
type SinkError struct {
	ChmsID string
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink failed for item %s: %v", e.ChmsID, e.Err)
}
func (e *SinkError) Unwrap() error { return e.Err }
