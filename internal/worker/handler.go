package worker

import (
	"context"
	"errors"
)

// JobHandler executes one kind of background job. Implementations live in
// the jobs package; each is registered on the Worker keyed by its Type.
type JobHandler interface {
	// Type is the job_type value this handler claims from the queue.
	Type() string

	// Handle runs the job. The payload is the raw JSON stored at enqueue
	// time. A returned PermanentError fails the job immediately; any other
	// error reschedules it with backoff until attempts run out.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError marks a failure that retrying cannot fix: a garbled
// payload, a deleted resource, a translation target that will never parse.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err so the queue fails the job without retrying.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, anywhere in its chain, is permanent.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
