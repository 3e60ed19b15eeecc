package queue

import (
	"errors"
	"fmt"
)

// ConflictKind names the ways a queue operation can lose a race
type ConflictKind string

const (
	// ConflictDuplicateJob means the source already has a non-terminal job
	ConflictDuplicateJob ConflictKind = "duplicate_job"
	// ConflictNotOwner means the caller no longer holds the job's lease
	ConflictNotOwner ConflictKind = "not_owner"
	// ConflictInvalidState means the job is in a state the operation
	// cannot act on, e.g. cancelling a completed job
	ConflictInvalidState ConflictKind = "invalid_state"
)

// ConflictError reports a queue operation rejected by current state
// rather than by bad input. Callers retry or give up; they never treat
// it as a store failure.
type ConflictError struct {
	Kind    ConflictKind
	JobID   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("queue conflict (%s): %s", e.Kind, e.Message)
}

// NewDuplicateJobError builds the conflict returned when a source
// already has an open job.
func NewDuplicateJobError(sourceID, existingJobID string) *ConflictError {
	return &ConflictError{
		Kind:    ConflictDuplicateJob,
		JobID:   existingJobID,
		Message: fmt.Sprintf("source %s already has open job %s", sourceID, existingJobID),
	}
}

// NewNotOwnerError builds the conflict returned when a worker acts on a
// job it no longer holds.
func NewNotOwnerError(jobID, workerID string) *ConflictError {
	return &ConflictError{
		Kind:    ConflictNotOwner,
		JobID:   jobID,
		Message: fmt.Sprintf("job %s is not held by worker %s", jobID, workerID),
	}
}

// IsConflict reports whether err is any queue conflict
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsDuplicateJob reports whether err is the duplicate-job conflict
func IsDuplicateJob(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Kind == ConflictDuplicateJob
}

// IsNotOwner reports whether err is the lost-lease conflict
func IsNotOwner(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Kind == ConflictNotOwner
}

// AsConflict extracts the conflict detail when err is a ConflictError
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	ok := errors.As(err, &ce)
	return ce, ok
}

// ValidationError reports rejected input on a queue operation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a validation rejection
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrJobNotFound is returned when the referenced job does not exist
var ErrJobNotFound = errors.New("job not found")

// ErrSourceNotFound is returned by Enqueue when the source id has no
// stored source behind it
var ErrSourceNotFound = errors.New("source not found")
