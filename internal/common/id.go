package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewSourceID generates a unique source ID with the "src_" prefix
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewEntryID generates a unique entry ID with the "entry_" prefix
func NewEntryID() string {
	return "entry_" + uuid.New().String()
}

// NewWorkerID generates a worker identity of the form "worker-<8 hex>".
// Worker ids are process-generated and never persisted as entities; they
// only appear as the locked_by value on leased jobs.
func NewWorkerID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "worker-" + raw[:8]
}
