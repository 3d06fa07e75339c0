package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal (or in-progress) state of a scrape run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// ScrapeRun records one reconciliation attempt for one employer. It is an
// audit trail only: created when the run opens, finalized exactly once, and
// never read back into business logic.
type ScrapeRun struct {
	ID           uuid.UUID
	EmployerSlug string
	StartedAt    time.Time
	CompletedAt  *time.Time
	Status       RunStatus
	Found        int
	Added        int
	Removed      int
	ErrorText    string
}
