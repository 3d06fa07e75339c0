package model

import (
	"time"

	"github.com/google/uuid"
)

// Velocity is the deterministic classification of an employer's net hiring
// change for a week relative to its own history.
type Velocity string

const (
	VelocityUp     Velocity = "up"
	VelocityStable Velocity = "stable"
	VelocityDown   Velocity = "down"
)

// WeeklySummary is one employer's hiring snapshot and narrative for one
// calendar week, keyed by the week's Monday. Rows are created once and never
// updated; regeneration requires explicit deletion first.
type WeeklySummary struct {
	ID           uuid.UUID
	EmployerSlug string
	WeekStart    time.Time // Monday, midnight UTC

	AddedCount   int
	RemovedCount int
	ActiveCount  int
	AddedIDs     []uuid.UUID
	RemovedIDs   []uuid.UUID

	Velocity       Velocity
	SummaryText    string
	FocusAreas     []string
	NotableChanges []string
	Anomalies      []string

	CreatedAt time.Time
}

// SectorSummary is the sector-wide roll-up for one calendar week, keyed by
// the week's Monday. Same creation/immutability rule as WeeklySummary.
type SectorSummary struct {
	ID        uuid.UUID
	WeekStart time.Time

	Employers    int
	ActiveCount  int
	AddedCount   int
	RemovedCount int

	SummaryText    string
	TrendingRoles  []string
	TrendingSkills []string
	SectorSignals  []string

	CreatedAt time.Time
}
