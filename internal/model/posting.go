package model

import (
	"time"

	"github.com/google/uuid"
)

// RawPosting is the normalized shape every ATS adapter produces.
// Either a fetch yields a full valid snapshot of these or it fails as a whole.
type RawPosting struct {
	ExternalID       string
	Title            string
	DescriptionHTML  string
	DescriptionPlain string
	Department       string
	Location         string
	JobURL           string
	ApplyURL         string
	PublishedAt      *time.Time // not all ATS vendors provide this
}

// Posting is one job listing at one employer, tracked across scrape runs.
// (EmployerSlug, ExternalID) is unique. RemovedAt is non-nil exactly while the
// posting is absent from the employer's live snapshot.
type Posting struct {
	ID           uuid.UUID
	EmployerSlug string
	ExternalID   string

	// Raw fields from the ATS.
	Title            string
	DescriptionHTML  string
	DescriptionPlain string
	Department       string
	Location         string
	JobURL           string
	ApplyURL         string
	PublishedAt      *time.Time

	// Lifecycle. FirstSeen never changes after creation; LastSeen only advances.
	FirstSeen time.Time
	LastSeen  time.Time
	RemovedAt *time.Time

	// Enrichment output. EnrichedAt nil = still pending enrichment.
	Enrichment *Enrichment
	EnrichedAt *time.Time
}

// Active reports whether the posting is currently present in the employer's
// live snapshot.
func (p *Posting) Active() bool {
	return p.RemovedAt == nil
}

// Description returns the best available description text, preferring plain
// text over HTML.
func (p *Posting) Description() string {
	if p.DescriptionPlain != "" {
		return p.DescriptionPlain
	}
	return p.DescriptionHTML
}
