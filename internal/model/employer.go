package model

import "context"

// ATS identifies an applicant-tracking-system vendor.
type ATS string

const (
	ATSGreenhouse ATS = "greenhouse"
	ATSLever      ATS = "lever"
	ATSAshby      ATS = "ashby"
)

// Employer is one tracked company. The set of employers is fixed per
// deployment and declared in configuration.
type Employer struct {
	Name       string
	Slug       string
	ATS        ATS
	Identifier string // vendor-side board/company identifier
	Profile    string // markdown profile text fed into weekly synthesis
}

// Configured reports whether the employer has enough ATS configuration to be
// scraped at all. An unconfigured employer is skipped, not failed.
func (e Employer) Configured() bool {
	return e.ATS != "" && e.Identifier != ""
}

// SnapshotFetcher fetches the current full snapshot of an employer's postings
// from one ATS. Either a complete valid snapshot is returned or an error;
// there is no partial-list contract.
type SnapshotFetcher interface {
	FetchPostings(ctx context.Context) ([]RawPosting, error)
}
