package adapter

import (
	"fmt"
	"net/http"

	"github.com/tyhouch/openroles.dev/internal/model"
)

// ForEmployer returns the snapshot fetcher for the employer's ATS vendor.
// Returns an error for unknown or unconfigured vendors.
func ForEmployer(employer model.Employer, client *http.Client) (model.SnapshotFetcher, error) {
	switch employer.ATS {
	case model.ATSGreenhouse:
		return NewGreenhouseAdapter(employer.Identifier, employer.Name, client), nil
	case model.ATSLever:
		return NewLeverAdapter(employer.Identifier, employer.Name, client), nil
	case model.ATSAshby:
		return NewAshbyAdapter(employer.Identifier, employer.Name, client), nil
	default:
		return nil, fmt.Errorf("unsupported ATS %q for employer %s", employer.ATS, employer.Slug)
	}
}
