package model

// Status is the uniform outcome vocabulary every exposed operation returns.
// Orchestration logic switches on these values only.
type Status string

const (
	// StatusSuccess means the operation ran and committed its work.
	StatusSuccess Status = "success"
	// StatusSkipped means a precondition was not met (missing credential or
	// ATS configuration); no partial work was attempted.
	StatusSkipped Status = "skipped"
	// StatusExists means the target record already exists and the operation
	// was an idempotent no-op.
	StatusExists Status = "exists"
	// StatusFailed means the operation ran and failed; detail is recorded on
	// the result rather than raised.
	StatusFailed Status = "failed"
)
