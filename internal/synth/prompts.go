package synth

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/employer_system.md
var employerSystemPrompt string

//go:embed prompts/sector_system.md
var sectorSystemPrompt string

//go:embed prompts/employer.md
var employerPromptRaw string

//go:embed prompts/sector.md
var sectorPromptRaw string

var (
	employerTemplate = template.Must(template.New("employer").Parse(employerPromptRaw))
	sectorTemplate   = template.Must(template.New("sector").Parse(sectorPromptRaw))
)

// employerPromptData is the template context for one employer-week synthesis.
type employerPromptData struct {
	EmployerName string
	Profile      string
	AddedCount   int
	AddedList    string
	RemovedCount int
	RemovedList  string
	FunctionList string
	PreviousList string
}

// sectorPromptData is the template context for one sector-week synthesis.
type sectorPromptData struct {
	WeekStart     string
	Employers     int
	TotalActive   int
	TotalAdded    int
	TotalRemoved  int
	SummariesList string
	FunctionList  string
	KeywordList   string
}
