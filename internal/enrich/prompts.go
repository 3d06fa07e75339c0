package enrich

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/posting.md
var postingPromptRaw string

// postingTemplate is the parsed user-prompt template for posting enrichment.
// Parsed once at package init; reused on every call.
var postingTemplate = template.Must(template.New("posting").Parse(postingPromptRaw))

// postingPromptData is the template context for one posting.
type postingPromptData struct {
	EmployerName string
	Title        string
	Department   string
	Location     string
	Description  string
}
