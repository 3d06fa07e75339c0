package synth

import "github.com/tyhouch/openroles.dev/internal/llm"

var stringArray = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

// employerSynthesisSchema shapes the narrative half of an employer weekly
// summary. Counts and velocity are computed here, never by the model.
var employerSynthesisSchema = llm.Schema{
	Name: "employer_week_synthesis",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary_text":    map[string]any{"type": "string"},
			"focus_areas":     stringArray,
			"notable_changes": stringArray,
			"anomalies":       stringArray,
		},
		"required": []string{"summary_text", "focus_areas", "notable_changes", "anomalies"},
	},
}

// sectorSynthesisSchema shapes the narrative half of a sector weekly summary.
var sectorSynthesisSchema = llm.Schema{
	Name: "sector_week_synthesis",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary_text":    map[string]any{"type": "string"},
			"trending_roles":  stringArray,
			"trending_skills": stringArray,
			"sector_signals":  stringArray,
		},
		"required": []string{"summary_text", "trending_roles", "trending_skills", "sector_signals"},
	},
}
