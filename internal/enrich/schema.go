package enrich

import "github.com/tyhouch/openroles.dev/internal/llm"

// enrichmentSchema is enforced server-side via structured outputs, so the
// response parses directly into the enrichment payload.
var enrichmentSchema = llm.Schema{
	Name: "posting_enrichment",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"normalized_title": map[string]any{"type": "string"},
			"seniority": map[string]any{
				"type": "string",
				"enum": []string{
					"intern", "junior", "mid", "senior", "staff", "principal",
					"lead", "manager", "director", "vp", "c_level", "unknown",
				},
			},
			"function": map[string]any{
				"type": "string",
				"enum": []string{
					"engineering", "research", "ml_ai", "product", "design",
					"sales", "marketing", "operations", "finance", "legal",
					"people", "security", "data", "support", "other",
				},
			},
			"team_area":     map[string]any{"type": "string"},
			"is_leadership": map[string]any{"type": "boolean"},
			"experience_years_min": map[string]any{
				"type": []string{"integer", "null"},
			},
			"remote_policy": map[string]any{
				"type": "string",
				"enum": []string{"remote", "hybrid", "onsite", "unknown"},
			},
			"tech_stack": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"keywords": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"notable_signals": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"salary_min": map[string]any{
				"type": []string{"integer", "null"},
			},
			"salary_max": map[string]any{
				"type": []string{"integer", "null"},
			},
			"salary_currency": map[string]any{
				"type": []string{"string", "null"},
			},
		},
		"required": []string{
			"normalized_title", "seniority", "function", "team_area",
			"is_leadership", "experience_years_min", "remote_policy",
			"tech_stack", "keywords", "notable_signals",
			"salary_min", "salary_max", "salary_currency",
		},
	},
}
