package generate

import "github.com/kmori/trailmap/internal/llm"

// PlanSchema constrains the plan proposal output.
var PlanSchema = &llm.Schema{
	Name:        "proposed-plan",
	Description: "A tech stack proposal with numbered learning step titles",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"complexity": map[string]any{
				"type":        "string",
				"enum":        []any{"Low", "Medium", "High"},
				"description": "Project complexity adjusted for the learner's level",
			},
			"stack": map[string]any{
				"type":        "string",
				"description": "Comma-separated technologies, each with its usage in parentheses",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Brief rationale for the stack and complexity choice",
			},
			"steps": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"step":  map[string]any{"type": "integer", "minimum": 1},
						"title": map[string]any{"type": "string"},
					},
					"required":             []any{"step", "title"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"complexity", "stack", "reason", "steps"},
		"additionalProperties": false,
	},
}

// RoadmapSchema constrains the full roadmap output.
var RoadmapSchema = &llm.Schema{
	Name:        "roadmap",
	Description: "Detailed step descriptions for an approved learning plan",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"roadmap": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"step":        map[string]any{"type": "integer", "minimum": 1},
						"title":       map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"quizzes": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "object"},
							"description": "Always empty; quizzes are generated on demand",
						},
					},
					"required":             []any{"step", "title", "description", "quizzes"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"roadmap"},
		"additionalProperties": false,
	},
}

// QuizSchema constrains the per-step quiz output.
var QuizSchema = &llm.Schema{
	Name:        "step-quiz",
	Description: "Multiple-choice comprehension quizzes for one learning step",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quizzes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 options, exactly one correct",
						},
						"answer_index": map[string]any{
							"type":    "integer",
							"minimum": 0,
							"maximum": 3,
						},
						"explanation": map[string]any{"type": "string"},
					},
					"required":             []any{"question", "options", "answer_index", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"quizzes"},
		"additionalProperties": false,
	},
}
