package claude

import anthropic "github.com/anthropics/anthropic-sdk-go"

// recordDayTool mirrors the extraction output schema as a JSON Schema.
func recordDayTool() *anthropic.ToolParam {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "description": "Short food name, e.g. \"scrambled eggs\"."},
			"quantity": map[string]any{"type": "string", "description": "Human quantity, e.g. \"2 slices\"."},
			"calories": map[string]any{"type": "number", "minimum": 0},
			"protein":  map[string]any{"type": "number", "minimum": 0, "description": "grams"},
			"carbs":    map[string]any{"type": "number", "minimum": 0, "description": "grams"},
			"fat":      map[string]any{"type": "number", "minimum": 0, "description": "grams"},
		},
		"required": []string{"name", "calories", "protein", "carbs", "fat"},
	}
	meal := map[string]any{"type": "array", "items": item}

	return &anthropic.ToolParam{
		Name:        ToolName,
		Description: anthropic.String("Record the complete state of today's four meals. Always include every item of the day."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]any{
				"breakfast": meal,
				"lunch":     meal,
				"dinner":    meal,
				"snacks":    meal,
			},
			Required: []string{"breakfast", "lunch", "dinner", "snacks"},
		},
	}
}
