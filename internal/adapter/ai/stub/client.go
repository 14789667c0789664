// Package stub provides a fast, deterministic AI client for local runs and
// development without an API key.
package stub

import (
	"context"
	"encoding/json"
	"strings"
)

// Client answers every prompt instantly with schema-matching JSON. The
// prompt text decides whether a question or an evaluation is expected.
type Client struct{}

// New constructs a stub client.
func New() *Client { return &Client{} }

// ChatJSON returns a compact JSON string matching the demanded schema.
func (c *Client) ChatJSON(_ context.Context, _ string, userPrompt string, _ int) (string, error) {
	var payload map[string]any
	if strings.Contains(userPrompt, "question_text") {
		payload = map[string]any{
			"question_text":          "How would you use SUMIF to total sales for a single region in a multi-region dataset?",
			"question_type":          "text",
			"difficulty_level":       2,
			"skill_area":             "Basic Functions (SUM, AVERAGE, COUNT)",
			"expected_answer_format": "Detailed explanation",
			"evaluation_criteria":    "Knowledge accuracy and communication clarity",
		}
	} else {
		payload = map[string]any{
			"overall_score": 7.5,
			"category_scores": map[string]float64{
				"technical_accuracy":    7.5,
				"practical_application": 7.0,
				"clarity_communication": 8.0,
				"completeness":          7.5,
			},
			"strengths":         []string{"Clear explanation with a concrete example"},
			"improvements":      []string{"Mention edge cases such as empty ranges"},
			"detailed_feedback": "Solid grasp of the concept with a practical example. Covering common pitfalls would strengthen the answer.",
		}
	}
	b, _ := json.Marshal(payload)
	return string(b), nil
}
