// Package ai provides response cleaning utilities for malformed LLM output.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseCleaner normalizes raw model output into a parseable JSON object.
// Models wrap JSON in markdown fences or chatter around it often enough that
// every chat response passes through here before schema validation.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// CleanJSONResponse strips markdown artifacts, extracts the first JSON
// object, and verifies it parses. It returns an error when no valid JSON
// object can be recovered.
func (rc *ResponseCleaner) CleanJSONResponse(response string) (string, error) {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSONObject(response)
	if response == "" {
		return "", fmt.Errorf("no JSON object found in response")
	}
	if !json.Valid([]byte(response)) {
		return "", fmt.Errorf("extracted JSON is not valid")
	}
	return response, nil
}

// removeMarkdownBlocks removes ```json fences around the payload.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractJSONObject returns the first brace-balanced object in the text,
// which drops any prose the model emitted before or after it.
func (rc *ResponseCleaner) extractJSONObject(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
