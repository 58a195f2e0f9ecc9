// Package ai provides shared helpers for working with LLM responses:
// cleaning malformed output and budgeting prompt history tokens.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ResponseCleaner sanitizes LLM output before parsing. Models wrap JSON in
// markdown fences, prepend prose, or emit trailing commas; the cleaner
// recovers the JSON object when one is present at all.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// CleanJSON extracts and repairs a JSON object from mixed model output.
// The returned string is not guaranteed to parse; callers must still
// unmarshal and treat failure as a schema violation.
func (rc *ResponseCleaner) CleanJSON(response string) string {
	response = rc.stripMarkdownFences(response)
	response = rc.extractObject(response)
	if rc.IsValidJSON(response) {
		return response
	}
	return trailingCommaRe.ReplaceAllString(response, "$1")
}

// CleanText normalizes a free-text response: trims whitespace and strips one
// layer of surrounding quotes that models often add around questions.
func (rc *ResponseCleaner) CleanText(response string) string {
	response = strings.TrimSpace(response)
	for _, q := range []string{`"`, "'"} {
		if len(response) >= 2 && strings.HasPrefix(response, q) && strings.HasSuffix(response, q) {
			response = strings.TrimSpace(response[1 : len(response)-1])
		}
	}
	return response
}

func (rc *ResponseCleaner) stripMarkdownFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// extractObject returns the first balanced {...} region, or the input when no
// object is found.
func (rc *ResponseCleaner) extractObject(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return response
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return response[start:]
}

// IsValidJSON reports whether the string parses as JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	var v any
	return json.Unmarshal([]byte(response), &v) == nil
}
