package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when no parsable JSON could be recovered from a
// model response.
var ErrNoJSON = fmt.Errorf("no parsable JSON in response")

// ExtractJSON recovers a JSON object from free-form model output and
// unmarshals it into target. Models wrap JSON in markdown fences, prepend
// prose, or both; the fallback chain is: strict parse, fenced code block,
// outermost brace span.
func ExtractJSON(response string, target any) error {
	response = strings.TrimSpace(response)
	if response == "" {
		return ErrNoJSON
	}

	// 1. Strict parse.
	if err := json.Unmarshal([]byte(response), target); err == nil {
		return nil
	}

	// 2. Fenced code block.
	if fenced, ok := extractFenced(response); ok {
		if err := json.Unmarshal([]byte(fenced), target); err == nil {
			return nil
		}
	}

	// 3. Outermost brace span.
	if span, ok := extractSpan(response, '{', '}'); ok {
		if err := json.Unmarshal([]byte(span), target); err == nil {
			return nil
		}
	}

	return ErrNoJSON
}

// ExtractJSONArray recovers a JSON array of strings from free-form model
// output, using the same fallback chain as ExtractJSON but with bracket
// delimiters for the span step.
func ExtractJSONArray(response string) ([]string, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, ErrNoJSON
	}

	var out []string
	if err := json.Unmarshal([]byte(response), &out); err == nil {
		return out, nil
	}

	if fenced, ok := extractFenced(response); ok {
		if err := json.Unmarshal([]byte(fenced), &out); err == nil {
			return out, nil
		}
	}

	if span, ok := extractSpan(response, '[', ']'); ok {
		if err := json.Unmarshal([]byte(span), &out); err == nil {
			return out, nil
		}
	}

	return nil, ErrNoJSON
}

func extractFenced(s string) (string, bool) {
	start := strings.Index(s, "```json")
	offset := 7
	if start == -1 {
		start = strings.Index(s, "```")
		offset = 3
	}
	if start == -1 {
		return "", false
	}
	rest := s[start+offset:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func extractSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
