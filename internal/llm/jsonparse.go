package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StripMarkdownFences removes ```json ... ``` wrapping from model output.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}
	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}

// ExtractObject returns the text between the first "{" and the last "}".
func ExtractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object found")
	}
	return text[start : end+1], nil
}

// ParseJSON decodes a JSON object out of free-form model output.
func ParseJSON[T any](raw string) (T, error) {
	var result T
	text := StripMarkdownFences(raw)
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return result, nil
	}

	object, err := ExtractObject(text)
	if err != nil {
		return result, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}
	if err := json.Unmarshal([]byte(object), &result); err != nil {
		var zero T
		preview := object
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}
