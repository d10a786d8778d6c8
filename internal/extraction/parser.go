package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError means the model's output could not be coerced into JSON even
// after cleanup. It is terminal for the attempt; retrying the whole
// extraction is the caller's decision.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse JSON response from AI model: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// ParseModelJSON decodes model output into a map. Strict JSON is tried
// first; on failure the text is cleaned (markdown fences stripped, trailing
// commas before } or ] removed) and parsed once more. Anything still invalid
// is a *ParseError.
func ParseModelJSON(text string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```json") {
		clean = clean[len("```json"):]
	} else if strings.HasPrefix(clean, "```") {
		clean = clean[len("```"):]
	}
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	clean = trailingCommaRe.ReplaceAllString(clean, "$1")

	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, &ParseError{Cause: err}
	}
	return out, nil
}
