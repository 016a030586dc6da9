package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject means the model response contained no {...} block at all.
var ErrNoJSONObject = errors.New("no JSON object found in response")

// ExtractJSONObject pulls a single JSON object out of free-form model output
// and decodes it into v. The model is not trusted to emit bare JSON: Markdown
// code fences are stripped first, then everything between the first '{' and
// the last '}' is decoded.
func ExtractJSONObject(text string, v any) error {
	text = stripCodeFences(strings.TrimSpace(text))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ErrNoJSONObject
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("decode extracted JSON: %w", err)
	}
	return nil
}

func stripCodeFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
