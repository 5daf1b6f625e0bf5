package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"datachat/models"
)

var pythonBlock = regexp.MustCompile("```python\\n([\\s\\S]*?)```")

// ExtractPythonCode returns the first ```python fenced block, trimmed, or the
// whole reply when there is none.
func ExtractPythonCode(reply string) string {
	if m := pythonBlock.FindStringSubmatch(reply); m != nil {
		return strings.TrimSpace(m[1])
	}
	return reply
}

// CleanCodeBlock drops a leading and a trailing fence line.
func CleanCodeBlock(code string) string {
	lines := strings.Split(strings.TrimSpace(code), "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// StripJSONFences removes ```json and ``` markers anywhere in the reply.
func StripJSONFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// NormalizeJSON strips fences, checks the reply is valid JSON and returns it
// compacted with key order preserved.
func NormalizeJSON(reply string) (string, error) {
	cleaned := StripJSONFences(reply)
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(cleaned)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return buf.String(), nil
}

// ParseQAPairs accepts either a bare JSON array of pairs or an object with a
// "qa_pairs" array. Pairs with an empty question are dropped.
func ParseQAPairs(reply string) ([]models.QAPair, error) {
	cleaned := StripJSONFences(reply)

	var pairs []models.QAPair
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &pairs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
	} else {
		var wrapped models.QAPairs
		if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		pairs = wrapped.QAPairs
	}

	out := pairs[:0]
	for _, p := range pairs {
		if strings.TrimSpace(p.Question) != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no question-answer pairs", ErrMalformedJSON)
	}
	return out, nil
}
