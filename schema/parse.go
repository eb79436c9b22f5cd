package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoJSONObject means the text contained no balanced {...} region.
	ErrNoJSONObject = errors.New("no JSON object found")
	// ErrEmptyDecision means the decision parsed but selected nothing.
	ErrEmptyDecision = errors.New("decision selects no capability")
	// ErrChartLengthMismatch means labels and data differ in length.
	ErrChartLengthMismatch = errors.New("chart labels and data length mismatch")
)

// ExtractJSONObject returns the first balanced {...} region of text.
// Braces inside JSON string literals are ignored.
func ExtractJSONObject(text string) (string, error) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end := matchBrace(text, start); end > 0 {
			return text[start : end+1], nil
		}
	}
	return "", ErrNoJSONObject
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i
			}
		}
	}
	return -1
}

// ParseDecision strictly parses classifier output. Callers apply
// FallbackDecision on error.
func ParseDecision(text string) (Decision, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return Decision{}, err
	}
	var d Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if d.Empty() {
		return Decision{}, ErrEmptyDecision
	}
	return d, nil
}

// ParseChartSpec strictly parses chart extractor output. Callers apply
// PlaceholderChart on error.
func ParseChartSpec(text string) (ChartSpec, error) {
	obj, err := ExtractJSONObject(text)
	if err != nil {
		return ChartSpec{}, err
	}
	var c ChartSpec
	if err := json.Unmarshal([]byte(obj), &c); err != nil {
		return ChartSpec{}, fmt.Errorf("decode chart spec: %w", err)
	}
	if len(c.Labels) != len(c.Data) {
		return ChartSpec{}, fmt.Errorf("%w: %d labels, %d values", ErrChartLengthMismatch, len(c.Labels), len(c.Data))
	}
	if c.Labels == nil {
		c.Labels = []string{}
		c.Data = []float64{}
	}
	return c, nil
}
