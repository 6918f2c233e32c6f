package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// parseStrategy tries to pull a JSON array out of a provider reply.
type parseStrategy struct {
	parse func(text string) ([]json.RawMessage, bool)
	name  string
}

// parseChain is tried left to right; the first strategy that succeeds wins.
var parseChain = []parseStrategy{
	{name: "direct", parse: parseDirect},
	{name: "fenced_block", parse: parseFencedBlock},
	{name: "bracket_span", parse: parseBracketSpan},
}

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSONArray returns the elements of the JSON array embedded in text.
// It returns an empty slice, never an error, when no strategy can find one.
func ExtractJSONArray(text string) []json.RawMessage {
	elems, _ := extractJSONArray(text)
	return elems
}

// extractJSONArray also reports which strategy succeeded, or "" if none did.
func extractJSONArray(text string) ([]json.RawMessage, string) {
	for _, s := range parseChain {
		if elems, ok := s.parse(text); ok {
			return elems, s.name
		}
	}
	return []json.RawMessage{}, ""
}

func parseDirect(text string) ([]json.RawMessage, bool) {
	return decodeArray(text)
}

func parseFencedBlock(text string) ([]json.RawMessage, bool) {
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return decodeArray(m[1])
}

func parseBracketSpan(text string) ([]json.RawMessage, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeArray(text[start : end+1])
}

// decodeArray accepts a bare array or an object wrapping one under
// "results" or "classifications".
func decodeArray(s string) ([]json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(s), &elems); err == nil {
		if elems == nil {
			return nil, false
		}
		return elems, true
	}

	var wrapper struct {
		Results         []json.RawMessage `json:"results"`
		Classifications []json.RawMessage `json:"classifications"`
	}
	if err := json.Unmarshal([]byte(s), &wrapper); err != nil {
		return nil, false
	}
	switch {
	case wrapper.Results != nil:
		return wrapper.Results, true
	case wrapper.Classifications != nil:
		return wrapper.Classifications, true
	}
	return nil, false
}
