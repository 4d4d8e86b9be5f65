package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedJSONPattern matches the first markdown-fenced json block.
var fencedJSONPattern = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// DecodeObject parses the JSON object carried by an LLM response. The first
// ```json fenced block wins; when no fence is present the whole text is
// treated as the JSON source.
func DecodeObject(text string) (map[string]any, error) {
	source := strings.TrimSpace(text)
	if source == "" {
		return nil, fmt.Errorf("llm: empty response text")
	}
	if match := fencedJSONPattern.FindStringSubmatch(source); match != nil {
		source = strings.TrimSpace(match[1])
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(source), &doc); err != nil {
		return nil, fmt.Errorf("llm: decode response JSON: %w", err)
	}
	return doc, nil
}
