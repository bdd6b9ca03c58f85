package synth

import (
	"encoding/json"
	"strings"
)

// rawEntry is the model's wire shape. Note is a pointer so an absent
// note stays absent instead of becoming "".
type rawEntry struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Description string  `json:"description"`
	Note        *string `json:"note,omitempty"`
}

// stripFences removes Markdown code fencing the model sometimes wraps
// around its JSON despite the instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseEntryArray extracts the JSON array from a model reply. Leading
// and trailing commentary is tolerated by slicing from the first '['
// to the last ']'.
func parseEntryArray(text string) ([]rawEntry, error) {
	clean := stripFences(text)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start == -1 || end == -1 || end < start {
		return nil, &MalformedResponseError{Raw: text, Reason: "no JSON array found"}
	}
	var entries []rawEntry
	if err := json.Unmarshal([]byte(clean[start:end+1]), &entries); err != nil {
		return nil, &MalformedResponseError{Raw: text, Reason: err.Error()}
	}
	return entries, nil
}

// parseEntryObject extracts a single JSON object, for the correction
// variant.
func parseEntryObject(text string) (*rawEntry, error) {
	clean := stripFences(text)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &MalformedResponseError{Raw: text, Reason: "no JSON object found"}
	}
	var entry rawEntry
	if err := json.Unmarshal([]byte(clean[start:end+1]), &entry); err != nil {
		return nil, &MalformedResponseError{Raw: text, Reason: err.Error()}
	}
	return &entry, nil
}
