package summarize

import (
	"encoding/json"
	"strings"
)

// FailedSummary is the sentinel written when the collaborator's response
// could not be parsed at all. The cycle still commits with it so the same
// inputs are not re-consolidated forever on a single bad response.
const FailedSummary = "Consolidation ran, but the summarization response could not be parsed."

// ParseDigest extracts a Digest from a raw model response. It never fails:
// a response with no parseable JSON object yields the sentinel digest, and
// any field of the wrong shape is coerced (non-string summary to the
// sentinel, non-list topics/key_insights to empty lists). The second
// return reports whether repair was needed.
func ParseDigest(response string) (*Digest, bool) {
	// Models wrap JSON in prose or markdown fences; take the outermost
	// object, same trick as extracting from a ```json block.
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		endIdx := strings.LastIndex(response, "}")
		if endIdx > idx {
			jsonStr = response[idx : endIdx+1]
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return &Digest{
			Summary:     FailedSummary,
			Topics:      []string{},
			KeyInsights: []string{},
		}, true
	}

	digest := &Digest{}
	repaired := false

	if summary, ok := raw["summary"].(string); ok && summary != "" {
		digest.Summary = summary
	} else {
		digest.Summary = FailedSummary
		repaired = true
	}

	var listRepaired bool
	digest.Topics, listRepaired = coerceList(raw["topics"])
	repaired = repaired || listRepaired

	insights := raw["key_insights"]
	if insights == nil {
		// Some models camelCase the field despite the instruction.
		insights = raw["keyInsights"]
	}
	digest.KeyInsights, listRepaired = coerceList(insights)
	repaired = repaired || listRepaired

	return digest, repaired
}

// coerceList turns a decoded JSON value into a string list. Anything that
// is not a list becomes an empty list; non-string elements are dropped.
func coerceList(value any) ([]string, bool) {
	if value == nil {
		return []string{}, false
	}

	items, ok := value.([]any)
	if !ok {
		return []string{}, true
	}

	list := make([]string, 0, len(items))
	repaired := false
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			repaired = true
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}

	return list, repaired
}
