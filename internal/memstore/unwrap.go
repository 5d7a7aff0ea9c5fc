package memstore

import (
	"encoding/json"
	"strings"
)

// The memory service has shipped several incompatible response layouts.
// Decoding tries each known schema in order and reports which one matched
// so callers can distinguish "empty" from "unrecognized".

type responseShape int

const (
	shapeNested responseShape = iota // {content:{episodic_memory:[[...],[...]]}} or {content:{profile_memory:[...]}}
	shapeFlat                        // top-level array
	shapeResults                     // {results:[...]}
	shapeUnrecognized
)

// rawRecord is one record as returned by the service: either a bare string
// or an object whose content and metadata field names vary by version.
type rawRecord struct {
	str string
	obj map[string]json.RawMessage
}

func decodeRecord(b json.RawMessage) (rawRecord, bool) {
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		return rawRecord{}, false
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return rawRecord{}, false
		}
		return rawRecord{str: s}, true
	}
	if trimmed[0] == '{' {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return rawRecord{}, false
		}
		return rawRecord{obj: m}, true
	}
	return rawRecord{}, false
}

func (r rawRecord) text() string {
	if r.obj == nil {
		return strings.TrimSpace(r.str)
	}
	for _, key := range []string{"content", "episode_content", "text"} {
		if raw, ok := r.obj[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func (r rawRecord) metadata() map[string]json.RawMessage {
	if r.obj == nil {
		return nil
	}
	for _, key := range []string{"user_metadata", "metadata"} {
		if raw, ok := r.obj[key]; ok {
			var m map[string]json.RawMessage
			if err := json.Unmarshal(raw, &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func (r rawRecord) metaString(key string) string {
	meta := r.metadata()
	if meta == nil {
		return ""
	}
	raw, ok := meta[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// ownerID resolves the owner tag. Bare-string records carry no metadata;
// they are attributed to nobody and dropped by the owner filter.
func (r rawRecord) ownerID() string { return r.metaString("actual_user_id") }

func (r rawRecord) producedForID() string {
	if r.obj == nil {
		return ""
	}
	for _, key := range []string{"produced_for_id", "produced_for"} {
		if raw, ok := r.obj[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				return s
			}
		}
	}
	return r.metaString("produced_for_id")
}

func (r rawRecord) category() string { return r.metaString("category") }

func (r rawRecord) createdAt() string {
	for _, key := range []string{"created_at", "timestamp"} {
		if r.obj != nil {
			if raw, ok := r.obj[key]; ok {
				var s string
				if err := json.Unmarshal(raw, &s); err == nil {
					return s
				}
			}
		}
	}
	return ""
}

func (r rawRecord) tags() []string {
	meta := r.metadata()
	if meta == nil {
		return nil
	}
	raw, ok := meta["tags"]
	if !ok {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}

type nestedResponse struct {
	Content struct {
		EpisodicMemory []json.RawMessage `json:"episodic_memory"`
		ProfileMemory  []json.RawMessage `json:"profile_memory"`
	} `json:"content"`
}

type resultsResponse struct {
	Results []json.RawMessage `json:"results"`
}

// unwrapRecords normalizes a search response body into an ordered record
// list, trying each known schema in turn.
func unwrapRecords(body []byte) ([]rawRecord, responseShape) {
	// Schema V1: records nested under content.episodic_memory as a list of
	// lists; candidates live in the first two positional lists.
	var nested nestedResponse
	if err := json.Unmarshal(body, &nested); err == nil && len(nested.Content.EpisodicMemory) > 0 {
		var merged []json.RawMessage
		for i, raw := range nested.Content.EpisodicMemory {
			if i > 1 {
				break
			}
			var inner []json.RawMessage
			if err := json.Unmarshal(raw, &inner); err == nil {
				merged = append(merged, inner...)
			}
		}
		return collectRecords(merged), shapeNested
	}
	// Profile searches nest under content.profile_memory instead, with the
	// candidate records in positional list 1; some versions return the
	// records as a plain list.
	if pm := nested.Content.ProfileMemory; len(pm) > 0 {
		if len(pm) > 1 {
			var inner []json.RawMessage
			if err := json.Unmarshal(pm[1], &inner); err == nil {
				return collectRecords(inner), shapeNested
			}
		}
		return collectRecords(pm), shapeNested
	}

	// Schema V2: a flat top-level array.
	var flat []json.RawMessage
	if err := json.Unmarshal(body, &flat); err == nil {
		return collectRecords(flat), shapeFlat
	}

	// Schema V3: records under a results key.
	var res resultsResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Results != nil {
		return collectRecords(res.Results), shapeResults
	}

	return nil, shapeUnrecognized
}

func collectRecords(raw []json.RawMessage) []rawRecord {
	out := make([]rawRecord, 0, len(raw))
	for _, b := range raw {
		if rec, ok := decodeRecord(b); ok {
			out = append(out, rec)
		}
	}
	return out
}
