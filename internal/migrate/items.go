package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cd3-tool/cd3/internal/idgen"
	"github.com/cd3-tool/cd3/internal/types"
)

// UntitledName replaces a blank item name.
const UntitledName = "Untitled item"

// derived fields are dropped on load and recomputed.
var derivedKeys = []string{
	"boardPosition", "costOfDelay", "cd3", "confidenceWeightedCD3", "confidenceBreakdown",
	"urgencySet", "valueSet", "durationSet",
}

// NormalizeItems decodes the raw item list, repairing each entry so it
// decodes into a valid types.Item. Duplicate or empty ids get fresh ids
// from gen. Derived metrics are left zero for the caller to recompute.
func NormalizeItems(raw json.RawMessage, gen *idgen.Generator, now time.Time) ([]*types.Item, []string, error) {
	if raw == nil {
		return []*types.Item{}, nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("decode items: %w", err)
	}
	if gen == nil {
		gen = idgen.New("", func() time.Time { return now })
	}

	var changes []string
	note := func(format string, args ...any) {
		changes = append(changes, fmt.Sprintf(format, args...))
	}

	docs := make([]map[string]any, 0, len(entries))
	taken := make(map[string]bool, len(entries))
	for idx, entry := range entries {
		dec := json.NewDecoder(bytes.NewReader(entry))
		dec.UseNumber()
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil || doc == nil {
			note("dropped item #%d: not an object", idx+1)
			continue
		}
		if id, ok := doc["id"].(string); ok {
			taken[strings.TrimSpace(id)] = true
		}
		docs = append(docs, doc)
	}

	seen := make(map[string]bool, len(docs))
	items := make([]*types.Item, 0, len(docs))
	for _, doc := range docs {
		name := normalizeName(doc)
		link := normalizeLink(doc)
		id, _ := doc["id"].(string)
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			fresh, err := gen.Next(name, link, func(s string) bool { return seen[s] || taken[s] })
			if err != nil {
				return nil, nil, err
			}
			if id == "" {
				note("item %q had no id, assigned %s", name, fresh)
			} else {
				note("duplicate id %s reassigned to %s", id, fresh)
			}
			id = fresh
		}
		seen[id] = true
		doc["id"] = id

		for _, k := range derivedKeys {
			delete(doc, k)
		}
		for _, c := range types.Categories() {
			if msg := normalizeRating(doc, string(c)); msg != "" {
				note("item %s: %s", id, msg)
			}
		}
		createdAt := normalizeTime(doc, "createdAt", now)
		if n := normalizeNotes(doc, createdAt); n > 0 {
			note("item %s: %d legacy notes converted", id, n)
		}
		if _, ok := doc["active"].(bool); !ok {
			doc["active"] = true
		}
		if _, ok := doc["isNewItem"].(bool); !ok {
			doc["isNewItem"] = false
		}
		normalizeSequence(doc)
		if msg := normalizeSurvey(doc); msg != "" {
			note("item %s: %s", id, msg)
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return nil, nil, fmt.Errorf("encode item %s: %w", id, err)
		}
		var it types.Item
		if err := json.Unmarshal(data, &it); err != nil {
			return nil, nil, fmt.Errorf("decode item %s: %w", id, err)
		}
		if it.Notes == nil {
			it.Notes = []types.Note{}
		}
		items = append(items, &it)
	}
	return items, changes, nil
}

func normalizeName(doc map[string]any) string {
	name, _ := doc["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		name = UntitledName
	}
	if len(name) > types.MaxNameLength {
		name = truncate(name, types.MaxNameLength)
	}
	doc["name"] = name
	return name
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n])
}

func normalizeLink(doc map[string]any) string {
	s, _ := doc["link"].(string)
	if p := types.NormalizeLink(s); p != nil {
		doc["link"] = *p
		return *p
	}
	doc["link"] = nil
	return ""
}

// normalizeRating keeps a level in 1..3 and turns anything else unset.
// A legacy "<c>Set": true with level 0 also reads as unset.
func normalizeRating(doc map[string]any, key string) string {
	v, present := doc[key]
	if !present || v == nil {
		doc[key] = 0
		return ""
	}
	n, ok := v.(json.Number)
	if !ok {
		doc[key] = 0
		return fmt.Sprintf("non-numeric %s cleared", key)
	}
	level, err := n.Int64()
	if err != nil || level < 0 || level > int64(types.LevelHigh) {
		doc[key] = 0
		return fmt.Sprintf("out-of-range %s %s cleared", key, n)
	}
	doc[key] = level
	return ""
}

func normalizeTime(doc map[string]any, key string, fallback time.Time) time.Time {
	if s, ok := doc[key].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	doc[key] = fallback.Format(time.RFC3339Nano)
	return fallback
}

// normalizeNotes converts plain-string notes to note objects and drops
// malformed entries. Returns the number of converted notes.
func normalizeNotes(doc map[string]any, createdAt time.Time) int {
	list, ok := doc["notes"].([]any)
	if !ok {
		doc["notes"] = []any{}
		return 0
	}
	stamp := createdAt.Format(time.RFC3339Nano)
	converted := 0
	out := make([]any, 0, len(list))
	for _, n := range list {
		switch v := n.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			out = append(out, map[string]any{"text": v, "createdAt": stamp, "modifiedAt": stamp})
			converted++
		case map[string]any:
			text, _ := v["text"].(string)
			if strings.TrimSpace(text) == "" {
				continue
			}
			created := normalizeTime(v, "createdAt", createdAt)
			normalizeTime(v, "modifiedAt", created)
			out = append(out, v)
		}
	}
	doc["notes"] = out
	return converted
}

func normalizeSequence(doc map[string]any) {
	n, ok := doc["sequence"].(json.Number)
	if !ok {
		doc["sequence"] = nil
		return
	}
	rank, err := n.Int64()
	if err != nil || rank < 1 {
		doc["sequence"] = nil
		return
	}
	doc["sequence"] = rank
}

func normalizeSurvey(doc map[string]any) string {
	v, ok := doc["confidenceSurvey"]
	if !ok || v == nil {
		delete(doc, "confidenceSurvey")
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		delete(doc, "confidenceSurvey")
		return "unreadable confidence survey dropped"
	}
	var s types.ConfidenceSurvey
	if err := json.Unmarshal(data, &s); err != nil {
		delete(doc, "confidenceSurvey")
		return "unreadable confidence survey dropped"
	}
	if err := s.Validate(); err != nil {
		delete(doc, "confidenceSurvey")
		return "invalid confidence survey dropped: " + err.Error()
	}
	return ""
}
