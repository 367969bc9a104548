package types

import (
	"sort"
	"strings"
)

// SortField is an item attribute lists can be ordered by.
type SortField string

// Sort fields
const (
	SortFieldCD3         SortField = "cd3"
	SortFieldName        SortField = "name"
	SortFieldCreated     SortField = "created"
	SortFieldSequence    SortField = "sequence"
	SortFieldCostOfDelay SortField = "cod"
)

// SortDirection is ascending or descending.
type SortDirection string

// Sort directions
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ItemSortOption is one key of a multi-key ordering.
type ItemSortOption struct {
	Field     SortField
	Direction SortDirection
}

// DefaultItemSortOptions returns the default list ordering:
// CD3 descending with name as the tiebreak.
func DefaultItemSortOptions() []ItemSortOption {
	return []ItemSortOption{
		{Field: SortFieldCD3, Direction: SortDesc},
		{Field: SortFieldName, Direction: SortAsc},
	}
}

// ParseItemSortOrder converts a comma-delimited string (e.g. "cd3-desc,name-asc")
// into sort options. Unrecognised fields or directions are skipped, as are
// repeated fields.
func ParseItemSortOrder(raw string) []ItemSortOption {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	options := make([]ItemSortOption, 0, len(parts))
	seen := make(map[SortField]bool)

	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}

		field, dir := splitSortToken(token)
		sortField := mapSortField(field)
		if sortField == "" {
			continue
		}

		direction := mapSortDirection(dir)
		if dir == "" {
			direction = defaultDirection(sortField)
		}
		if direction == "" {
			continue
		}

		if seen[sortField] {
			continue
		}
		seen[sortField] = true

		options = append(options, ItemSortOption{Field: sortField, Direction: direction})
	}

	return options
}

// EncodeItemSortOrder converts sort options back into the canonical
// "field-dir" string form.
func EncodeItemSortOrder(options []ItemSortOption) string {
	tokens := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.Field == "" || opt.Direction == "" {
			continue
		}
		tokens = append(tokens, string(opt.Field)+"-"+string(opt.Direction))
	}
	return strings.Join(tokens, ",")
}

// SortItems orders items in place by the given keys, falling back to id so
// the result is deterministic.
func SortItems(items []*Item, options []ItemSortOption) {
	if len(options) == 0 {
		options = DefaultItemSortOptions()
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		for _, opt := range options {
			c := compareField(a, b, opt.Field)
			if c == 0 {
				continue
			}
			if opt.Direction == SortDesc {
				return c > 0
			}
			return c < 0
		}
		return a.ID < b.ID
	})
}

func compareField(a, b *Item, field SortField) int {
	switch field {
	case SortFieldCD3:
		return compareFloat(a.CD3, b.CD3)
	case SortFieldCostOfDelay:
		return compareFloat(a.CostOfDelay, b.CostOfDelay)
	case SortFieldName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortFieldCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortFieldSequence:
		// Unsequenced items always sort after sequenced ones.
		switch {
		case a.Sequence == nil && b.Sequence == nil:
			return 0
		case a.Sequence == nil:
			return 1
		case b.Sequence == nil:
			return -1
		}
		return *a.Sequence - *b.Sequence
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func splitSortToken(token string) (string, string) {
	if idx := strings.IndexAny(token, ":-"); idx >= 0 {
		left := strings.TrimSpace(token[:idx])
		right := strings.TrimSpace(token[idx+1:])
		return strings.ToLower(left), strings.ToLower(right)
	}
	return strings.ToLower(token), ""
}

func mapSortField(raw string) SortField {
	switch raw {
	case "cd3", "score":
		return SortFieldCD3
	case "name", "title":
		return SortFieldName
	case "created", "created_at":
		return SortFieldCreated
	case "sequence", "seq", "rank":
		return SortFieldSequence
	case "cod", "cost_of_delay", "costofdelay":
		return SortFieldCostOfDelay
	default:
		return ""
	}
}

func mapSortDirection(raw string) SortDirection {
	switch raw {
	case "asc", "ascending":
		return SortAsc
	case "desc", "descending":
		return SortDesc
	default:
		return ""
	}
}

func defaultDirection(field SortField) SortDirection {
	switch field {
	case SortFieldCD3, SortFieldCostOfDelay, SortFieldCreated:
		return SortDesc
	}
	return SortAsc
}
