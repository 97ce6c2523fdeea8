package domain

import "strings"

// Field is a canonical column name of the normalized schema.
type Field string

const (
	FieldDatetime       Field = "Datetime"
	FieldLane           Field = "Lane"
	FieldDirection      Field = "Direction"
	FieldCategory       Field = "Category"
	FieldCategorySIREDO Field = "Category_SIREDO"
	FieldSpeed          Field = "Speed"
	FieldCount          Field = "Count"
)

// columnRule maps a lowercased header to a canonical field when match holds.
type columnRule struct {
	field Field
	match func(lower string) bool
}

// columnRules is evaluated top to bottom; the first matching rule names the header.
var columnRules = []columnRule{
	{FieldDatetime, func(h string) bool {
		return strings.Contains(h, "horodate") && strings.Contains(h, "generated")
	}},
	{FieldLane, func(h string) bool {
		return strings.Contains(h, "lane") && !strings.Contains(h, "rank")
	}},
	{FieldDirection, func(h string) bool {
		return strings.Contains(h, "direction_1_2")
	}},
	{FieldCategory, func(h string) bool {
		return strings.Contains(h, "categorysterela_label")
	}},
	{FieldCategorySIREDO, func(h string) bool {
		return strings.Contains(h, "category1")
	}},
	{FieldSpeed, func(h string) bool {
		return strings.HasPrefix(h, "speed") &&
			!strings.Contains(h, "average") &&
			!strings.Contains(h, "validity") &&
			!strings.Contains(h, "delta")
	}},
	{FieldCount, func(h string) bool {
		return strings.Contains(h, "count") || strings.Contains(h, "comptage")
	}},
}

// IdentifyField returns the canonical field for a single header. Rules see
// only the header name, not its metadata parentheticals, so a direction label
// such as "(1: vers Planeau)" cannot satisfy the lane rule.
func IdentifyField(header string) (Field, bool) {
	lower := strings.ToLower(headerName(header))
	for _, rule := range columnRules {
		if rule.match(lower) {
			return rule.field, true
		}
	}
	return "", false
}

// IdentifyColumns maps raw headers to canonical field names. Headers matching
// no rule are left out of the result.
func IdentifyColumns(headers []string) map[string]Field {
	found := make(map[string]Field, len(headers))
	for _, h := range headers {
		if f, ok := IdentifyField(h); ok {
			found[h] = f
		}
	}
	return found
}

// ColumnIndex resolves each canonical field to the position of the first
// header naming it.
func ColumnIndex(headers []string) map[Field]int {
	idx := make(map[Field]int, len(columnRules))
	for i, h := range headers {
		f, ok := IdentifyField(h)
		if !ok {
			continue
		}
		if _, seen := idx[f]; !seen {
			idx[f] = i
		}
	}
	return idx
}

func headerName(header string) string {
	if i := strings.IndexByte(header, '('); i > 0 {
		header = header[:i]
	}
	return strings.TrimSpace(header)
}
