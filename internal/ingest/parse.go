package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// Layouts carrying their own offset. The result is converted to the site zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700 MST",
}

// Layouts without an offset are read as wall-clock time in the site zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the mixed formats found in sensor exports and
// returns the instant in loc, truncated to microseconds.
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.In(loc).Truncate(time.Microsecond), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t.Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}

// reasonEmpty marks a value defaulted because its cell was blank.
const reasonEmpty = "empty"

// ParseDecimal reads a number that may use a decimal comma. Empty or
// unparseable input yields a defaulted nil.
func ParseDecimal(v string) domain.Parsed[*float64] {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.DefaultedValue[*float64](nil, reasonEmpty)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return domain.DefaultedValue[*float64](nil, fmt.Sprintf("not a number: %q", v))
	}
	return domain.ParsedValue(&f)
}

// ParseCode reads an integer classification code, accepting "5" and "5.0".
func ParseCode(v string) domain.Parsed[*int] {
	p := ParseDecimal(v)
	if p.Value == nil {
		return domain.DefaultedValue[*int](nil, p.Reason)
	}
	f := *p.Value
	if f != math.Trunc(f) {
		return domain.DefaultedValue[*int](nil, fmt.Sprintf("not an integer code: %q", v))
	}
	n := int(f)
	return domain.ParsedValue(&n)
}
