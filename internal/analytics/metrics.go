// Package analytics derives the dashboard's aggregate views from a filtered
// site dataset: daily-average metrics, the synthesis table, modal split,
// timelines, weekly heatmaps and multi-year comparisons.
package analytics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/period"
)

// Placeholder is rendered for a value that cannot be computed, such as the
// mean speed of rows that carry none.
const Placeholder = "-"

// Metrics is one cell group of the synthesis table.
type Metrics struct {
	Total      int    `json:"total"`
	PerDay     int    `json:"tmj"`
	PerWorkday int    `json:"tmj_jo"`
	PerWeekend int    `json:"tmj_we"`
	Speed      string `json:"vt"`
}

// Values returns the metrics in display order.
func (m Metrics) Values() []any {
	return []any{m.Total, m.PerDay, m.PerWorkday, m.PerWeekend, m.Speed}
}

// ComputeMetrics divides the volume of ds by the supplied day counts. Each
// mean is rounded half to even; a bucket with zero days reports zero.
func ComputeMetrics(ds domain.Dataset, days period.DayCounts) Metrics {
	if ds.Empty() {
		return Metrics{Speed: Placeholder}
	}

	var total, workday, weekend, speedSum float64
	var speedN int
	for _, r := range ds.Records {
		w := ds.Weight(r)
		total += w
		switch r.DayType {
		case domain.DayWorkday:
			workday += w
		case domain.DayWeekend:
			weekend += w
		}
		if r.Speed != nil {
			speedSum += *r.Speed
			speedN++
		}
	}

	m := Metrics{
		Total: int(total),
		Speed: Placeholder,
	}
	if days.Total > 0 {
		m.PerDay = roundDiv(total, days.Total)
	}
	if days.Workday > 0 {
		m.PerWorkday = roundDiv(workday, days.Workday)
	}
	if days.Weekend > 0 {
		m.PerWeekend = roundDiv(weekend, days.Weekend)
	}
	if speedN > 0 {
		m.Speed = FormatSpeed(speedSum / float64(speedN))
	}
	return m
}

// FormatSpeed renders a mean speed rounded to the nearest integer.
func FormatSpeed(kmh float64) string {
	return fmt.Sprintf("%.0f km/h", kmh)
}

// FormatCount renders n with a space as the thousands separator.
func FormatCount(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatValue renders a metrics value for a table cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case int:
		return FormatCount(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func roundDiv(v float64, days int) int {
	return int(math.RoundToEven(v / float64(days)))
}
