package analytics

import (
	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/period"
)

// AllMobilities labels the synthesis row covering every category.
const AllMobilities = "Toutes Mobilités"

// SynthesisRow holds one category's metrics for both directions.
type SynthesisRow struct {
	Label      string  `json:"label"`
	Direction1 Metrics `json:"direction_1"`
	Direction2 Metrics `json:"direction_2"`
}

// SynthesisTable is the per-category, per-direction metrics table for a period.
type SynthesisTable struct {
	Direction1 string           `json:"direction_1"`
	Direction2 string           `json:"direction_2"`
	Days       period.DayCounts `json:"days"`
	Rows       []SynthesisRow   `json:"rows"`
}

// Synthesis builds the table from an already filtered dataset and the day
// counts of the period it was filtered to.
func Synthesis(ds domain.Dataset, days period.DayCounts) SynthesisTable {
	t := SynthesisTable{
		Direction1: ds.Metadata.Direction1,
		Direction2: ds.Metadata.Direction2,
		Days:       days,
	}
	if t.Direction1 == "" {
		t.Direction1 = domain.DefaultDirection1
	}
	if t.Direction2 == "" {
		t.Direction2 = domain.DefaultDirection2
	}

	for _, cat := range domain.RoadCategories {
		t.Rows = append(t.Rows, synthesisRow(ds, string(cat), days, func(r domain.Record) bool {
			return r.UnifiedCategory == cat
		}))
	}
	t.Rows = append(t.Rows, synthesisRow(ds, AllMobilities, days, func(domain.Record) bool { return true }))
	return t
}

func synthesisRow(ds domain.Dataset, label string, days period.DayCounts, keep func(domain.Record) bool) SynthesisRow {
	metricsFor := func(code string) Metrics {
		return ComputeMetrics(ds.Filter(func(r domain.Record) bool {
			return domain.InDirection(r.Direction, code) && keep(r)
		}), days)
	}
	return SynthesisRow{
		Label:      label,
		Direction1: metricsFor("1"),
		Direction2: metricsFor("2"),
	}
}
