// Package report renders a site's synthesis as a standalone HTML page or a
// flat CSV file.
package report

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/couchcryptid/traffic-count-etl/internal/analytics"
	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/period"
)

// Input is everything an HTML report shows.
type Input struct {
	SiteName    string
	PeriodLabel string
	Synthesis   analytics.SynthesisTable
	Modal       analytics.Split
	// Pedestrian replaces the synthesis table for pedestrian counters.
	Pedestrian *analytics.PedestrianSummary
}

type page struct {
	Input
	GeneratedAt string
}

var funcs = template.FuncMap{
	"count": analytics.FormatCount,
	"value": analytics.FormatValue,
	"percent": func(p float64) string {
		return fmt.Sprintf("%.1f %%", p)
	},
	"volume": func(v float64) string {
		return analytics.FormatCount(int(v))
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(funcs).Parse(reportHTML))

// HTML writes the report to w, stamped with the current time.
func HTML(w io.Writer, in Input) error {
	if in.SiteName == "" {
		in.SiteName = domain.DefaultSiteName
	}
	p := page{Input: in, GeneratedAt: domain.Now().Format("02/01/2006 15:04")}
	if err := reportTmpl.Execute(w, p); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// PeriodLabel describes a dashboard window in French, e.g.
// "du 01/06/2023 au 30/09/2023, saison 06-01:09-30".
func PeriodLabel(w period.Window) string {
	label := "Toute la période"
	if !w.Start.IsZero() && !w.End.IsZero() {
		label = fmt.Sprintf("du %s au %s", w.Start.Format("02/01/2006"), w.End.Format("02/01/2006"))
	}
	if w.Season != nil {
		label += ", saison " + w.Season.String()
	}
	return label
}

// synthesisCSVRow is one (category, direction) line of the CSV export.
type synthesisCSVRow struct {
	Category   string `csv:"categorie"`
	Direction  string `csv:"sens"`
	Total      int    `csv:"total"`
	PerDay     int    `csv:"tmj"`
	PerWorkday int    `csv:"tmj_jo"`
	PerWeekend int    `csv:"tmj_we"`
	Speed      string `csv:"vt"`
}

// WriteSynthesisCSV writes the synthesis table as ';'-separated rows, one
// per category and direction.
func WriteSynthesisCSV(w io.Writer, t analytics.SynthesisTable) error {
	rows := make([]synthesisCSVRow, 0, 2*len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows,
			csvRow(r.Label, t.Direction1, r.Direction1),
			csvRow(r.Label, t.Direction2, r.Direction2),
		)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(synthesisCSVRow{}); err != nil {
		return fmt.Errorf("encode synthesis csv header: %w", err)
	}
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode synthesis csv: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write synthesis csv: %w", err)
	}
	return nil
}

func csvRow(label, direction string, m analytics.Metrics) synthesisCSVRow {
	return synthesisCSVRow{
		Category:   label,
		Direction:  direction,
		Total:      m.Total,
		PerDay:     m.PerDay,
		PerWorkday: m.PerWorkday,
		PerWeekend: m.PerWeekend,
		Speed:      m.Speed,
	}
}
