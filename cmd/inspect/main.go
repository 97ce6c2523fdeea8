// Command inspect dry-runs the ingestion of a single sensor CSV export and
// reports what the loader makes of it: identified columns, header metadata,
// row counts and the unified category distribution. Nothing is written.
//
// Usage:
//
//	go run ./cmd/inspect -file exports/bonette/2023-06.csv -type road
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/ingest"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
)

// phase tracks pass/fail for an inspection step.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "CSV export to inspect")
	siteType := flag.String("type", "road", "site type: road or pedestrian")
	tz := flag.String("tz", domain.DefaultTimezone, "site timezone")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}
	kind, ok := domain.ParseSiteType(*siteType)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown site type %q\n", *siteType)
		os.Exit(1)
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timezone: %v\n", err)
		os.Exit(1)
	}

	if code := run(os.Stdout, *file, kind, loc); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, path string, kind domain.SiteType, loc *time.Location) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := ingest.NewReader(loc, logger, observability.NewMetricsForTesting())

	fmt.Fprintf(w, "=== Inspecting %s (%s site) ===\n\n", path, kind)

	file, err := reader.ReadFile(path)
	if err != nil && !errors.Is(err, domain.ErrNoTimestampColumn) {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}

	columns := inspectColumns(w, file, err)
	metadata := inspectMetadata(w, file, kind)
	rows := inspectRows(w, file)
	categories := inspectCategories(w, file, kind)

	fmt.Fprintln(w)
	failed := false
	for _, p := range []*phase{columns, metadata, rows, categories} {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d)", len(p.errors))
			failed = true
		}
		fmt.Fprintf(w, "  %-24s %s\n", p.name, status)
		for i, e := range p.errors {
			fmt.Fprintf(w, "    [%d] %s\n", i+1, e)
		}
	}

	if failed {
		return 1
	}
	return 0
}

func inspectColumns(w io.Writer, file ingest.File, readErr error) *phase {
	p := &phase{name: "Column identification"}
	fmt.Fprintln(w, "Columns:")

	headers := make([]string, 0, len(file.Columns))
	for h := range file.Columns {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	found := map[domain.Field]bool{}
	for _, h := range headers {
		fmt.Fprintf(w, "  %-18s <- %s\n", file.Columns[h], h)
		found[file.Columns[h]] = true
	}
	if errors.Is(readErr, domain.ErrNoTimestampColumn) || !found[domain.FieldDatetime] {
		p.errorf("no timestamp column (expected a header containing horodate and generated)")
	}
	return p
}

func inspectMetadata(w io.Writer, file ingest.File, kind domain.SiteType) *phase {
	p := &phase{name: "Header metadata"}
	m := file.Metadata
	fmt.Fprintln(w, "\nMetadata:")
	for _, f := range []struct {
		label string
		v     domain.Parsed[string]
	}{
		{"site name", m.SiteName},
		{"direction 1", m.Direction1},
		{"direction 2", m.Direction2},
	} {
		note := ""
		if f.v.Defaulted {
			note = " (default: " + f.v.Reason + ")"
		}
		fmt.Fprintf(w, "  %-12s %s%s\n", f.label, f.v.Value, note)
	}

	// Pedestrian counters carry neither lanes nor directions.
	if kind == domain.SiteRoad && !m.HasDirections() {
		p.errorf("direction labels missing: %s", m.Direction1.Reason)
	}
	return p
}

func inspectRows(w io.Writer, file ingest.File) *phase {
	p := &phase{name: "Row parsing"}
	fmt.Fprintf(w, "\nRows: %d read, %d kept, %d malformed, %d bad timestamps\n",
		file.Rows, len(file.Records), file.Malformed, file.BadTimestamps)

	if first, last, ok := (domain.Dataset{Records: file.Records}).DateBounds(); ok {
		fmt.Fprintf(w, "Dates: %s to %s\n", first.Format(domain.DateLayout), last.Format(domain.DateLayout))
	}
	if file.Rows > 0 && len(file.Records) == 0 {
		p.errorf("none of the %d rows could be read", file.Rows)
	}
	if file.BadTimestamps > 0 {
		p.errorf("%d rows have an unparseable timestamp", file.BadTimestamps)
	}
	return p
}

func inspectCategories(w io.Writer, file ingest.File, kind domain.SiteType) *phase {
	p := &phase{name: "Category unification"}

	kept, dropped := domain.ApplyCategoryPass(file.Records, kind)
	counts := map[domain.Category]int{}
	for _, r := range kept {
		counts[r.UnifiedCategory]++
	}
	cats := make([]domain.Category, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return counts[cats[i]] > counts[cats[j]] })

	fmt.Fprintln(w, "\nCategories:")
	for _, c := range cats {
		fmt.Fprintf(w, "  %-8s %d\n", c, counts[c])
	}
	fmt.Fprintf(w, "  %-8s %d (dropped)\n", domain.CategoryOther, dropped)

	if len(file.Records) > 0 && len(kept) == 0 {
		p.errorf("every row is unclassified")
	}
	return p
}
