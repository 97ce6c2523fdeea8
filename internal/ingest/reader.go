// Package ingest reads raw sensor CSV exports into domain records.
//
// Exports are ';'-delimited and encoded in ISO-8859-1. The header row carries
// the site name and direction labels inside parenthesised column suffixes.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"golang.org/x/text/encoding/charmap"
)

// latin1BOM is a UTF-8 byte order mark after ISO-8859-1 decoding.
const latin1BOM = "ï»¿"

// File is the result of reading one CSV export.
type File struct {
	Path     string
	Columns  map[string]domain.Field
	Metadata domain.HeaderMetadata
	Records  []domain.Record

	Rows          int // data rows seen, including dropped ones
	Malformed     int
	BadTimestamps int

	// BadValues counts non-blank speed, count and SIREDO cells that could not
	// be parsed and were stored as missing. BadValueReason is the first one.
	BadValues      int
	BadValueReason string
}

// Batch is the concatenation of every readable file in a site folder.
type Batch struct {
	Files    []string
	Skipped  []string
	Metadata domain.HeaderMetadata
	Records  []domain.Record
}

// Reader parses sensor CSV exports into records localised to one timezone.
type Reader struct {
	loc     *time.Location
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a Reader that converts timestamps to loc.
func NewReader(loc *time.Location, logger *slog.Logger, metrics *observability.Metrics) *Reader {
	return &Reader{loc: loc, logger: logger, metrics: metrics}
}

// ReadDir reads every *.csv file directly inside dir. Unreadable files are
// logged and skipped. It returns domain.ErrNoSourceFiles when dir holds no CSV
// or none of them produced a record.
func (r *Reader) ReadDir(ctx context.Context, dir string) (Batch, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return Batch{}, fmt.Errorf("list csv files in %s: %w", dir, err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return Batch{}, fmt.Errorf("%s: %w", dir, domain.ErrNoSourceFiles)
	}

	batch := Batch{Metadata: domain.ExtractHeaderMetadata("")}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		f, err := r.ReadFile(path)
		if err != nil {
			r.logger.Warn("skipping source file", "file", path, "error", err)
			r.metrics.FilesSkipped.Inc()
			batch.Skipped = append(batch.Skipped, path)
			continue
		}
		r.metrics.FilesIngested.Inc()
		batch.Files = append(batch.Files, path)
		batch.Records = append(batch.Records, f.Records...)
		mergeMetadata(&batch.Metadata, f.Metadata)
	}

	if len(batch.Records) == 0 {
		return batch, fmt.Errorf("%s: %w", dir, domain.ErrNoSourceFiles)
	}
	return batch, nil
}

// mergeMetadata keeps the first parsed value of each field across files.
func mergeMetadata(dst *domain.HeaderMetadata, src domain.HeaderMetadata) {
	if dst.SiteName.Defaulted && !src.SiteName.Defaulted {
		dst.SiteName = src.SiteName
	}
	if !dst.HasDirections() && src.HasDirections() {
		dst.Direction1, dst.Direction2 = src.Direction1, src.Direction2
	}
}

// ReadFile opens and parses one CSV export.
func (r *Reader) ReadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	out, err := r.Read(f)
	if err != nil {
		return File{}, err
	}
	out.Path = path
	if out.BadValues > 0 {
		r.logger.Warn("coerced unparseable values to missing",
			"file", path,
			"bad_values", out.BadValues,
			"first_reason", out.BadValueReason,
		)
	}
	r.logger.Debug("read source file",
		"file", path,
		"rows", out.Rows,
		"records", len(out.Records),
		"malformed", out.Malformed,
		"bad_timestamps", out.BadTimestamps,
		"bad_values", out.BadValues,
	)
	return out, nil
}

// Read parses an ISO-8859-1 encoded export. It returns
// domain.ErrNoTimestampColumn when no header identifies the generation
// timestamp. Malformed lines and rows with unparseable timestamps are
// counted and dropped. Unparseable numeric cells are kept as missing values
// and counted per field.
func (r *Reader) Read(src io.Reader) (File, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(src))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return File{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], latin1BOM)
	}

	out := File{
		Columns:  domain.IdentifyColumns(header),
		Metadata: domain.ExtractHeaderMetadata(strings.Join(header, ";")),
	}
	idx := domain.ColumnIndex(header)
	coerced := make(map[domain.Field]int)
	if _, ok := idx[domain.FieldDatetime]; !ok {
		return out, domain.ErrNoTimestampColumn
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			out.Rows++
			out.Malformed++
			continue
		}
		if err != nil {
			return File{}, fmt.Errorf("read csv row: %w", err)
		}
		out.Rows++
		if len(row) > len(header) {
			out.Malformed++
			continue
		}

		rec, bad, ok := r.record(row, idx)
		if !ok {
			out.BadTimestamps++
			continue
		}
		for _, c := range bad {
			if out.BadValues == 0 {
				out.BadValueReason = fmt.Sprintf("%s: %s", c.field, c.reason)
			}
			out.BadValues++
			coerced[c.field]++
		}
		out.Records = append(out.Records, rec)
	}

	r.metrics.RowsRead.Add(float64(out.Rows))
	r.metrics.RowsDropped.WithLabelValues("malformed").Add(float64(out.Malformed))
	r.metrics.RowsDropped.WithLabelValues("timestamp").Add(float64(out.BadTimestamps))
	for field, n := range coerced {
		r.metrics.ValuesCoerced.WithLabelValues(string(field)).Add(float64(n))
	}
	return out, nil
}

// coercion is one numeric cell replaced by a missing value.
type coercion struct {
	field  domain.Field
	reason string
}

// keep returns the parsed value, noting a coercion when a non-blank cell was
// rejected.
func keep[T any](p domain.Parsed[T], field domain.Field, bad *[]coercion) T {
	if p.Defaulted && p.Reason != reasonEmpty {
		*bad = append(*bad, coercion{field: field, reason: p.Reason})
	}
	return p.Value
}

func (r *Reader) record(row []string, idx map[domain.Field]int) (domain.Record, []coercion, bool) {
	cell := func(f domain.Field) string {
		i, ok := idx[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, err := ParseTimestamp(cell(domain.FieldDatetime), r.loc)
	if err != nil {
		return domain.Record{}, nil, false
	}

	var bad []coercion
	rec := domain.Record{
		Datetime:       ts,
		Lane:           cell(domain.FieldLane),
		Direction:      cell(domain.FieldDirection),
		Category:       cell(domain.FieldCategory),
		CategorySIREDO: keep(ParseCode(cell(domain.FieldCategorySIREDO)), domain.FieldCategorySIREDO, &bad),
		Speed:          keep(ParseDecimal(cell(domain.FieldSpeed)), domain.FieldSpeed, &bad),
		Count:          keep(ParseDecimal(cell(domain.FieldCount)), domain.FieldCount, &bad),
	}
	domain.DeriveCalendar(&rec)
	return rec, bad, true
}
