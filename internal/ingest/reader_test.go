package ingest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const roadCSV = `horodate_generated;lane (A, Col de la Bonette);direction_1_2 (1: vers Bonette) (2: vers Jausiers);categorySterela_label;category1;speed;speedAverage
2023-06-12T08:15:00+02:00;A;1;Vélo;;18,5;20
2023-06-12 09:30:00;A;2;;1;72,0;70
2023-06-12 09:31:00;A;2;moto;;n/a;70
not-a-date;A;1;;2;50;50
2023-06-17 10:00:00;A;1;;5;61;60;extra;fields
`

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	loc, err := time.LoadLocation(domain.DefaultTimezone)
	require.NoError(t, err)
	return NewReader(loc, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func latin1(t *testing.T, s string) string {
	t.Helper()
	enc, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	return enc
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(latin1(t, content)), 0o644))
	return path
}

func TestRead_Road(t *testing.T) {
	r := newTestReader(t)

	f, err := r.Read(strings.NewReader(latin1(t, roadCSV)))
	require.NoError(t, err)

	assert.Equal(t, 5, f.Rows)
	assert.Equal(t, 1, f.Malformed)
	assert.Equal(t, 1, f.BadTimestamps)
	require.Len(t, f.Records, 3)

	assert.Equal(t, "Col de la Bonette", f.Metadata.SiteName.Value)
	assert.Equal(t, "vers Bonette", f.Metadata.Direction1.Value)
	assert.Equal(t, "vers Jausiers", f.Metadata.Direction2.Value)
	assert.NotContains(t, f.Columns, "speedAverage")

	first := f.Records[0]
	assert.Equal(t, "Vélo", first.Category)
	assert.Equal(t, "1", first.Direction)
	require.NotNil(t, first.Speed)
	assert.InDelta(t, 18.5, *first.Speed, 1e-9)
	assert.Nil(t, first.CategorySIREDO)
	assert.Equal(t, 8, first.Hour)
	assert.Equal(t, "2023-06-12", first.Date)
	assert.Equal(t, "Monday", first.Weekday)

	second := f.Records[1]
	assert.Equal(t, 9, second.Hour, "naive timestamps are wall clock in the site zone")
	require.NotNil(t, second.CategorySIREDO)
	assert.Equal(t, 1, *second.CategorySIREDO)

	assert.Nil(t, f.Records[2].Speed, "unparseable speed becomes missing")
	assert.Equal(t, 1, f.BadValues, "blank cells are not counted")
	assert.Equal(t, `Speed: not a number: "n/a"`, f.BadValueReason)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestReadFile_ReportsCoercedValues(t *testing.T) {
	loc, err := time.LoadLocation(domain.DefaultTimezone)
	require.NoError(t, err)
	var logs bytes.Buffer
	metrics := observability.NewMetricsForTesting()
	r := NewReader(loc, slog.New(slog.NewTextHandler(&logs, nil)), metrics)

	path := writeCSV(t, t.TempDir(), "bonette.csv",
		"horodate_generated;category1;speed;comptage\n"+
			"2023-06-12 08:00:00;1;n/a;3\n"+
			"2023-06-12 08:01:00;2,5;abc;\n"+
			"2023-06-12 08:02:00;;40;4\n")

	f, err := r.ReadFile(path)
	require.NoError(t, err)

	require.Len(t, f.Records, 3)
	assert.Nil(t, f.Records[0].Speed)
	assert.Nil(t, f.Records[1].Speed)
	assert.Nil(t, f.Records[1].CategorySIREDO)
	assert.Equal(t, 3, f.BadValues)

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "bad_values=3")
	assert.InDelta(t, 2.0, counterValue(t, metrics.ValuesCoerced.WithLabelValues(string(domain.FieldSpeed))), 1e-9)
	assert.InDelta(t, 1.0, counterValue(t, metrics.ValuesCoerced.WithLabelValues(string(domain.FieldCategorySIREDO))), 1e-9)
	assert.InDelta(t, 0.0, counterValue(t, metrics.ValuesCoerced.WithLabelValues(string(domain.FieldCount))), 1e-9)
}

func TestReadFile_CleanFileLogsNoWarning(t *testing.T) {
	loc, err := time.LoadLocation(domain.DefaultTimezone)
	require.NoError(t, err)
	var logs bytes.Buffer
	r := NewReader(loc, slog.New(slog.NewTextHandler(&logs, nil)), observability.NewMetricsForTesting())

	path := writeCSV(t, t.TempDir(), "clean.csv", "horodate_generated;speed\n2023-06-12 08:00:00;40\n")

	f, err := r.ReadFile(path)
	require.NoError(t, err)
	assert.Zero(t, f.BadValues)
	assert.NotContains(t, logs.String(), "WARN")
}

func TestRead_ConvertsOffsetsToSiteZone(t *testing.T) {
	r := newTestReader(t)
	csv := "Horodate_Generated_UTC;speed\n2023-07-15T23:30:00Z;40\n"

	f, err := r.Read(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, f.Records, 1)

	rec := f.Records[0]
	assert.Equal(t, "2023-07-16", rec.Date)
	assert.Equal(t, 1, rec.Hour)
	assert.Equal(t, "Sunday", rec.Weekday)
	assert.Equal(t, domain.DefaultDirection1, f.Metadata.Direction1.Value)
	assert.True(t, f.Metadata.Direction1.Defaulted)
}

func TestRead_NoTimestampColumn(t *testing.T) {
	r := newTestReader(t)

	_, err := r.Read(strings.NewReader("lane;speed\nA;50\n"))

	require.ErrorIs(t, err, domain.ErrNoTimestampColumn)
}

func TestRead_StripsByteOrderMark(t *testing.T) {
	r := newTestReader(t)
	raw := "\xef\xbb\xbfhorodate_generated;comptage\n2023-06-12 08:00:00;12\n"

	f, err := r.Read(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, f.Records, 1)
	require.NotNil(t, f.Records[0].Count)
	assert.InDelta(t, 12.0, *f.Records[0].Count, 1e-9)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", roadCSV)
	writeCSV(t, dir, "b.csv", "lane;speed\nA;1\n")
	writeCSV(t, dir, "c.csv", "horodate_generated;speed\n2023-06-13 08:00:00;30\n")
	writeCSV(t, dir, "notes.txt", "ignored")

	batch, err := newTestReader(t).ReadDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, batch.Files, 2)
	assert.Equal(t, []string{filepath.Join(dir, "b.csv")}, batch.Skipped)
	assert.Len(t, batch.Records, 4)
	assert.Equal(t, "vers Bonette", batch.Metadata.Direction1.Value)
	assert.Equal(t, "Col de la Bonette", batch.Metadata.SiteName.Value)
}

func TestReadDir_NoFiles(t *testing.T) {
	_, err := newTestReader(t).ReadDir(context.Background(), t.TempDir())

	require.ErrorIs(t, err, domain.ErrNoSourceFiles)
}

func TestReadDir_OnlyUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", "lane;speed\nA;1\n")

	_, err := newTestReader(t).ReadDir(context.Background(), dir)

	require.ErrorIs(t, err, domain.ErrNoSourceFiles)
}
