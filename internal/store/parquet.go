// Package store persists site datasets as per-site Parquet snapshots with a
// JSON metadata sidecar, and loads the static site registry.
//
// Layout under the data directory:
//
//	sites.json
//	metadata_<site>.json
//	parquet_store/<site>.parquet
package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

const (
	colDatetime        = "datetime"
	colLane            = "lane"
	colDirection       = "direction"
	colCategory        = "category"
	colCategorySIREDO  = "category_siredo"
	colSpeed           = "speed"
	colCount           = "count"
	colDate            = "date"
	colHour            = "hour"
	colMonth           = "month"
	colYear            = "year"
	colWeekday         = "weekday"
	colWeekdayFR       = "weekday_fr"
	colUnifiedCategory = "unified_category"
	colDayType         = "day_type"
)

var recordSchema = arrow.NewSchema([]arrow.Field{
	{Name: colDatetime, Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}},
	{Name: colLane, Type: arrow.BinaryTypes.String},
	{Name: colDirection, Type: arrow.BinaryTypes.String},
	{Name: colCategory, Type: arrow.BinaryTypes.String},
	{Name: colCategorySIREDO, Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: colSpeed, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: colCount, Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: colDate, Type: arrow.BinaryTypes.String},
	{Name: colHour, Type: arrow.PrimitiveTypes.Int32},
	{Name: colMonth, Type: arrow.PrimitiveTypes.Int32},
	{Name: colYear, Type: arrow.PrimitiveTypes.Int32},
	{Name: colWeekday, Type: arrow.BinaryTypes.String},
	{Name: colWeekdayFR, Type: arrow.BinaryTypes.String},
	{Name: colUnifiedCategory, Type: arrow.BinaryTypes.String},
	{Name: colDayType, Type: arrow.BinaryTypes.String},
}, nil)

// ParquetStore reads and writes one Parquet snapshot per site.
type ParquetStore struct {
	dir string
	mem memory.Allocator
}

// NewParquetStore creates a store rooted at dir. The directory is created on
// first write.
func NewParquetStore(dir string) *ParquetStore {
	return &ParquetStore{dir: dir, mem: memory.NewGoAllocator()}
}

// Path returns the snapshot path for a site.
func (s *ParquetStore) Path(siteID string) string {
	return filepath.Join(s.dir, siteID+".parquet")
}

// Exists reports whether a snapshot file is present for the site.
func (s *ParquetStore) Exists(siteID string) bool {
	info, err := os.Stat(s.Path(siteID))
	return err == nil && !info.IsDir()
}

// Write replaces the site's snapshot with records. The file is written to a
// temporary name and renamed into place.
func (s *ParquetStore) Write(siteID string, records []domain.Record) error {
	b := array.NewRecordBuilder(s.mem, recordSchema)
	defer b.Release()

	for i := range records {
		appendRecord(b, &records[i])
	}
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(recordSchema, &buf, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		return fmt.Errorf("write parquet records: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create parquet dir: %w", err)
	}
	tmp := s.Path(siteID) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write parquet file: %w", err)
	}
	if err := os.Rename(tmp, s.Path(siteID)); err != nil {
		os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename parquet file: %w", err)
	}
	return nil
}

// Read loads a site's snapshot. Timestamps are returned in loc.
func (s *ParquetStore) Read(ctx context.Context, siteID string, loc *time.Location) ([]domain.Record, error) {
	f, err := os.Open(s.Path(siteID))
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(s.mem), pqarrow.ArrowReadProperties{}, s.mem)
	if err != nil {
		return nil, fmt.Errorf("read parquet table: %w", err)
	}
	defer tbl.Release()

	records := make([]domain.Record, 0, tbl.NumRows())
	tr := array.NewTableReader(tbl, 64*1024)
	defer tr.Release()
	for tr.Next() {
		cols, err := bindColumns(tr.Record())
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(tr.Record().NumRows()); i++ {
			records = append(records, cols.record(i, loc))
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("iterate parquet table: %w", err)
	}
	return records, nil
}

func appendRecord(b *array.RecordBuilder, r *domain.Record) {
	b.Field(0).(*array.TimestampBuilder).Append(arrow.Timestamp(r.Datetime.UnixMicro()))
	b.Field(1).(*array.StringBuilder).Append(r.Lane)
	b.Field(2).(*array.StringBuilder).Append(r.Direction)
	b.Field(3).(*array.StringBuilder).Append(r.Category)
	if r.CategorySIREDO != nil {
		b.Field(4).(*array.Int32Builder).Append(int32(*r.CategorySIREDO))
	} else {
		b.Field(4).AppendNull()
	}
	appendFloat(b.Field(5).(*array.Float64Builder), r.Speed)
	appendFloat(b.Field(6).(*array.Float64Builder), r.Count)
	b.Field(7).(*array.StringBuilder).Append(r.Date)
	b.Field(8).(*array.Int32Builder).Append(int32(r.Hour))
	b.Field(9).(*array.Int32Builder).Append(int32(r.Month))
	b.Field(10).(*array.Int32Builder).Append(int32(r.Year))
	b.Field(11).(*array.StringBuilder).Append(r.Weekday)
	b.Field(12).(*array.StringBuilder).Append(r.WeekdayFR)
	b.Field(13).(*array.StringBuilder).Append(string(r.UnifiedCategory))
	b.Field(14).(*array.StringBuilder).Append(string(r.DayType))
}

func appendFloat(b *array.Float64Builder, v *float64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

// columns holds the typed arrays of one record batch, looked up by name.
type columns struct {
	datetime        *array.Timestamp
	lane            *array.String
	direction       *array.String
	category        *array.String
	categorySIREDO  *array.Int32
	speed           *array.Float64
	count           *array.Float64
	date            *array.String
	hour            *array.Int32
	month           *array.Int32
	year            *array.Int32
	weekday         *array.String
	weekdayFR       *array.String
	unifiedCategory *array.String
	dayType         *array.String
}

func bindColumns(rec arrow.Record) (columns, error) {
	var c columns
	var err error
	bind := func(name string, dst any) {
		if err != nil {
			return
		}
		idx := rec.Schema().FieldIndices(name)
		if len(idx) == 0 {
			err = fmt.Errorf("parquet snapshot has no %q column", name)
			return
		}
		col := rec.Column(idx[0])
		ok := false
		switch d := dst.(type) {
		case **array.Timestamp:
			*d, ok = col.(*array.Timestamp)
		case **array.String:
			*d, ok = col.(*array.String)
		case **array.Int32:
			*d, ok = col.(*array.Int32)
		case **array.Float64:
			*d, ok = col.(*array.Float64)
		}
		if !ok {
			err = fmt.Errorf("parquet column %q has unexpected type %s", name, col.DataType())
		}
	}

	bind(colDatetime, &c.datetime)
	bind(colLane, &c.lane)
	bind(colDirection, &c.direction)
	bind(colCategory, &c.category)
	bind(colCategorySIREDO, &c.categorySIREDO)
	bind(colSpeed, &c.speed)
	bind(colCount, &c.count)
	bind(colDate, &c.date)
	bind(colHour, &c.hour)
	bind(colMonth, &c.month)
	bind(colYear, &c.year)
	bind(colWeekday, &c.weekday)
	bind(colWeekdayFR, &c.weekdayFR)
	bind(colUnifiedCategory, &c.unifiedCategory)
	bind(colDayType, &c.dayType)
	return c, err
}

func (c columns) record(i int, loc *time.Location) domain.Record {
	r := domain.Record{
		Datetime:        time.UnixMicro(int64(c.datetime.Value(i))).In(loc),
		Lane:            c.lane.Value(i),
		Direction:       c.direction.Value(i),
		Category:        c.category.Value(i),
		Speed:           floatAt(c.speed, i),
		Count:           floatAt(c.count, i),
		Date:            c.date.Value(i),
		Hour:            int(c.hour.Value(i)),
		Month:           int(c.month.Value(i)),
		Year:            int(c.year.Value(i)),
		Weekday:         c.weekday.Value(i),
		WeekdayFR:       c.weekdayFR.Value(i),
		UnifiedCategory: domain.Category(c.unifiedCategory.Value(i)),
		DayType:         domain.DayType(c.dayType.Value(i)),
	}
	if c.categorySIREDO.IsValid(i) {
		v := int(c.categorySIREDO.Value(i))
		r.CategorySIREDO = &v
	}
	return r
}

func floatAt(a *array.Float64, i int) *float64 {
	if a.IsNull(i) {
		return nil
	}
	v := a.Value(i)
	return &v
}
