package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNoTimestampColumn is returned when a CSV has no recognizable timestamp header.
	ErrNoTimestampColumn = errors.New("no timestamp column")
	// ErrUnknownSite is returned when a site id is absent from the registry.
	ErrUnknownSite = errors.New("unknown site")
	// ErrNoSourceFiles is returned when a site folder holds no readable CSV data.
	ErrNoSourceFiles = errors.New("no source files")
)

// Category is a unified vehicle class.
type Category string

const (
	CategoryBike       Category = "Vélos"
	CategoryMoto       Category = "Motos"
	CategoryLight      Category = "VL"
	CategoryHeavy      Category = "PL"
	CategoryPedestrian Category = "Piétons"
	CategoryOther      Category = "Autre"
)

// RoadCategories lists the classes shown for road counters, in display order.
var RoadCategories = []Category{CategoryBike, CategoryMoto, CategoryLight, CategoryHeavy}

// IsMotorized reports whether the class is a motor vehicle.
func (c Category) IsMotorized() bool {
	return c == CategoryMoto || c == CategoryLight || c == CategoryHeavy
}

// DayType is the workday/weekend classification of a calendar day.
type DayType string

const (
	DayWorkday DayType = "JO"
	DayWeekend DayType = "WE"
)

// Record is one normalized observation: a single detection for road
// counters, or one count bucket for pedestrian counters.
type Record struct {
	Datetime       time.Time
	Lane           string
	Direction      string
	Category       string
	CategorySIREDO *int
	Speed          *float64
	Count          *float64

	Date      string // YYYY-MM-DD in the site timezone
	Hour      int
	Month     int
	Year      int
	Weekday   string // English day name
	WeekdayFR string

	UnifiedCategory Category
	DayType         DayType
}

// Metadata is the site-level context attached to a Dataset.
type Metadata struct {
	SiteName   string  `json:"site_name"`
	Direction1 string  `json:"direction_1"`
	Direction2 string  `json:"direction_2"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// DirectionLabel returns the label for a raw Direction value. Sensors write
// the direction as free text, so any value containing "1" belongs to the first
// direction and any other value containing "2" to the second.
func (m Metadata) DirectionLabel(direction string) string {
	switch {
	case strings.Contains(direction, "1"):
		return m.Direction1
	case strings.Contains(direction, "2"):
		return m.Direction2
	default:
		return DefaultSiteName
	}
}

// InDirection reports whether a raw Direction value belongs to direction code.
func InDirection(direction, code string) bool {
	return strings.Contains(direction, code)
}

// Dataset is the ordered set of normalized records for one site. Filtering
// helpers return new Datasets sharing Metadata but never mutate the source.
type Dataset struct {
	SiteID   string
	Kind     SiteType
	Location *time.Location
	Metadata Metadata
	Records  []Record
}

// Empty reports whether the dataset has no records.
func (d Dataset) Empty() bool {
	return len(d.Records) == 0
}

// WithRecords returns a copy of d carrying the given records.
func (d Dataset) WithRecords(records []Record) Dataset {
	d.Records = records
	return d
}

// Filter returns a copy of d holding only the records accepted by keep.
func (d Dataset) Filter(keep func(Record) bool) Dataset {
	out := make([]Record, 0, len(d.Records))
	for _, r := range d.Records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return d.WithRecords(out)
}

// Weight is the traffic volume a record contributes: its Count for
// pedestrian counters, one detection otherwise.
func (d Dataset) Weight(r Record) float64 {
	if d.Kind != SitePedestrian {
		return 1
	}
	if r.Count == nil {
		return 0
	}
	return *r.Count
}

// Volume sums the weight of every record.
func (d Dataset) Volume() float64 {
	var total float64
	for _, r := range d.Records {
		total += d.Weight(r)
	}
	return total
}

// DateBounds returns the earliest and latest calendar days present, as UTC
// midnights. ok is false for an empty dataset.
func (d Dataset) DateBounds() (first, last time.Time, ok bool) {
	for _, r := range d.Records {
		day := CivilDate(r.Datetime)
		if !ok || day.Before(first) {
			first = day
		}
		if !ok || day.After(last) {
			last = day
		}
		ok = true
	}
	return first, last, ok
}

// RebuildEvent announces that a site's cached dataset was regenerated.
type RebuildEvent struct {
	SiteID    string    `json:"site_id"`
	Records   int       `json:"records"`
	Source    string    `json:"source"`
	RebuiltAt time.Time `json:"rebuilt_at"`
}
