package period

import (
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// DayCounts is the number of calendar days a filter covers, split by day type.
type DayCounts struct {
	Total   int `json:"total"`
	Workday int `json:"workday"`
	Weekend int `json:"weekend"`
}

// FilterByDate keeps records from the start of start through the end of end,
// both interpreted as civil dates in the dataset's timezone. A zero bound
// returns the dataset unchanged.
func FilterByDate(ds domain.Dataset, start, end time.Time) domain.Dataset {
	if start.IsZero() || end.IsZero() {
		return ds
	}
	loc := ds.Location
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	until := time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, loc)

	return ds.Filter(func(r domain.Record) bool {
		return !r.Datetime.Before(from) && r.Datetime.Before(until)
	})
}

// FilterBySeason keeps the records whose civil month/day falls inside s and
// counts the matching days across the full calendar spanned by ds, whether or
// not those days carry any data. Road sensors emit nothing on a day without
// traffic, so the observed dates undercount the period.
//
// Pedestrian datasets report buckets for every day they cover, so their day
// counts come from the distinct dates present in the filtered data.
func FilterBySeason(ds domain.Dataset, s Season) (domain.Dataset, DayCounts) {
	filtered := ds.Filter(func(r domain.Record) bool {
		_, m, d := r.Datetime.Date()
		return s.Contains(int(m), d)
	})
	if ds.Kind == domain.SitePedestrian {
		return filtered, ObservedDays(filtered)
	}

	first, last, ok := ds.DateBounds()
	if !ok {
		return filtered, DayCounts{}
	}
	return filtered, CountDays(first, last, &s)
}

// CountDays counts the calendar days from..to inclusive, optionally
// restricted to a season. Only the civil date of each bound is used.
func CountDays(from, to time.Time, s *Season) DayCounts {
	var dc DayCounts
	day := domain.CivilDate(from)
	last := domain.CivilDate(to)
	for !day.After(last) {
		if s == nil || s.Contains(int(day.Month()), day.Day()) {
			dc.add(day.Weekday())
		}
		day = day.AddDate(0, 0, 1)
	}
	return dc
}

// ObservedDays counts the distinct civil dates present in ds.
func ObservedDays(ds domain.Dataset) DayCounts {
	seen := make(map[time.Time]struct{})
	var dc DayCounts
	for _, r := range ds.Records {
		day := domain.CivilDate(r.Datetime)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		dc.add(day.Weekday())
	}
	return dc
}

func (dc *DayCounts) add(wd time.Weekday) {
	dc.Total++
	if wd == time.Saturday || wd == time.Sunday {
		dc.Weekend++
	} else {
		dc.Workday++
	}
}

// Window is a dashboard period selection: an optional civil date range and an
// optional season.
type Window struct {
	Start  time.Time
	End    time.Time
	Season *Season
}

// Apply filters ds by the window's date range, then by its season when set,
// and returns the day counts the metrics engine should divide by.
//
// Without a season the counts cover the requested range, or the dataset's own
// date bounds when the range is open, whatever the site kind. Observed days
// only apply to seasonal pedestrian selections.
func (w Window) Apply(ds domain.Dataset) (domain.Dataset, DayCounts) {
	filtered := FilterByDate(ds, w.Start, w.End)
	if w.Season != nil {
		return FilterBySeason(filtered, *w.Season)
	}
	if !w.Start.IsZero() && !w.End.IsZero() {
		return filtered, CountDays(w.Start, w.End, nil)
	}
	first, last, ok := filtered.DateBounds()
	if !ok {
		return filtered, DayCounts{}
	}
	return filtered, CountDays(first, last, nil)
}
