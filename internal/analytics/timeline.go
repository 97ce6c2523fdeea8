package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// Frequency is a timeline bucket width.
type Frequency string

const (
	Hourly  Frequency = "H"
	Daily   Frequency = "D"
	Monthly Frequency = "M"
)

// ParseFrequency accepts H, D or M in either case. Anything else is Daily.
func ParseFrequency(s string) Frequency {
	switch Frequency(strings.ToUpper(strings.TrimSpace(s))) {
	case Hourly:
		return Hourly
	case Monthly:
		return Monthly
	default:
		return Daily
	}
}

// AutoFrequency picks a bucket width for a span: monthly beyond 400 days,
// hourly under 14 days, daily otherwise.
func AutoFrequency(from, to time.Time) Frequency {
	days := int(domain.CivilDate(to).Sub(domain.CivilDate(from)).Hours() / 24)
	switch {
	case days > 400:
		return Monthly
	case days < 14:
		return Hourly
	default:
		return Daily
	}
}

// Truncate returns the start of the bucket containing t, in t's location.
func (f Frequency) Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	switch f {
	case Hourly:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}

// TimelinePoint is the volume of one group in one bucket.
type TimelinePoint struct {
	Bucket time.Time `json:"bucket"`
	Group  string    `json:"group"`
	Volume float64   `json:"volume"`
}

// Timeline groups ds by bucket and by "<category> - <direction label>".
// Empty cats or dirs select everything; otherwise a row is kept when its
// category is listed and its Direction contains one of dirs.
func Timeline(ds domain.Dataset, freq Frequency, cats []domain.Category, dirs []string) []TimelinePoint {
	type key struct {
		bucket time.Time
		group  string
	}
	volumes := make(map[key]float64)

	for _, r := range ds.Records {
		if !matchCategory(r.UnifiedCategory, cats) || !matchDirection(r.Direction, dirs) {
			continue
		}
		k := key{
			bucket: freq.Truncate(r.Datetime),
			group:  string(r.UnifiedCategory) + " - " + ds.Metadata.DirectionLabel(r.Direction),
		}
		volumes[k] += ds.Weight(r)
	}

	points := make([]TimelinePoint, 0, len(volumes))
	for k, v := range volumes {
		points = append(points, TimelinePoint{Bucket: k.bucket, Group: k.group, Volume: v})
	}
	sort.Slice(points, func(i, j int) bool {
		if !points[i].Bucket.Equal(points[j].Bucket) {
			return points[i].Bucket.Before(points[j].Bucket)
		}
		return points[i].Group < points[j].Group
	})
	return points
}

func matchCategory(c domain.Category, cats []domain.Category) bool {
	if len(cats) == 0 {
		return true
	}
	for _, want := range cats {
		if c == want {
			return true
		}
	}
	return false
}

func matchDirection(direction string, dirs []string) bool {
	if len(dirs) == 0 {
		return true
	}
	for _, code := range dirs {
		if domain.InDirection(direction, code) {
			return true
		}
	}
	return false
}
