package analytics

import (
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// Heatmap is the mean hourly flow for each weekday, Monday first.
type Heatmap struct {
	Days []string       `json:"days"`
	Flow [7][24]float64 `json:"flow"`
}

// WeeklyHeatmap sums the volume per weekday and hour, then divides each
// weekday by how many times it occurs between start and end. Open bounds fall
// back to the dataset's own dates.
func WeeklyHeatmap(ds domain.Dataset, start, end time.Time) Heatmap {
	h := Heatmap{Days: domain.FrenchDaysOrder}
	first, last, ok := ds.DateBounds()
	if !ok {
		return h
	}
	if !start.IsZero() {
		first = domain.CivilDate(start)
	}
	if !end.IsZero() {
		last = domain.CivilDate(end)
	}

	var occurrences [7]int
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		occurrences[mondayIndex(d.Weekday())]++
	}

	for _, r := range ds.Records {
		h.Flow[mondayIndex(r.Datetime.Weekday())][r.Hour] += ds.Weight(r)
	}
	for day := range h.Flow {
		for hour := range h.Flow[day] {
			if occurrences[day] == 0 {
				h.Flow[day][hour] = 0
				continue
			}
			h.Flow[day][hour] /= float64(occurrences[day])
		}
	}
	return h
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
