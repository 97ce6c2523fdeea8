package analytics

import (
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/period"
)

// PedestrianSummary is the headline table of a pedestrian site.
type PedestrianSummary struct {
	Total          int    `json:"total"`
	PerDay         int    `json:"per_day"`
	PerWorkday     int    `json:"per_workday"`
	PerWeekend     int    `json:"per_weekend"`
	PeakDay        string `json:"peak_day"`
	PeakCount      int    `json:"peak_count"`
	BusiestWeekday string `json:"busiest_weekday"`
}

// SummarizePedestrian totals the counts per day and derives daily means,
// the busiest date and the weekday with the highest mean daily count.
func SummarizePedestrian(ds domain.Dataset, days period.DayCounts) PedestrianSummary {
	s := PedestrianSummary{PeakDay: Placeholder, BusiestWeekday: Placeholder}
	if ds.Empty() {
		return s
	}

	daily := map[time.Time]float64{}
	for _, r := range ds.Records {
		daily[domain.CivilDate(r.Datetime)] += ds.Weight(r)
	}

	var total, workday, weekend float64
	var weekdaySum [7]float64
	var weekdayN [7]int
	var peak time.Time
	peakCount := -1.0
	for day, count := range daily {
		total += count
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			weekend += count
		} else {
			workday += count
		}
		i := mondayIndex(day.Weekday())
		weekdaySum[i] += count
		weekdayN[i]++
		if count > peakCount || (count == peakCount && day.Before(peak)) {
			peak, peakCount = day, count
		}
	}

	s.Total = int(total)
	if days.Total > 0 {
		s.PerDay = roundDiv(total, days.Total)
	}
	if days.Workday > 0 {
		s.PerWorkday = roundDiv(workday, days.Workday)
	}
	if days.Weekend > 0 {
		s.PerWeekend = roundDiv(weekend, days.Weekend)
	}
	s.PeakDay = peak.Format("02/01/2006")
	s.PeakCount = int(peakCount)

	best := -1
	for i := range weekdaySum {
		if weekdayN[i] == 0 {
			continue
		}
		if best < 0 || weekdaySum[i]/float64(weekdayN[i]) > weekdaySum[best]/float64(weekdayN[best]) {
			best = i
		}
	}
	s.BusiestWeekday = domain.FrenchDaysOrder[best]
	return s
}
