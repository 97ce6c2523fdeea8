package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// AnnualTMJ is the mean daily volume of one category over one year.
type AnnualTMJ struct {
	Year     int             `json:"year"`
	Category domain.Category `json:"category"`
	Volume   float64         `json:"volume"`
	Days     int             `json:"days"`
	TMJ      float64         `json:"tmj"`
}

// MonthlyTMJ is the mean daily volume of one month, all selected categories.
type MonthlyTMJ struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	Volume    float64 `json:"volume"`
	Days      int     `json:"days"`
	TMJ       float64 `json:"tmj"`
}

// Comparison holds the year-over-year views.
type Comparison struct {
	Annual  []AnnualTMJ  `json:"annual"`
	Monthly []MonthlyTMJ `json:"monthly"`
}

// Compare computes annual and monthly TMJ for the selected categories (all
// when cats is empty). Days are the distinct observed dates of the selection
// within each year or month.
func Compare(ds domain.Dataset, cats []domain.Category) Comparison {
	type yearCat struct {
		year int
		cat  domain.Category
	}
	type yearMonth struct{ year, month int }

	annualVol := map[yearCat]float64{}
	monthlyVol := map[yearMonth]float64{}
	yearDays := map[int]map[time.Time]struct{}{}
	monthDays := map[yearMonth]map[time.Time]struct{}{}

	for _, r := range ds.Records {
		if !matchCategory(r.UnifiedCategory, cats) {
			continue
		}
		w := ds.Weight(r)
		ym := yearMonth{r.Year, r.Month}
		annualVol[yearCat{r.Year, r.UnifiedCategory}] += w
		monthlyVol[ym] += w

		day := domain.CivilDate(r.Datetime)
		addDay(yearDays, r.Year, day)
		addDay(monthDays, ym, day)
	}

	var c Comparison
	for k, v := range annualVol {
		n := len(yearDays[k.year])
		c.Annual = append(c.Annual, AnnualTMJ{Year: k.year, Category: k.cat, Volume: v, Days: n, TMJ: tmj(v, n)})
	}
	for k, v := range monthlyVol {
		n := len(monthDays[k])
		c.Monthly = append(c.Monthly, MonthlyTMJ{
			Year: k.year, Month: k.month, MonthName: domain.FrenchMonth(k.month),
			Volume: v, Days: n, TMJ: tmj(v, n),
		})
	}

	sort.Slice(c.Annual, func(i, j int) bool {
		if c.Annual[i].Year != c.Annual[j].Year {
			return c.Annual[i].Year < c.Annual[j].Year
		}
		return c.Annual[i].Category < c.Annual[j].Category
	})
	sort.Slice(c.Monthly, func(i, j int) bool {
		if c.Monthly[i].Year != c.Monthly[j].Year {
			return c.Monthly[i].Year < c.Monthly[j].Year
		}
		return c.Monthly[i].Month < c.Monthly[j].Month
	})
	return c
}

func addDay[K comparable](days map[K]map[time.Time]struct{}, k K, day time.Time) {
	set, ok := days[k]
	if !ok {
		set = map[time.Time]struct{}{}
		days[k] = set
	}
	set[day] = struct{}{}
}

func tmj(volume float64, days int) float64 {
	if days == 0 {
		return 0
	}
	return math.RoundToEven(volume / float64(days))
}
