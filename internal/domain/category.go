package domain

import "strings"

// bikeMarkers cover the spellings of "vélo" seen in exports, including the
// mojibake produced when UTF-8 text went through a latin1 round trip.
var bikeMarkers = []string{"vélo", "velo", "vï¿½lo", "v�lo", "vlo"}

// UnifyCategory maps a Sterela text label and an optional SIREDO code to a
// unified class. Rules apply in order; the first match wins.
func UnifyCategory(category string, siredo *int) Category {
	cat := strings.ToLower(strings.TrimSpace(category))

	for _, marker := range bikeMarkers {
		if strings.Contains(cat, marker) {
			return CategoryBike
		}
	}
	if cat == "moto" {
		return CategoryMoto
	}
	if siredo != nil && (*siredo == 1 || *siredo == 12) {
		return CategoryLight
	}
	if siredo == nil && cat == "u3" {
		return CategoryLight
	}
	if siredo != nil && isHeavySIREDO(*siredo) {
		return CategoryHeavy
	}
	return CategoryOther
}

func isHeavySIREDO(code int) bool {
	return (code >= 2 && code <= 11) || code == 14
}

// ApplyCategoryPass finalizes freshly ingested records: it sets the French
// weekday, the unified category and the day type, and drops rows whose
// category resolves to Autre. Pedestrian counters carry no vehicle class, so
// their unclassified rows are kept as Piétons. It returns the kept records
// and the number dropped.
func ApplyCategoryPass(records []Record, kind SiteType) ([]Record, int) {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		r.WeekdayFR = FrenchDay(r.Weekday)
		r.UnifiedCategory = UnifyCategory(r.Category, r.CategorySIREDO)
		if r.UnifiedCategory == CategoryOther {
			if kind != SitePedestrian {
				continue
			}
			r.UnifiedCategory = CategoryPedestrian
		}
		r.DayType = DayTypeOf(r.Weekday)
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}
