package domain

import (
	"time"
	_ "time/tzdata" // sites run with a fixed IANA zone regardless of host tzdata
)

// DefaultTimezone is the zone sensor timestamps are converted to.
const DefaultTimezone = "Europe/Paris"

// DateLayout is the layout of Record.Date.
const DateLayout = "2006-01-02"

var frenchDays = map[time.Weekday]string{
	time.Monday:    "Lundi",
	time.Tuesday:   "Mardi",
	time.Wednesday: "Mercredi",
	time.Thursday:  "Jeudi",
	time.Friday:    "Vendredi",
	time.Saturday:  "Samedi",
	time.Sunday:    "Dimanche",
}

// FrenchDaysOrder lists French weekday names Monday first.
var FrenchDaysOrder = []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}

var frenchMonths = [...]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// FrenchDay maps an English weekday name ("Monday") to its French display
// name. Unknown names are returned unchanged.
func FrenchDay(english string) string {
	for wd, fr := range frenchDays {
		if wd.String() == english {
			return fr
		}
	}
	return english
}

// FrenchWeekday returns the French name of a weekday.
func FrenchWeekday(wd time.Weekday) string {
	return frenchDays[wd]
}

// FrenchMonth returns the French name of month 1..12.
func FrenchMonth(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return frenchMonths[m-1]
}

// IsWeekend reports whether an English weekday name is Saturday or Sunday.
func IsWeekend(english string) bool {
	return english == time.Saturday.String() || english == time.Sunday.String()
}

// DayTypeOf classifies an English weekday name.
func DayTypeOf(english string) DayType {
	if IsWeekend(english) {
		return DayWeekend
	}
	return DayWorkday
}

// CivilDate returns the calendar day of t, in t's own zone, as a UTC midnight.
// UTC midnights step by exactly 24h, which keeps day iteration free of DST gaps.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DeriveCalendar fills the calendar fields of r from its Datetime.
func DeriveCalendar(r *Record) {
	t := r.Datetime
	r.Date = t.Format(DateLayout)
	r.Hour = t.Hour()
	r.Month = int(t.Month())
	r.Year = t.Year()
	r.Weekday = t.Weekday().String()
}
