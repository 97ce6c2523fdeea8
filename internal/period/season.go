// Package period filters site datasets by date range and recurring season
// windows, and counts the theoretical calendar days those filters cover.
package period

import (
	"fmt"
	"time"
)

// Season is a recurring month/day window independent of year. A season whose
// start falls after its end (for example Nov 1 to Mar 31) wraps the year end.
type Season struct {
	StartMonth int
	StartDay   int
	EndMonth   int
	EndDay     int
}

func (s Season) start() int { return s.StartMonth*100 + s.StartDay }
func (s Season) end() int   { return s.EndMonth*100 + s.EndDay }

// Wraps reports whether the window spans the year boundary.
func (s Season) Wraps() bool { return s.start() > s.end() }

// Contains reports whether the given month and day fall inside the window.
func (s Season) Contains(month, day int) bool {
	md := month*100 + day
	if s.Wraps() {
		return md >= s.start() || md <= s.end()
	}
	return md >= s.start() && md <= s.end()
}

func (s Season) String() string {
	return fmt.Sprintf("%02d-%02d:%02d-%02d", s.StartMonth, s.StartDay, s.EndMonth, s.EndDay)
}

// ParseSeason reads the "MM-DD:MM-DD" form used by the dashboard query string.
func ParseSeason(v string) (Season, error) {
	var s Season
	if _, err := fmt.Sscanf(v, "%d-%d:%d-%d", &s.StartMonth, &s.StartDay, &s.EndMonth, &s.EndDay); err != nil {
		return Season{}, fmt.Errorf("parse season %q: %w", v, err)
	}
	if err := s.validate(); err != nil {
		return Season{}, fmt.Errorf("parse season %q: %w", v, err)
	}
	return s, nil
}

func (s Season) validate() error {
	for _, md := range [][2]int{{s.StartMonth, s.StartDay}, {s.EndMonth, s.EndDay}} {
		if md[0] < 1 || md[0] > 12 {
			return fmt.Errorf("month %d out of range", md[0])
		}
		// 2024 is a leap year so Feb 29 is accepted.
		last := time.Date(2024, time.Month(md[0])+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if md[1] < 1 || md[1] > last {
			return fmt.Errorf("day %d out of range for month %d", md[1], md[0])
		}
	}
	return nil
}
