package http

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
	"github.com/couchcryptid/traffic-count-etl/internal/period"
)

// query is the dashboard selection carried by the query string.
type query struct {
	window period.Window
	freq   string
	cats   []domain.Category
	dirs   []string
}

// parseQuery reads start, end (YYYY-MM-DD, both or neither), season
// (MM-DD:MM-DD), freq, and the comma-separated cats and dirs lists.
func parseQuery(v url.Values) (query, error) {
	var q query

	start, end := v.Get("start"), v.Get("end")
	if (start == "") != (end == "") {
		return q, errors.New("start and end must be given together")
	}
	if start != "" {
		var err error
		if q.window.Start, err = time.Parse(domain.DateLayout, start); err != nil {
			return q, fmt.Errorf("invalid start: %w", err)
		}
		if q.window.End, err = time.Parse(domain.DateLayout, end); err != nil {
			return q, fmt.Errorf("invalid end: %w", err)
		}
		if q.window.End.Before(q.window.Start) {
			return q, errors.New("end is before start")
		}
	}

	if s := v.Get("season"); s != "" {
		season, err := period.ParseSeason(s)
		if err != nil {
			return q, err
		}
		q.window.Season = &season
	}

	q.freq = v.Get("freq")
	for _, c := range splitList(v.Get("cats")) {
		q.cats = append(q.cats, domain.Category(c))
	}
	q.dirs = splitList(v.Get("dirs"))
	return q, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
