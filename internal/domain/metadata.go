package domain

import (
	"regexp"
	"strings"
)

const (
	DefaultDirection1 = "Sens 1"
	DefaultDirection2 = "Sens 2"
	DefaultSiteName   = "Inconnu"
)

var (
	// directionsRe matches "(1: vers col de la Bonette) (2: vers Jausiers)".
	directionsRe = regexp.MustCompile(`\(1:\s*(.*?)\)\s*\(2:\s*(.*?)\)`)
	// parentheticalRe captures the first parenthesized group of a header.
	parentheticalRe = regexp.MustCompile(`\(([^)]*)\)`)
)

// HeaderMetadata is the site context embedded in a CSV header line.
type HeaderMetadata struct {
	SiteName   Parsed[string]
	Direction1 Parsed[string]
	Direction2 Parsed[string]
}

// HasDirections reports whether both direction labels were read from the header.
func (m HeaderMetadata) HasDirections() bool {
	return !m.Direction1.Defaulted && !m.Direction2.Defaulted
}

// ExtractHeaderMetadata reads the site name and direction labels from the
// first line of a sensor CSV. Anything that cannot be read falls back to a
// placeholder; this function never fails.
func ExtractHeaderMetadata(headerLine string) HeaderMetadata {
	meta := HeaderMetadata{
		SiteName:   DefaultedValue(DefaultSiteName, "no lane header"),
		Direction1: DefaultedValue(DefaultDirection1, "no direction header"),
		Direction2: DefaultedValue(DefaultDirection2, "no direction header"),
	}

	for _, col := range strings.Split(headerLine, ";") {
		field, ok := IdentifyField(col)
		if !ok {
			continue
		}
		switch field {
		case FieldLane:
			if meta.SiteName.Defaulted {
				meta.SiteName = siteNameFromLane(col)
			}
		case FieldDirection:
			if meta.Direction1.Defaulted {
				meta.Direction1, meta.Direction2 = directionsFromHeader(col)
			}
		}
	}
	return meta
}

// siteNameFromLane reads "lane (A, Col de Restefond)" → "Col de Restefond".
// A single-segment parenthetical is taken as the name itself.
func siteNameFromLane(col string) Parsed[string] {
	m := parentheticalRe.FindStringSubmatch(col)
	if len(m) != 2 {
		return DefaultedValue(DefaultSiteName, "lane header has no parenthetical")
	}
	parts := strings.Split(m[1], ",")
	name := strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		name = strings.TrimSpace(parts[1])
	}
	if name == "" {
		return DefaultedValue(DefaultSiteName, "empty site name")
	}
	return ParsedValue(name)
}

func directionsFromHeader(col string) (Parsed[string], Parsed[string]) {
	m := directionsRe.FindStringSubmatch(col)
	if len(m) != 3 {
		reason := "direction header has no (1: ...)(2: ...) labels"
		return DefaultedValue(DefaultDirection1, reason), DefaultedValue(DefaultDirection2, reason)
	}
	return ParsedValue(strings.TrimSpace(m[1])), ParsedValue(strings.TrimSpace(m[2]))
}
