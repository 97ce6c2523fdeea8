package domain

import "strings"

// SiteType distinguishes road counters (one row per detection) from
// pedestrian counters (bucketed counts).
type SiteType string

const (
	SiteRoad       SiteType = "road"
	SitePedestrian SiteType = "pedestrian"
)

// Site is a counting location from the static site registry.
type Site struct {
	ID       string    `json:"id" validate:"required,siteid"`
	Name     string    `json:"name" validate:"required"`
	Type     string    `json:"type" validate:"required,sitetype"`
	Keywords []string  `json:"keywords,omitempty"`
	Coords   []float64 `json:"coords,omitempty" validate:"omitempty,len=2"`
}

// Kind normalizes the registry type, accepting the French labels used by
// older registries.
func (s Site) Kind() SiteType {
	kind, _ := ParseSiteType(s.Type)
	return kind
}

// ParseSiteType maps a registry type to a SiteType. Unknown values are
// reported as road sites with ok=false.
func ParseSiteType(v string) (kind SiteType, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "pedestrian", "pieton", "piéton":
		return SitePedestrian, true
	case "road", "routier":
		return SiteRoad, true
	default:
		return SiteRoad, false
	}
}

// Lat returns the site latitude, or 0 when coordinates are absent.
func (s Site) Lat() float64 {
	if len(s.Coords) < 2 {
		return 0
	}
	return s.Coords[0]
}

// Lon returns the site longitude, or 0 when coordinates are absent.
func (s Site) Lon() float64 {
	if len(s.Coords) < 2 {
		return 0
	}
	return s.Coords[1]
}

// FindSite returns the site with the given id.
func FindSite(sites []Site, id string) (Site, bool) {
	for _, s := range sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}
