package analytics

import (
	"sort"

	"github.com/couchcryptid/traffic-count-etl/internal/domain"
)

// Motorized groups Motos, VL and PL in the active-mobility split.
const Motorized = "Motorisé"

// Share is one slice of a split.
type Share struct {
	Label   string  `json:"label"`
	Volume  float64 `json:"volume"`
	Percent float64 `json:"percent"`
}

// Split is the modal split of a period, each slice list sorted by volume.
type Split struct {
	Active    []Share `json:"active"`
	Motorized []Share `json:"motorized"`
	All       []Share `json:"all"`
}

// ModalSplit computes bikes against motorised traffic, the split within
// motorised traffic, and the split across every category.
func ModalSplit(ds domain.Dataset) Split {
	active := map[string]float64{}
	motorized := map[string]float64{}
	all := map[string]float64{}

	for _, r := range ds.Records {
		w := ds.Weight(r)
		cat := string(r.UnifiedCategory)
		all[cat] += w
		if r.UnifiedCategory == domain.CategoryBike {
			active[cat] += w
		} else {
			active[Motorized] += w
		}
		if r.UnifiedCategory.IsMotorized() {
			motorized[cat] += w
		}
	}

	return Split{
		Active:    shares(active),
		Motorized: shares(motorized),
		All:       shares(all),
	}
}

func shares(volumes map[string]float64) []Share {
	var total float64
	for _, v := range volumes {
		total += v
	}
	out := make([]Share, 0, len(volumes))
	for label, v := range volumes {
		s := Share{Label: label, Volume: v}
		if total > 0 {
			s.Percent = v / total * 100
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].Label < out[j].Label
	})
	return out
}
