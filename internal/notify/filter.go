package notify

import (
	"sort"

	"github.com/Alias1177/InsiderScan/models"
)

// Filter decides which records are worth an alert
type Filter struct {
	MinScore float64
	// Tiers restricts alerts to the listed volume tiers; empty allows all
	Tiers []models.VolumeTier
}

// Allow reports whether r passes the filter
func (f Filter) Allow(r models.AnomalyRecord) bool {
	if r.TotalScore < f.MinScore {
		return false
	}
	if len(f.Tiers) == 0 {
		return true
	}
	for _, tier := range f.Tiers {
		if r.VolumeTier == tier {
			return true
		}
	}
	return false
}

// Apply returns the allowed records, highest score first
func (f Filter) Apply(records []models.AnomalyRecord) []models.AnomalyRecord {
	out := make([]models.AnomalyRecord, 0, len(records))
	for _, r := range records {
		if f.Allow(r) {
			out = append(out, r)
		}
	}
	SortByScore(out)
	return out
}

// SortByScore orders records by score descending, then symbol
func SortByScore(records []models.AnomalyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TotalScore != records[j].TotalScore {
			return records[i].TotalScore > records[j].TotalScore
		}
		return records[i].Symbol < records[j].Symbol
	})
}
