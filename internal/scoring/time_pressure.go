package scoring

import (
	"github.com/Alias1177/InsiderScan/models"
)

// TimePressure scores concentration in near-dated expiries (0-2).
// Short-term volume includes this-week volume, so the nearest contracts count twice.
func TimePressure(in Input) models.FactorScore {
	th := in.Thresholds

	var total, thisWeek, shortTerm int64
	for _, c := range in.Observations {
		if c.SessionVolume <= 0 {
			continue
		}
		total += c.SessionVolume
		days := models.DaysToExpiration(in.EventDate, c.ExpirationDate)
		if days <= th.ThisWeekDays {
			thisWeek += c.SessionVolume
		}
		if days <= th.ShortTermDays {
			shortTerm += c.SessionVolume
		}
	}

	weekRatio := ratio(thisWeek, total)
	shortRatio := ratio(shortTerm, total)
	raw := weekRatio*th.ThisWeekWeight + shortRatio*th.ShortTermWeight

	return models.FactorScore{
		Name:  models.FactorTimePressure,
		Value: clamp(raw, 0, th.TimePressureFactorMax),
		Max:   th.TimePressureFactorMax,
		Metrics: map[string]float64{
			"this_week_ratio":  weekRatio,
			"short_term_ratio": shortRatio,
			"this_week_volume": float64(thisWeek),
			"short_volume":     float64(shortTerm),
		},
	}
}
