package scoring

import (
	"math"

	"github.com/Alias1177/InsiderScan/models"
)

// Scorer turns one symbol's session into a bounded factor score
type Scorer func(in Input) models.FactorScore

// Factors runs the five scorers
func Factors(in Input) models.FactorScores {
	return models.FactorScores{
		Volume:       VolumeAnomaly(in),
		OTM:          OTMConcentration(in),
		Directional:  DirectionalBias(in),
		VolumeOI:     VolumeOIRatio(in),
		TimePressure: TimePressure(in),
	}
}

// Composite sums the factors in fixed order and caps the result
func Composite(f models.FactorScores, th models.Thresholds) float64 {
	var total float64
	for _, s := range f.Ordered() {
		total += s.Value
	}
	return math.Min(total, th.CompositeCap)
}

// Classify maps a composite score to its conviction level
func Classify(total float64, th models.Thresholds) models.Conviction {
	switch {
	case total >= th.HighConviction:
		return models.ConvictionHigh
	case total >= th.Elevated:
		return models.ConvictionElevated
	default:
		return models.ConvictionNormal
	}
}

// Tier routes by absolute session volume; it never feeds the score
func Tier(totalVolume int64, th models.Thresholds) models.VolumeTier {
	if totalVolume >= th.HighVolumeMin {
		return models.VolumeTierHigh
	}
	return models.VolumeTierLow
}

// DominantDirection is bull when calls exceed puts by DirectionRatio, bear for the reverse
func DominantDirection(call, put int64, th models.Thresholds) models.Direction {
	switch {
	case float64(call) > float64(put)*th.DirectionRatio:
		return models.DirectionBull
	case float64(put) > float64(call)*th.DirectionRatio:
		return models.DirectionBear
	default:
		return models.DirectionMixed
	}
}

// Evaluate scores one symbol and assembles its record.
// The result depends only on in.
func Evaluate(in Input) models.AnomalyRecord {
	th := in.Thresholds
	totals := Totals(in.Observations)
	factors := Factors(in)
	total := Composite(factors, th)

	record := models.AnomalyRecord{
		EventDate:        models.CalendarDate(in.EventDate),
		AsOf:             in.AsOf,
		Symbol:           in.Symbol,
		TotalScore:       total,
		Factors:          factors,
		CallVolume:       totals.CallVolume,
		PutVolume:        totals.PutVolume,
		TotalVolume:      totals.TotalVolume(),
		CallOpenInterest: totals.CallOpenInterest,
		PutOpenInterest:  totals.PutOpenInterest,
		CallMagnitude:    totals.CallMagnitude,
		PutMagnitude:     totals.PutMagnitude,
		CallBaselineAvg:  in.Baseline.Call.VolumeMean,
		PutBaselineAvg:   in.Baseline.Put.VolumeMean,
		Direction:        DominantDirection(totals.CallVolume, totals.PutVolume, th),
		Conviction:       Classify(total, th),
		VolumeTier:       Tier(totals.TotalVolume(), th),
	}
	record.PatternDescription = Describe(record, th)
	return record
}
