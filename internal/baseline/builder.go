package baseline

import (
	"math"
	"sort"
	"time"

	"github.com/Alias1177/InsiderScan/models"
)

// Build computes a symbol's per-side baseline from daily history.
// It is a pure function of its inputs.
func Build(symbol string, asOf time.Time, calls, puts []models.HistoricalAggregate, th models.Thresholds) models.SymbolBaseline {
	return models.SymbolBaseline{
		Symbol:       symbol,
		AsOf:         asOf,
		LookbackDays: th.BaselineDays,
		Call:         buildSide(calls, th),
		Put:          buildSide(puts, th),
	}
}

func buildSide(rows []models.HistoricalAggregate, th models.Thresholds) models.SideBaseline {
	ordered := make([]models.HistoricalAggregate, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	volumes := make([]float64, 0, len(ordered))
	ratios := make([]float64, 0, len(ordered))
	for _, row := range ordered {
		if row.Volume < 0 {
			continue
		}
		volumes = append(volumes, float64(row.Volume))
		if row.OpenInterest > 0 {
			ratios = append(ratios, float64(row.Volume)/float64(row.OpenInterest))
		}
	}

	side := models.SideBaseline{
		VolumeDays: len(volumes),
		RatioDays:  len(ratios),
		MinDays:    th.MinBaselineDays,
	}
	side.VolumeMean, side.VolumeStdDev = meanStdDev(volumes, side.VolumeSufficient(), th.StdDevEpsilon)
	side.RatioMean, side.RatioStdDev = meanStdDev(ratios, side.RatioSufficient(), th.StdDevEpsilon)
	return side
}

// meanStdDev returns the mean and population standard deviation, floored at epsilon.
// Insufficient samples yield (0, epsilon).
func meanStdDev(values []float64, sufficient bool, epsilon float64) (float64, float64) {
	if epsilon <= 0 {
		epsilon = models.DefaultThresholds().StdDevEpsilon
	}
	if !sufficient || len(values) == 0 {
		return 0, epsilon
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / float64(len(values)))
	if stddev < epsilon || math.IsNaN(stddev) {
		stddev = epsilon
	}
	return mean, stddev
}
