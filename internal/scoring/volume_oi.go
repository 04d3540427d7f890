package scoring

import (
	"math"

	"github.com/Alias1177/InsiderScan/models"
)

// VolumeOIRatio scores new positioning: volume far above what open interest
// normally turns over (0-2). The stronger side wins.
func VolumeOIRatio(in Input) models.FactorScore {
	th := in.Thresholds
	totals := Totals(in.Observations)

	callRatio, callZ, callScore := sideRatioScore(totals.CallVolume, totals.CallOpenInterest, in.Baseline.Call, th)
	putRatio, putZ, putScore := sideRatioScore(totals.PutVolume, totals.PutOpenInterest, in.Baseline.Put, th)

	return models.FactorScore{
		Name:  models.FactorVolumeOI,
		Value: clamp(math.Max(callScore, putScore), 0, th.VolumeOIFactorMax),
		Max:   th.VolumeOIFactorMax,
		Metrics: map[string]float64{
			"call_volume_oi_ratio": callRatio,
			"put_volume_oi_ratio":  putRatio,
			"call_ratio_z":         callZ,
			"put_ratio_z":          putZ,
			"call_score":           callScore,
			"put_score":            putScore,
		},
	}
}

func sideRatioScore(volume, oi int64, b models.SideBaseline, th models.Thresholds) (r, z, score float64) {
	if oi <= 0 {
		return 0, 0, 0
	}
	r = ratio(volume, oi)
	if !b.RatioSufficient() {
		return r, 0, 0
	}
	z = zScore(r, b.RatioMean, b.RatioStdDev, th.StdDevEpsilon)
	divisor := th.VolumeOIDivisor
	if divisor <= 0 {
		divisor = 1
	}
	return r, z, clamp(math.Min(z, th.VolumeOIZCap)/divisor, 0, th.VolumeOIFactorMax)
}
