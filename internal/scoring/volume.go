package scoring

import (
	"github.com/Alias1177/InsiderScan/models"
)

// VolumeAnomaly scores session volume against each side's baseline (0-3).
// Both sides can contribute, so straddle-like activity outscores a single side.
func VolumeAnomaly(in Input) models.FactorScore {
	th := in.Thresholds
	totals := Totals(in.Observations)

	callZ, callScore := sideVolumeScore(totals.CallVolume, in.Baseline.Call, th)
	putZ, putScore := sideVolumeScore(totals.PutVolume, in.Baseline.Put, th)

	return models.FactorScore{
		Name:  models.FactorVolume,
		Value: clamp(callScore+putScore, 0, th.VolumeFactorMax),
		Max:   th.VolumeFactorMax,
		Metrics: map[string]float64{
			"call_volume":        float64(totals.CallVolume),
			"put_volume":         float64(totals.PutVolume),
			"call_baseline_mean": in.Baseline.Call.VolumeMean,
			"put_baseline_mean":  in.Baseline.Put.VolumeMean,
			"call_z":             callZ,
			"put_z":              putZ,
			"call_score":         callScore,
			"put_score":          putScore,
		},
	}
}

func sideVolumeScore(volume int64, b models.SideBaseline, th models.Thresholds) (float64, float64) {
	if !b.VolumeSufficient() {
		return 0, 0
	}
	z := zScore(float64(volume), b.VolumeMean, b.VolumeStdDev, th.StdDevEpsilon)
	divisor := th.VolumeZDivisor
	if divisor <= 0 {
		divisor = 1
	}
	return z, clamp(z/divisor, 0, th.VolumeSideCap)
}

// zScore standardises observed against a baseline, flooring stddev at epsilon
func zScore(observed, mean, stddev, epsilon float64) float64 {
	if stddev < epsilon || stddev <= 0 {
		stddev = epsilon
	}
	if stddev <= 0 {
		return 0
	}
	return (observed - mean) / stddev
}
