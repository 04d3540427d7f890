package scoring

import (
	"github.com/Alias1177/InsiderScan/models"
)

// DirectionalBias scores one-sided positioning by volume and by notional (0-1).
// Each half is signed toward calls (+) or puts (-), so agreement adds up and
// disagreement cancels.
func DirectionalBias(in Input) models.FactorScore {
	th := in.Thresholds
	totals := Totals(in.Observations)

	volumeHalf := signedHalf(float64(totals.CallVolume), float64(totals.PutVolume), th.VolumeBiasWeight)
	magnitudeHalf := signedHalf(totals.CallMagnitude, totals.PutMagnitude, th.MagnitudeBiasWeight)

	raw := volumeHalf + magnitudeHalf
	if raw < 0 {
		raw = -raw
	}

	return models.FactorScore{
		Name:  models.FactorDirectional,
		Value: clamp(raw, 0, th.DirectionalFactorMax),
		Max:   th.DirectionalFactorMax,
		Metrics: map[string]float64{
			"call_volume_share":    share(float64(totals.CallVolume), float64(totals.PutVolume)),
			"call_magnitude_share": share(totals.CallMagnitude, totals.PutMagnitude),
			"call_magnitude":       totals.CallMagnitude,
			"put_magnitude":        totals.PutMagnitude,
			"volume_half":          volumeHalf,
			"magnitude_half":       magnitudeHalf,
		},
	}
}

// signedHalf is |share-0.5|*2*weight signed by the leading side.
// A zero total carries no information and yields 0.
func signedHalf(call, put, weight float64) float64 {
	if call+put <= 0 {
		return 0
	}
	s := share(call, put)
	v := (s - 0.5) * 2 * weight
	return clamp(v, -weight, weight)
}

// share is the call fraction of call+put; a zero total divides by 1
func share(call, put float64) float64 {
	total := call + put
	if total <= 0 {
		total = 1
	}
	return call / total
}
