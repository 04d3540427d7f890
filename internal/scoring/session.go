package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/Alias1177/InsiderScan/models"
)

// Input is everything a scorer may look at for one symbol
type Input struct {
	Symbol       string
	Observations []models.ContractObservation
	Baseline     models.SymbolBaseline
	Thresholds   models.Thresholds
	// EventDate is the trading date the observations belong to
	EventDate time.Time
	AsOf      time.Time
}

// SessionTotals are per-side sums over a symbol's contracts
type SessionTotals struct {
	CallVolume       int64
	PutVolume        int64
	CallOpenInterest int64
	PutOpenInterest  int64
	CallMagnitude    float64
	PutMagnitude     float64
}

// TotalVolume sums both sides
func (t SessionTotals) TotalVolume() int64 {
	return t.CallVolume + t.PutVolume
}

// Volume returns the session volume of one side
func (t SessionTotals) Volume(side models.Side) int64 {
	if side == models.SidePut {
		return t.PutVolume
	}
	return t.CallVolume
}

// OpenInterest returns the open interest of one side
func (t SessionTotals) OpenInterest(side models.Side) int64 {
	if side == models.SidePut {
		return t.PutOpenInterest
	}
	return t.CallOpenInterest
}

// Totals aggregates observations. Floating sums run in contract order so the
// result does not depend on the order rows arrived in.
func Totals(observations []models.ContractObservation) SessionTotals {
	var t SessionTotals
	for _, c := range ordered(observations) {
		volume := c.SessionVolume
		if volume < 0 {
			volume = 0
		}
		oi := c.OpenInterest
		if oi < 0 {
			oi = 0
		}
		switch c.Side {
		case models.SideCall:
			t.CallVolume += volume
			t.CallOpenInterest += oi
			t.CallMagnitude += c.Magnitude()
		case models.SidePut:
			t.PutVolume += volume
			t.PutOpenInterest += oi
			t.PutMagnitude += c.Magnitude()
		}
	}
	return t
}

func ordered(observations []models.ContractObservation) []models.ContractObservation {
	out := make([]models.ContractObservation, len(observations))
	copy(out, observations)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ContractTicker != b.ContractTicker {
			return a.ContractTicker < b.ContractTicker
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		if a.StrikePrice != b.StrikePrice {
			return a.StrikePrice < b.StrikePrice
		}
		return a.ExpirationDate.Before(b.ExpirationDate)
	})
	return out
}

// clamp bounds v to [lo, hi]; NaN collapses to lo
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// ratio divides with a zero guard
func ratio(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
