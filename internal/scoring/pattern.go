package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Alias1177/InsiderScan/models"
)

var factorPhrases = map[string]string{
	models.FactorVolume:       "volume far above baseline",
	models.FactorOTM:          "heavy short-dated OTM buying",
	models.FactorDirectional:  "one-sided positioning",
	models.FactorVolumeOI:     "volume outpacing open interest",
	models.FactorTimePressure: "near-term expiry clustering",
}

var directionLeads = map[models.Direction]string{
	models.DirectionBull:  "Bullish call-heavy flow",
	models.DirectionBear:  "Bearish put-heavy flow",
	models.DirectionMixed: "Mixed call/put flow",
}

const maxPatternPhrases = 2

// Describe builds the pattern description from the factors that filled at
// least DominantFactorFill of their maximum. Ties keep summation order.
func Describe(r models.AnomalyRecord, th models.Thresholds) string {
	ordered := r.Factors.Ordered()
	dominant := make([]models.FactorScore, 0, len(ordered))
	for _, f := range ordered {
		if f.Value > 0 && f.Fill() >= th.DominantFactorFill {
			dominant = append(dominant, f)
		}
	}
	sort.SliceStable(dominant, func(i, j int) bool {
		return dominant[i].Fill() > dominant[j].Fill()
	})
	if len(dominant) > maxPatternPhrases {
		dominant = dominant[:maxPatternPhrases]
	}

	lead, ok := directionLeads[r.Direction]
	if !ok {
		lead = directionLeads[models.DirectionMixed]
	}

	var sb strings.Builder
	sb.WriteString(lead)
	if len(dominant) == 0 {
		sb.WriteString(": no dominant factor")
	} else {
		phrases := make([]string, 0, len(dominant))
		for _, f := range dominant {
			phrases = append(phrases, factorPhrases[f.Name])
		}
		sb.WriteString(": ")
		sb.WriteString(strings.Join(phrases, " and "))
	}

	side, multiplier, volume := models.SideCall, r.CallMultiplier(), r.CallVolume
	if r.Direction == models.DirectionBear {
		side, multiplier, volume = models.SidePut, r.PutMultiplier(), r.PutVolume
	}
	pct := 0.0
	if r.TotalVolume > 0 {
		pct = float64(volume) / float64(r.TotalVolume) * 100
	}
	if multiplier > 0 {
		fmt.Fprintf(&sb, " (%.1fx %s volume, %.0f%% %ss)", multiplier, side, pct, side)
	} else {
		fmt.Fprintf(&sb, " (%.0f%% %ss)", pct, side)
	}
	return sb.String()
}
