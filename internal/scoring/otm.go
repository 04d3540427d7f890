package scoring

import (
	"math"

	"github.com/Alias1177/InsiderScan/models"
)

type otmSide struct {
	priced    int64
	otm       int64
	shortTerm int64
}

func (s otmSide) score(th models.Thresholds) (otmRatio, shortRatio, score float64) {
	if s.priced <= 0 {
		return 0, 0, 0
	}
	otmRatio = ratio(s.otm, s.priced)
	shortRatio = ratio(s.shortTerm, s.priced)
	return otmRatio, shortRatio, otmRatio*th.OTMWeight + shortRatio*th.ShortTermOTMWeight
}

// OTMConcentration scores how much of the dominant side traded out of the
// money, with extra weight for short-dated contracts (0-2).
// Contracts without an underlying price are left out of both sides' ratios.
func OTMConcentration(in Input) models.FactorScore {
	th := in.Thresholds
	totals := Totals(in.Observations)

	var call, put otmSide
	var excluded int
	for _, c := range in.Observations {
		if c.SessionVolume <= 0 {
			continue
		}
		if !c.HasUnderlyingPrice() {
			excluded++
			continue
		}
		shortTerm := models.DaysToExpiration(in.EventDate, c.ExpirationDate) <= th.ShortTermDays
		switch c.Side {
		case models.SideCall:
			call.priced += c.SessionVolume
			if c.StrikePrice > c.UnderlyingPrice*th.OTMCallMoneyness {
				call.otm += c.SessionVolume
				if shortTerm {
					call.shortTerm += c.SessionVolume
				}
			}
		case models.SidePut:
			put.priced += c.SessionVolume
			if c.StrikePrice < c.UnderlyingPrice*th.OTMPutMoneyness {
				put.otm += c.SessionVolume
				if shortTerm {
					put.shortTerm += c.SessionVolume
				}
			}
		}
	}

	callOTM, callShort, callScore := call.score(th)
	putOTM, putShort, putScore := put.score(th)

	var raw, selected float64
	switch {
	case totals.CallVolume > totals.PutVolume:
		raw, selected = callScore, 1
	case totals.PutVolume > totals.CallVolume:
		raw, selected = putScore, -1
	default:
		raw = math.Max(callScore, putScore)
	}

	return models.FactorScore{
		Name:  models.FactorOTM,
		Value: clamp(raw, 0, th.OTMFactorMax),
		Max:   th.OTMFactorMax,
		Metrics: map[string]float64{
			"call_otm_ratio":            callOTM,
			"call_short_term_otm_ratio": callShort,
			"put_otm_ratio":             putOTM,
			"put_short_term_otm_ratio":  putShort,
			"call_side_score":           callScore,
			"put_side_score":            putScore,
			"selected_side":             selected,
			"excluded_contracts":        float64(excluded),
		},
	}
}
