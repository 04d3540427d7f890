package models

import (
	"time"
)

// Side is the contract type of an option
type Side string

const (
	SideCall Side = "call"
	SidePut  Side = "put"
)

// Valid reports whether s is a call or a put
func (s Side) Valid() bool {
	return s == SideCall || s == SidePut
}

// Direction summarises which side dominates a symbol's session
type Direction string

const (
	DirectionBull  Direction = "bull"
	DirectionBear  Direction = "bear"
	DirectionMixed Direction = "mixed"
)

// Conviction is the alert classification of a composite score
type Conviction string

const (
	ConvictionHigh     Conviction = "HIGH_CONVICTION"
	ConvictionElevated Conviction = "ELEVATED"
	ConvictionNormal   Conviction = "NORMAL"
)

// VolumeTier partitions records by absolute session volume for alert routing
type VolumeTier string

const (
	VolumeTierHigh VolumeTier = "high_volume"
	VolumeTierLow  VolumeTier = "low_volume"
)

// Factor names
const (
	FactorVolume        = "volume"
	FactorOTM           = "otm_concentration"
	FactorDirectional   = "directional_bias"
	FactorVolumeOI      = "volume_oi_ratio"
	FactorTimePressure  = "time_pressure"
	DefaultSharesPerLot = 100
)

// ContractObservation is one option contract's state in the current session.
// UnderlyingPrice comes from the underlying stock snapshot; zero means unknown.
type ContractObservation struct {
	Symbol            string    `json:"symbol" db:"symbol"`
	ContractTicker    string    `json:"contract_ticker" db:"contract_ticker"`
	Side              Side      `json:"side" db:"contract_type"`
	StrikePrice       float64   `json:"strike_price" db:"strike_price"`
	ExpirationDate    time.Time `json:"expiration_date" db:"expiration_date"`
	SessionVolume     int64     `json:"session_volume" db:"session_volume"`
	OpenInterest      int64     `json:"open_interest" db:"open_interest"`
	LastPrice         float64   `json:"last_price" db:"session_close"`
	SharesPerContract int64     `json:"shares_per_contract" db:"shares_per_contract"`
	UnderlyingPrice   float64   `json:"underlying_price" db:"underlying_price"`
}

// HasUnderlyingPrice reports whether moneyness can be computed for the contract
func (c ContractObservation) HasUnderlyingPrice() bool {
	return c.UnderlyingPrice > 0
}

// Magnitude is the notional value traded in the session
func (c ContractObservation) Magnitude() float64 {
	shares := c.SharesPerContract
	if shares <= 0 {
		shares = DefaultSharesPerLot
	}
	if c.LastPrice <= 0 || c.SessionVolume <= 0 {
		return 0
	}
	return float64(c.SessionVolume) * c.LastPrice * float64(shares)
}

// HistoricalAggregate is one day of summed option activity for a symbol side
type HistoricalAggregate struct {
	Date         time.Time `json:"date" db:"date"`
	Volume       int64     `json:"volume" db:"volume"`
	OpenInterest int64     `json:"open_interest" db:"open_interest"`
}

// SideBaseline holds rolling statistics for one side of a symbol
type SideBaseline struct {
	VolumeMean   float64 `json:"volume_mean"`
	VolumeStdDev float64 `json:"volume_stddev"`
	VolumeDays   int     `json:"volume_days"`
	RatioMean    float64 `json:"ratio_mean"`
	RatioStdDev  float64 `json:"ratio_stddev"`
	RatioDays    int     `json:"ratio_days"`
	MinDays      int     `json:"min_days"`
}

// VolumeSufficient reports whether enough days back the volume statistics
func (b SideBaseline) VolumeSufficient() bool {
	return b.VolumeDays >= b.minDays()
}

// RatioSufficient reports whether enough days back the volume:OI statistics
func (b SideBaseline) RatioSufficient() bool {
	return b.RatioDays >= b.minDays()
}

func (b SideBaseline) minDays() int {
	if b.MinDays < 2 {
		return 2
	}
	return b.MinDays
}

// SymbolBaseline is the per-side baseline of a symbol for one trading day
type SymbolBaseline struct {
	Symbol       string       `json:"symbol"`
	AsOf         time.Time    `json:"as_of"`
	LookbackDays int          `json:"lookback_days"`
	Call         SideBaseline `json:"call"`
	Put          SideBaseline `json:"put"`
}

// Side returns the baseline for the requested side
func (b SymbolBaseline) Side(side Side) SideBaseline {
	if side == SidePut {
		return b.Put
	}
	return b.Call
}

// FactorScore is one bounded sub-score with the metrics that produced it
type FactorScore struct {
	Name    string             `json:"name"`
	Value   float64            `json:"value"`
	Max     float64            `json:"max"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Fill is the share of the factor maximum reached
func (f FactorScore) Fill() float64 {
	if f.Max <= 0 {
		return 0
	}
	return f.Value / f.Max
}

// FactorScores groups the five sub-scores of a record
type FactorScores struct {
	Volume       FactorScore `json:"volume"`
	OTM          FactorScore `json:"otm_concentration"`
	Directional  FactorScore `json:"directional_bias"`
	VolumeOI     FactorScore `json:"volume_oi_ratio"`
	TimePressure FactorScore `json:"time_pressure"`
}

// Ordered returns the factors in composite summation order
func (f FactorScores) Ordered() []FactorScore {
	return []FactorScore{f.Volume, f.OTM, f.Directional, f.VolumeOI, f.TimePressure}
}

// AnomalyRecord is one symbol's result for one detection cycle
type AnomalyRecord struct {
	EventDate          time.Time    `json:"event_date"`
	AsOf               time.Time    `json:"as_of_timestamp"`
	Symbol             string       `json:"symbol"`
	TotalScore         float64      `json:"total_score"`
	Factors            FactorScores `json:"factors"`
	CallVolume         int64        `json:"call_volume"`
	PutVolume          int64        `json:"put_volume"`
	TotalVolume        int64        `json:"total_volume"`
	CallOpenInterest   int64        `json:"call_open_interest"`
	PutOpenInterest    int64        `json:"put_open_interest"`
	CallMagnitude      float64      `json:"call_magnitude"`
	PutMagnitude       float64      `json:"put_magnitude"`
	CallBaselineAvg    float64      `json:"call_baseline_avg"`
	PutBaselineAvg     float64      `json:"put_baseline_avg"`
	Direction          Direction    `json:"dominant_direction"`
	Conviction         Conviction   `json:"conviction"`
	VolumeTier         VolumeTier   `json:"volume_tier"`
	PatternDescription string       `json:"pattern_description"`
}

// CallMultiplier is current call volume relative to the baseline average
func (r AnomalyRecord) CallMultiplier() float64 {
	if r.CallBaselineAvg <= 0 {
		return 0
	}
	return float64(r.CallVolume) / r.CallBaselineAvg
}

// PutMultiplier is current put volume relative to the baseline average
func (r AnomalyRecord) PutMultiplier() float64 {
	if r.PutBaselineAvg <= 0 {
		return 0
	}
	return float64(r.PutVolume) / r.PutBaselineAvg
}

// CallPutRatio caps at 9999.9999 when there is no put volume
func (r AnomalyRecord) CallPutRatio() float64 {
	if r.PutVolume <= 0 {
		return 9999.9999
	}
	ratio := float64(r.CallVolume) / float64(r.PutVolume)
	if ratio > 9999.9999 {
		return 9999.9999
	}
	return ratio
}

// AlertEligible reports whether the record belongs in the alert stream
func (r AnomalyRecord) AlertEligible() bool {
	return r.Conviction == ConvictionHigh
}
