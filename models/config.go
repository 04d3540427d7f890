package models

// Thresholds holds every tunable constant used by the scoring engine.
// Zero values are not meaningful; start from DefaultThresholds.
type Thresholds struct {
	BaselineDays    int     `yaml:"baseline_days"`
	MinBaselineDays int     `yaml:"min_baseline_days"`
	StdDevEpsilon   float64 `yaml:"stddev_epsilon"`

	// Volume anomaly
	VolumeZDivisor  float64 `yaml:"volume_z_divisor"`
	VolumeSideCap   float64 `yaml:"volume_side_cap"`
	VolumeFactorMax float64 `yaml:"volume_factor_max"`

	// OTM concentration
	OTMCallMoneyness   float64 `yaml:"otm_call_moneyness"`
	OTMPutMoneyness    float64 `yaml:"otm_put_moneyness"`
	ShortTermDays      int     `yaml:"short_term_days"`
	OTMWeight          float64 `yaml:"otm_weight"`
	ShortTermOTMWeight float64 `yaml:"short_term_otm_weight"`
	OTMFactorMax       float64 `yaml:"otm_factor_max"`

	// Directional bias
	VolumeBiasWeight     float64 `yaml:"volume_bias_weight"`
	MagnitudeBiasWeight  float64 `yaml:"magnitude_bias_weight"`
	DirectionalFactorMax float64 `yaml:"directional_factor_max"`

	// Volume:open interest ratio
	VolumeOIZCap      float64 `yaml:"volume_oi_z_cap"`
	VolumeOIDivisor   float64 `yaml:"volume_oi_divisor"`
	VolumeOIFactorMax float64 `yaml:"volume_oi_factor_max"`

	// Time pressure
	ThisWeekDays          int     `yaml:"this_week_days"`
	ThisWeekWeight        float64 `yaml:"this_week_weight"`
	ShortTermWeight       float64 `yaml:"short_term_weight"`
	TimePressureFactorMax float64 `yaml:"time_pressure_factor_max"`

	// Composite and classification
	CompositeCap       float64 `yaml:"composite_cap"`
	HighConviction     float64 `yaml:"high_conviction"`
	Elevated           float64 `yaml:"elevated"`
	HighVolumeMin      int64   `yaml:"high_volume_min"`
	DirectionRatio     float64 `yaml:"direction_ratio"`
	DominantFactorFill float64 `yaml:"dominant_factor_fill"`
}

// DefaultThresholds returns the documented defaults
func DefaultThresholds() Thresholds {
	return Thresholds{
		BaselineDays:    30,
		MinBaselineDays: 2,
		StdDevEpsilon:   1e-6,

		VolumeZDivisor:  3.0,
		VolumeSideCap:   1.5,
		VolumeFactorMax: 3.0,

		OTMCallMoneyness:   1.05,
		OTMPutMoneyness:    0.95,
		ShortTermDays:      21,
		OTMWeight:          1.0,
		ShortTermOTMWeight: 1.0,
		OTMFactorMax:       2.0,

		VolumeBiasWeight:     0.5,
		MagnitudeBiasWeight:  0.5,
		DirectionalFactorMax: 1.0,

		VolumeOIZCap:      4.0,
		VolumeOIDivisor:   2.0,
		VolumeOIFactorMax: 2.0,

		ThisWeekDays:          7,
		ThisWeekWeight:        1.2,
		ShortTermWeight:       0.8,
		TimePressureFactorMax: 2.0,

		CompositeCap:       10.0,
		HighConviction:     7.0,
		Elevated:           5.0,
		HighVolumeMin:      500,
		DirectionRatio:     2.0,
		DominantFactorFill: 0.5,
	}
}
