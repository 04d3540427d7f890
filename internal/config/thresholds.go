package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Alias1177/InsiderScan/models"
)

// LoadThresholds reads a YAML override on top of the defaults.
// Keys missing from the file keep their default value.
func LoadThresholds(path string) (models.Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Thresholds{}, fmt.Errorf("reading thresholds file: %w", err)
	}
	return ParseThresholds(data)
}

// ParseThresholds decodes YAML over DefaultThresholds
func ParseThresholds(data []byte) (models.Thresholds, error) {
	th := models.DefaultThresholds()
	if err := yaml.Unmarshal(data, &th); err != nil {
		return models.Thresholds{}, fmt.Errorf("parsing thresholds: %w", err)
	}
	if err := ValidateThresholds(th); err != nil {
		return models.Thresholds{}, err
	}
	return th, nil
}

// ValidateThresholds checks the relationships scoring relies on
func ValidateThresholds(th models.Thresholds) error {
	switch {
	case th.BaselineDays <= 0:
		return fmt.Errorf("baseline_days must be positive")
	case th.MinBaselineDays < 2:
		return fmt.Errorf("min_baseline_days must be at least 2")
	case th.StdDevEpsilon <= 0:
		return fmt.Errorf("stddev_epsilon must be positive")
	case th.VolumeZDivisor <= 0 || th.VolumeOIDivisor <= 0:
		return fmt.Errorf("z-score divisors must be positive")
	case th.OTMCallMoneyness < 1 || th.OTMPutMoneyness > 1:
		return fmt.Errorf("otm moneyness bands must sit outside the underlying price")
	case th.ThisWeekDays > th.ShortTermDays:
		return fmt.Errorf("this_week_days must not exceed short_term_days")
	case th.Elevated > th.HighConviction:
		return fmt.Errorf("elevated threshold must not exceed high_conviction")
	case th.HighConviction > th.CompositeCap:
		return fmt.Errorf("high_conviction must not exceed composite_cap")
	case th.DirectionRatio < 1:
		return fmt.Errorf("direction_ratio must be at least 1")
	}
	return nil
}
