package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Alias1177/InsiderScan/models"
)

// anomalyRow is the daily_anomaly_snapshot layout
type anomalyRow struct {
	EventDate           time.Time `db:"event_date"`
	Symbol              string    `db:"symbol"`
	TotalScore          float64   `db:"total_score"`
	VolumeScore         float64   `db:"volume_score"`
	OTMScore            float64   `db:"otm_score"`
	DirectionalScore    float64   `db:"directional_score"`
	VolumeOIRatioScore  float64   `db:"volume_oi_ratio_score"`
	TimeScore           float64   `db:"time_score"`
	CallVolume          int64     `db:"call_volume"`
	PutVolume           int64     `db:"put_volume"`
	TotalVolume         int64     `db:"total_volume"`
	CallOpenInterest    int64     `db:"call_open_interest"`
	PutOpenInterest     int64     `db:"put_open_interest"`
	CallBaselineAvg     float64   `db:"call_baseline_avg"`
	PutBaselineAvg      float64   `db:"put_baseline_avg"`
	CallMultiplier      float64   `db:"call_multiplier"`
	PutMultiplier       float64   `db:"put_multiplier"`
	CallPutRatio        float64   `db:"call_put_ratio"`
	ZScore              float64   `db:"z_score"`
	OTMPercentage       float64   `db:"otm_percentage"`
	ShortTermPercentage float64   `db:"short_term_percentage"`
	CallVolumeOIRatio   float64   `db:"call_volume_oi_ratio"`
	PutVolumeOIRatio    float64   `db:"put_volume_oi_ratio"`
	CallVolumeOIZScore  float64   `db:"call_volume_oi_z_score"`
	PutVolumeOIZScore   float64   `db:"put_volume_oi_z_score"`
	CallMagnitude       float64   `db:"call_magnitude"`
	PutMagnitude        float64   `db:"put_magnitude"`
	TotalMagnitude      float64   `db:"total_magnitude"`
	Direction           string    `db:"direction"`
	Conviction          string    `db:"conviction"`
	VolumeTier          string    `db:"volume_tier"`
	PatternDescription  string    `db:"pattern_description"`
	Factors             []byte    `db:"factors"`
	AsOf                time.Time `db:"as_of_timestamp"`
}

const upsertAnomalyQuery = `
	INSERT INTO daily_anomaly_snapshot (
		event_date, symbol, total_score, volume_score, otm_score, directional_score,
		volume_oi_ratio_score, time_score, call_volume, put_volume, total_volume,
		call_open_interest, put_open_interest, call_baseline_avg, put_baseline_avg,
		call_multiplier, put_multiplier, call_put_ratio, z_score, otm_percentage,
		short_term_percentage, call_volume_oi_ratio, put_volume_oi_ratio,
		call_volume_oi_z_score, put_volume_oi_z_score, call_magnitude, put_magnitude,
		total_magnitude, direction, conviction, volume_tier, pattern_description,
		factors, as_of_timestamp
	) VALUES (
		:event_date, :symbol, :total_score, :volume_score, :otm_score, :directional_score,
		:volume_oi_ratio_score, :time_score, :call_volume, :put_volume, :total_volume,
		:call_open_interest, :put_open_interest, :call_baseline_avg, :put_baseline_avg,
		:call_multiplier, :put_multiplier, :call_put_ratio, :z_score, :otm_percentage,
		:short_term_percentage, :call_volume_oi_ratio, :put_volume_oi_ratio,
		:call_volume_oi_z_score, :put_volume_oi_z_score, :call_magnitude, :put_magnitude,
		:total_magnitude, :direction, :conviction, :volume_tier, :pattern_description,
		:factors, :as_of_timestamp
	)
	ON CONFLICT (event_date, symbol)
	DO UPDATE SET
		total_score = EXCLUDED.total_score,
		volume_score = EXCLUDED.volume_score,
		otm_score = EXCLUDED.otm_score,
		directional_score = EXCLUDED.directional_score,
		volume_oi_ratio_score = EXCLUDED.volume_oi_ratio_score,
		time_score = EXCLUDED.time_score,
		call_volume = EXCLUDED.call_volume,
		put_volume = EXCLUDED.put_volume,
		total_volume = EXCLUDED.total_volume,
		call_open_interest = EXCLUDED.call_open_interest,
		put_open_interest = EXCLUDED.put_open_interest,
		call_baseline_avg = EXCLUDED.call_baseline_avg,
		put_baseline_avg = EXCLUDED.put_baseline_avg,
		call_multiplier = EXCLUDED.call_multiplier,
		put_multiplier = EXCLUDED.put_multiplier,
		call_put_ratio = EXCLUDED.call_put_ratio,
		z_score = EXCLUDED.z_score,
		otm_percentage = EXCLUDED.otm_percentage,
		short_term_percentage = EXCLUDED.short_term_percentage,
		call_volume_oi_ratio = EXCLUDED.call_volume_oi_ratio,
		put_volume_oi_ratio = EXCLUDED.put_volume_oi_ratio,
		call_volume_oi_z_score = EXCLUDED.call_volume_oi_z_score,
		put_volume_oi_z_score = EXCLUDED.put_volume_oi_z_score,
		call_magnitude = EXCLUDED.call_magnitude,
		put_magnitude = EXCLUDED.put_magnitude,
		total_magnitude = EXCLUDED.total_magnitude,
		direction = EXCLUDED.direction,
		conviction = EXCLUDED.conviction,
		volume_tier = EXCLUDED.volume_tier,
		pattern_description = EXCLUDED.pattern_description,
		factors = EXCLUDED.factors,
		as_of_timestamp = EXCLUDED.as_of_timestamp,
		updated_at = CURRENT_TIMESTAMP`

const anomalyColumns = `
	event_date, symbol, total_score, volume_score, otm_score, directional_score,
	volume_oi_ratio_score, time_score, call_volume, put_volume, total_volume,
	call_open_interest, put_open_interest, call_baseline_avg, put_baseline_avg,
	call_multiplier, put_multiplier, call_put_ratio, z_score, otm_percentage,
	short_term_percentage, call_volume_oi_ratio, put_volume_oi_ratio,
	call_volume_oi_z_score, put_volume_oi_z_score, call_magnitude, put_magnitude,
	total_magnitude, direction, conviction, volume_tier, pattern_description,
	factors, as_of_timestamp`

func toRow(r models.AnomalyRecord) (anomalyRow, error) {
	factors, err := json.Marshal(r.Factors)
	if err != nil {
		return anomalyRow{}, fmt.Errorf("failed to marshal factors: %w", err)
	}

	vol := r.Factors.Volume.Metrics
	voi := r.Factors.VolumeOI.Metrics
	otm := r.Factors.OTM.Metrics

	otmPct := otm["call_otm_ratio"]
	if r.PutVolume > r.CallVolume {
		otmPct = otm["put_otm_ratio"]
	}

	return anomalyRow{
		EventDate:           models.CalendarDate(r.EventDate),
		Symbol:              r.Symbol,
		TotalScore:          r.TotalScore,
		VolumeScore:         r.Factors.Volume.Value,
		OTMScore:            r.Factors.OTM.Value,
		DirectionalScore:    r.Factors.Directional.Value,
		VolumeOIRatioScore:  r.Factors.VolumeOI.Value,
		TimeScore:           r.Factors.TimePressure.Value,
		CallVolume:          r.CallVolume,
		PutVolume:           r.PutVolume,
		TotalVolume:         r.TotalVolume,
		CallOpenInterest:    r.CallOpenInterest,
		PutOpenInterest:     r.PutOpenInterest,
		CallBaselineAvg:     r.CallBaselineAvg,
		PutBaselineAvg:      r.PutBaselineAvg,
		CallMultiplier:      r.CallMultiplier(),
		PutMultiplier:       r.PutMultiplier(),
		CallPutRatio:        r.CallPutRatio(),
		ZScore:              math.Max(vol["call_z"], vol["put_z"]),
		OTMPercentage:       otmPct * 100,
		ShortTermPercentage: r.Factors.TimePressure.Metrics["short_term_ratio"] * 100,
		CallVolumeOIRatio:   voi["call_volume_oi_ratio"],
		PutVolumeOIRatio:    voi["put_volume_oi_ratio"],
		CallVolumeOIZScore:  voi["call_ratio_z"],
		PutVolumeOIZScore:   voi["put_ratio_z"],
		CallMagnitude:       r.CallMagnitude,
		PutMagnitude:        r.PutMagnitude,
		TotalMagnitude:      r.CallMagnitude + r.PutMagnitude,
		Direction:           string(r.Direction),
		Conviction:          string(r.Conviction),
		VolumeTier:          string(r.VolumeTier),
		PatternDescription:  r.PatternDescription,
		Factors:             factors,
		AsOf:                r.AsOf,
	}, nil
}

func (row anomalyRow) record() (models.AnomalyRecord, error) {
	var factors models.FactorScores
	if len(row.Factors) > 0 {
		if err := json.Unmarshal(row.Factors, &factors); err != nil {
			return models.AnomalyRecord{}, fmt.Errorf("failed to decode factors for %s: %w", row.Symbol, err)
		}
	}
	return models.AnomalyRecord{
		EventDate:          models.CalendarDate(row.EventDate),
		AsOf:               row.AsOf,
		Symbol:             row.Symbol,
		TotalScore:         row.TotalScore,
		Factors:            factors,
		CallVolume:         row.CallVolume,
		PutVolume:          row.PutVolume,
		TotalVolume:        row.TotalVolume,
		CallOpenInterest:   row.CallOpenInterest,
		PutOpenInterest:    row.PutOpenInterest,
		CallMagnitude:      row.CallMagnitude,
		PutMagnitude:       row.PutMagnitude,
		CallBaselineAvg:    row.CallBaselineAvg,
		PutBaselineAvg:     row.PutBaselineAvg,
		Direction:          models.Direction(row.Direction),
		Conviction:         models.Conviction(row.Conviction),
		VolumeTier:         models.VolumeTier(row.VolumeTier),
		PatternDescription: row.PatternDescription,
	}, nil
}

// UpsertAnomalyRecord stores a record, replacing any earlier row for the same
// (event_date, symbol)
func (db *DB) UpsertAnomalyRecord(ctx context.Context, r models.AnomalyRecord) error {
	row, err := toRow(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	if _, err := db.NamedExecContext(ctx, upsertAnomalyQuery, row); err != nil {
		return fmt.Errorf("failed to upsert anomaly for %s: %w", r.Symbol, err)
	}
	return nil
}

// ListAnomalyRecords returns the stored records of a date scoring at least
// minScore, highest first
func (db *DB) ListAnomalyRecords(ctx context.Context, eventDate time.Time, minScore float64) ([]models.AnomalyRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	query := `SELECT ` + anomalyColumns + `
		FROM daily_anomaly_snapshot
		WHERE event_date = $1 AND total_score >= $2
		ORDER BY total_score DESC, symbol`

	var rows []anomalyRow
	if err := db.SelectContext(ctx, &rows, query, models.CalendarDate(eventDate), minScore); err != nil {
		return nil, fmt.Errorf("failed to list anomalies: %w", err)
	}

	records := make([]models.AnomalyRecord, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// LatestEventDate returns the most recent date with stored anomalies.
// ok is false when the table is empty.
func (db *DB) LatestEventDate(ctx context.Context) (date time.Time, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	var latest sql.NullTime
	err = db.GetContext(ctx, &latest, `SELECT MAX(event_date) FROM daily_anomaly_snapshot`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get latest event date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return models.CalendarDate(latest.Time), true, nil
}
