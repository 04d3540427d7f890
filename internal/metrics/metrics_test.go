package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/InsiderScan/internal/detector"
	"github.com/Alias1177/InsiderScan/models"
)

func TestRecordScored(t *testing.T) {
	r := NewRegistry()
	r.RecordScored(models.AnomalyRecord{
		TotalScore: 7.5,
		Conviction: models.ConvictionHigh,
		VolumeTier: models.VolumeTierHigh,
		Factors: models.FactorScores{
			Volume: models.FactorScore{Name: models.FactorVolume, Value: 1.5, Max: 3},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Records.WithLabelValues("HIGH_CONVICTION", "high_volume")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.TotalScores))
}

func TestCycleCompleted(t *testing.T) {
	tests := []struct {
		name    string
		summary detector.CycleSummary
		status  string
	}{
		{
			name:    "success",
			summary: detector.CycleSummary{Processed: 10, SkipReasons: map[detector.SkipReason]int{}},
			status:  "success",
		},
		{
			name: "partial",
			summary: detector.CycleSummary{
				Processed:   8,
				Warnings:    2,
				SkipReasons: map[detector.SkipReason]int{detector.SkipPersistFailed: 2},
			},
			status: "partial",
		},
		{
			name:    "failed",
			summary: detector.CycleSummary{Failed: true, SkipReasons: map[detector.SkipReason]int{}},
			status:  "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.summary.AsOf = time.Unix(1710532800, 0)
			tt.summary.Duration = 2 * time.Second
			r.CycleCompleted(tt.summary)

			assert.Equal(t, 1.0, testutil.ToFloat64(r.Cycles.WithLabelValues(tt.status)))
			assert.Equal(t, float64(tt.summary.Processed), testutil.ToFloat64(r.SymbolsProcessed))
			for reason, n := range tt.summary.SkipReasons {
				assert.Equal(t, float64(n), testutil.ToFloat64(r.SymbolsSkipped.WithLabelValues(string(reason))))
			}
		})
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.Cycles.WithLabelValues("success").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `insiderscan_cycles_total{status="success"} 1`)
}
