package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/InsiderScan/internal/baseline"
	"github.com/Alias1177/InsiderScan/models"
)

// 2024-03-15 20:30 UTC is 16:30 in New York, the same trading date
var cycleTime = time.Date(2024, 3, 15, 20, 30, 0, 0, time.UTC)

type fakeSource struct {
	obs map[string][]models.ContractObservation
	err error
}

func (f *fakeSource) FetchCurrentObservations(context.Context, time.Time) (map[string][]models.ContractObservation, error) {
	return f.obs, f.err
}

type fakeHistory struct {
	failFor map[string]bool
}

func (f *fakeHistory) FetchHistoricalAggregates(_ context.Context, symbol string, side models.Side, _ int, asOf time.Time) ([]models.HistoricalAggregate, error) {
	if f.failFor[symbol] {
		return nil, errors.New("history unavailable")
	}
	base := int64(100)
	if side == models.SidePut {
		base = 50
	}
	rows := make([]models.HistoricalAggregate, 0, 10)
	for i := 1; i <= 10; i++ {
		rows = append(rows, models.HistoricalAggregate{
			Date:         asOf.AddDate(0, 0, -i),
			Volume:       base + int64(i%3)*10,
			OpenInterest: base * 10,
		})
	}
	return rows, nil
}

type key struct {
	date   string
	symbol string
}

type fakeSink struct {
	mu      sync.Mutex
	rows    map[key]models.AnomalyRecord
	upserts int
	failFor map[string]bool
}

func newSink() *fakeSink {
	return &fakeSink{rows: make(map[key]models.AnomalyRecord), failFor: map[string]bool{}}
}

func (s *fakeSink) UpsertAnomalyRecord(_ context.Context, r models.AnomalyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[r.Symbol] {
		return errors.New("deadlock detected")
	}
	s.upserts++
	s.rows[key{r.EventDate.Format("2006-01-02"), r.Symbol}] = r
	return nil
}

type panickyProvider struct {
	BaselineProvider
	symbol string
}

func (p panickyProvider) Get(ctx context.Context, symbol string, date time.Time) (models.SymbolBaseline, error) {
	if symbol == p.symbol {
		panic("corrupt baseline")
	}
	return p.BaselineProvider.Get(ctx, symbol, date)
}

type countingRecorder struct {
	mu      sync.Mutex
	scored  int
	cycles  int
	summary CycleSummary
}

func (c *countingRecorder) RecordScored(models.AnomalyRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scored++
}

func (c *countingRecorder) CycleCompleted(s CycleSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles++
	c.summary = s
}

func contract(symbol, ticker string, side models.Side, strike float64, days int, volume int64) models.ContractObservation {
	return models.ContractObservation{
		Symbol:            symbol,
		ContractTicker:    ticker,
		Side:              side,
		StrikePrice:       strike,
		ExpirationDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days),
		SessionVolume:     volume,
		OpenInterest:      1000,
		LastPrice:         1.5,
		SharesPerContract: 100,
		UnderlyingPrice:   100,
	}
}

func observations(n int) map[string][]models.ContractObservation {
	out := make(map[string][]models.ContractObservation, n)
	for i := 0; i < n; i++ {
		symbol := fmt.Sprintf("SYM%02d", i)
		out[symbol] = []models.ContractObservation{
			contract(symbol, symbol+"C1", models.SideCall, 110, 5, int64(100+i*250)),
			contract(symbol, symbol+"C2", models.SideCall, 100, 30, int64(50+i*10)),
			contract(symbol, symbol+"P1", models.SidePut, 90, 14, int64(40+i*5)),
		}
	}
	return out
}

func newDetector(src models.ObservationSource, hist models.HistorySource, sink models.RecordSink, opts Options) *Detector {
	th := models.DefaultThresholds()
	opts.Location = time.UTC
	return New(src, baseline.NewStore(hist, nil, th), sink, th, opts)
}

func TestRunEmitsSortedRecords(t *testing.T) {
	sink := newSink()
	rec := &countingRecorder{}
	d := newDetector(&fakeSource{obs: observations(5)}, &fakeHistory{}, sink, Options{Workers: 3, Recorder: rec})

	records, summary, err := d.Run(context.Background(), cycleTime)
	require.NoError(t, err)

	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("SYM%02d", i), r.Symbol)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.EventDate)
		assert.Equal(t, cycleTime, r.AsOf)
		assert.LessOrEqual(t, r.TotalScore, 10.0)
	}
	assert.Equal(t, 5, summary.SymbolsSeen)
	assert.Equal(t, 5, summary.Processed)
	assert.Equal(t, 0, summary.Skipped)
	assert.False(t, summary.Failed)
	assert.NotEqual(t, uuid.Nil, summary.CycleID)
	assert.Equal(t, 5, sink.upserts)
	assert.Equal(t, 5, rec.scored)
	assert.Equal(t, 1, rec.cycles)
}

func TestRunIsIdempotent(t *testing.T) {
	sink := newSink()
	d := newDetector(&fakeSource{obs: observations(4)}, &fakeHistory{}, sink, Options{Workers: 2})

	first, _, err := d.Run(context.Background(), cycleTime)
	require.NoError(t, err)
	second, _, err := d.Run(context.Background(), cycleTime)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, sink.rows, 4, "one row per (event_date, symbol)")
	assert.Equal(t, 8, sink.upserts)
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	obs := observations(12)
	var baselineRecords []models.AnomalyRecord

	for _, workers := range []int{1, 2, 5, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			d := newDetector(&fakeSource{obs: obs}, &fakeHistory{}, nil, Options{Workers: workers})
			records, summary, err := d.Run(context.Background(), cycleTime)
			require.NoError(t, err)
			assert.True(t, summary.DryRun)

			if baselineRecords == nil {
				baselineRecords = records
				return
			}
			assert.Equal(t, baselineRecords, records)
		})
	}
}

func TestRunSkipsZeroVolumeSymbols(t *testing.T) {
	obs := observations(2)
	obs["IDLE"] = []models.ContractObservation{
		contract("IDLE", "IDLEC1", models.SideCall, 110, 5, 0),
		contract("IDLE", "IDLEP1", models.SidePut, 90, 5, 0),
	}
	sink := newSink()
	d := newDetector(&fakeSource{obs: obs}, &fakeHistory{}, sink, Options{Workers: 2})

	records, summary, err := d.Run(context.Background(), cycleTime)
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, 1, summary.SkipReasons[SkipZeroVolume])
	assert.Equal(t, 0, summary.Warnings)
	_, stored := sink.rows[key{"2024-03-15", "IDLE"}]
	assert.False(t, stored)
}

func TestRunIsolatesPerSymbolFailures(t *testing.T) {
	obs := observations(4)
	sink := newSink()
	sink.failFor["SYM02"] = true
	th := models.DefaultThresholds()
	store := baseline.NewStore(&fakeHistory{failFor: map[string]bool{"SYM01": true}}, nil, th)
	provider := panickyProvider{BaselineProvider: store, symbol: "SYM03"}
	d := New(&fakeSource{obs: obs}, provider, sink, th, Options{Workers: 4, Location: time.UTC})

	records, summary, err := d.Run(context.Background(), cycleTime)
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "SYM00", records[0].Symbol)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 3, summary.Warnings)
	assert.Equal(t, 1, summary.SkipReasons[SkipBaselineUnavailable])
	assert.Equal(t, 1, summary.SkipReasons[SkipPersistFailed])
	assert.Equal(t, 1, summary.SkipReasons[SkipPanic])
	assert.False(t, summary.Failed)

	require.Len(t, summary.Skips, 3)
	assert.Equal(t, "SYM01", summary.Skips[0].Symbol)
	assert.Equal(t, "SYM03", summary.Skips[2].Symbol)
}

func TestRunFailsWhenNothingProcessed(t *testing.T) {
	d := newDetector(&fakeSource{obs: observations(3)}, &fakeHistory{failFor: map[string]bool{
		"SYM00": true, "SYM01": true, "SYM02": true,
	}}, newSink(), Options{Workers: 2})

	records, summary, err := d.Run(context.Background(), cycleTime)

	require.ErrorIs(t, err, ErrNoSymbolsProcessed)
	assert.Empty(t, records)
	assert.True(t, summary.Failed)
	assert.Equal(t, 3, summary.Skipped)
}

func TestRunFailsOnObservationError(t *testing.T) {
	rec := &countingRecorder{}
	d := newDetector(&fakeSource{err: errors.New("connection reset")}, &fakeHistory{}, newSink(), Options{Recorder: rec})

	_, summary, err := d.Run(context.Background(), cycleTime)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, summary.Failed)
	assert.Equal(t, 1, rec.cycles)
}

func TestRunUsesMarketTradingDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	th := models.DefaultThresholds()
	d := New(&fakeSource{obs: observations(1)}, baseline.NewStore(&fakeHistory{}, nil, th), nil, th, Options{Location: ny})

	// 01:30 UTC on the 16th is still the 15th in New York
	records, summary, err := d.Run(context.Background(), time.Date(2024, 3, 16, 1, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, summary.EventDate)
	assert.Equal(t, want, records[0].EventDate)
}
