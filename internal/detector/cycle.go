package detector

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/internal/scoring"
	"github.com/Alias1177/InsiderScan/models"
)

// BaselineProvider returns a symbol's baseline for a trading date
type BaselineProvider interface {
	Get(ctx context.Context, symbol string, date time.Time) (models.SymbolBaseline, error)
}

// Recorder receives cycle outcomes, typically for metrics
type Recorder interface {
	RecordScored(r models.AnomalyRecord)
	CycleCompleted(s CycleSummary)
}

// Options tunes a Detector
type Options struct {
	Workers  int
	Location *time.Location
	// DryRun scores without writing to the sink
	DryRun   bool
	Recorder Recorder
}

// Detector runs detection cycles
type Detector struct {
	source     models.ObservationSource
	baselines  BaselineProvider
	sink       models.RecordSink
	thresholds models.Thresholds
	opts       Options
	logger     zerolog.Logger
}

// New creates a detector. sink may be nil, which implies a dry run.
func New(source models.ObservationSource, baselines BaselineProvider, sink models.RecordSink, th models.Thresholds, opts Options) *Detector {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Location == nil {
		opts.Location = models.MarketLocation(models.DefaultMarketTimezone)
	}
	if sink == nil {
		opts.DryRun = true
	}
	return &Detector{
		source:     source,
		baselines:  baselines,
		sink:       sink,
		thresholds: th,
		opts:       opts,
		logger:     log.With().Str("component", "detector").Logger(),
	}
}

type outcome struct {
	record *models.AnomalyRecord
	skip   *Skip
}

// Run executes one cycle for cycleTimestamp and returns the records it emitted,
// sorted by symbol. Per-symbol failures are reported in the summary; the error
// is set only when observations cannot be fetched or nothing was processed.
func (d *Detector) Run(ctx context.Context, cycleTimestamp time.Time) ([]models.AnomalyRecord, CycleSummary, error) {
	start := time.Now()
	summary := CycleSummary{
		CycleID:     uuid.New(),
		AsOf:        cycleTimestamp,
		EventDate:   models.TradingDate(cycleTimestamp, d.opts.Location),
		SkipReasons: make(map[SkipReason]int),
		DryRun:      d.opts.DryRun,
	}
	logger := d.logger.With().Str("cycle_id", summary.CycleID.String()).Logger()

	finish := func() {
		summary.Duration = time.Since(start)
		if d.opts.Recorder != nil {
			d.opts.Recorder.CycleCompleted(summary)
		}
	}

	observations, err := d.source.FetchCurrentObservations(ctx, cycleTimestamp)
	if err != nil {
		summary.Failed = true
		finish()
		logger.Error().Err(err).Msg("Failed to fetch current observations")
		return nil, summary, fmt.Errorf("fetching current observations: %w", err)
	}

	symbols := make([]string, 0, len(observations))
	for symbol := range observations {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	summary.SymbolsSeen = len(symbols)

	jobs := make(chan string)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make([]outcome, 0, len(symbols))
	)

	workers := d.opts.Workers
	if workers > len(symbols) {
		workers = len(symbols)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				o := d.process(ctx, symbol, observations[symbol], summary)
				mu.Lock()
				outcomes = append(outcomes, o)
				mu.Unlock()
			}
		}()
	}
	for _, symbol := range symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()

	records := make([]models.AnomalyRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.skip != nil {
			summary.skip(*o.skip)
			continue
		}
		records = append(records, *o.record)
		summary.Processed++
		switch o.record.Conviction {
		case models.ConvictionHigh:
			summary.HighConviction++
		case models.ConvictionElevated:
			summary.Elevated++
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Symbol < records[j].Symbol
	})
	summary.sortSkips()

	if summary.Processed == 0 {
		summary.Failed = true
		finish()
		logger.Error().
			Int("symbols", summary.SymbolsSeen).
			Int("skipped", summary.Skipped).
			Msg("Detection cycle processed no symbols")
		return records, summary, ErrNoSymbolsProcessed
	}

	finish()
	event := logger.Info()
	if summary.Warnings > 0 {
		event = logger.Warn().Int("warnings", summary.Warnings)
	}
	event.
		Str("event_date", summary.EventDate.Format("2006-01-02")).
		Int("symbols", summary.SymbolsSeen).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("high_conviction", summary.HighConviction).
		Int("elevated", summary.Elevated).
		Dur("duration", summary.Duration).
		Msg("Detection cycle completed")

	return records, summary, nil
}

// process scores one symbol; a panic is turned into a skip
func (d *Detector) process(ctx context.Context, symbol string, obs []models.ContractObservation, summary CycleSummary) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("symbol", symbol).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic while scoring symbol")
			out = outcome{skip: &Skip{Symbol: symbol, Reason: SkipPanic, Error: fmt.Sprint(r)}}
		}
	}()

	if scoring.Totals(obs).TotalVolume() == 0 {
		return outcome{skip: &Skip{Symbol: symbol, Reason: SkipZeroVolume}}
	}

	b, err := d.baselines.Get(ctx, symbol, summary.EventDate)
	if err != nil {
		d.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol without baseline")
		return outcome{skip: &Skip{Symbol: symbol, Reason: SkipBaselineUnavailable, Error: err.Error()}}
	}

	record := scoring.Evaluate(scoring.Input{
		Symbol:       symbol,
		Observations: obs,
		Baseline:     b,
		Thresholds:   d.thresholds,
		EventDate:    summary.EventDate,
		AsOf:         summary.AsOf,
	})

	if !d.opts.DryRun {
		if err := d.sink.UpsertAnomalyRecord(ctx, record); err != nil {
			d.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping symbol after failed upsert")
			return outcome{skip: &Skip{Symbol: symbol, Reason: SkipPersistFailed, Error: err.Error()}}
		}
	}

	if d.opts.Recorder != nil {
		d.opts.Recorder.RecordScored(record)
	}

	switch record.Conviction {
	case models.ConvictionHigh:
		d.logger.Info().
			Str("symbol", symbol).
			Float64("score", record.TotalScore).
			Str("direction", string(record.Direction)).
			Str("pattern", record.PatternDescription).
			Msg("High conviction activity")
	case models.ConvictionElevated:
		d.logger.Info().
			Str("symbol", symbol).
			Float64("score", record.TotalScore).
			Msg("Elevated activity")
	default:
		d.logger.Debug().Str("symbol", symbol).Float64("score", record.TotalScore).Msg("Symbol scored")
	}

	return outcome{record: &record}
}
