package baseline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/models"
)

// Cache is an optional shared layer for baselines of the current trading day
type Cache interface {
	Get(ctx context.Context, symbol string, date time.Time) (models.SymbolBaseline, bool, error)
	Set(ctx context.Context, date time.Time, b models.SymbolBaseline) error
}

type key struct {
	symbol string
	side   models.Side
	date   time.Time
}

// Store hands out baselines keyed by (symbol, side, trading date).
// Entries are built once per trading day and replaced wholesale when the date rolls.
type Store struct {
	history    models.HistorySource
	cache      Cache
	thresholds models.Thresholds
	logger     zerolog.Logger

	mu      sync.RWMutex
	day     time.Time
	entries map[key]models.SideBaseline
}

// NewStore creates a store backed by history; cache may be nil
func NewStore(history models.HistorySource, cache Cache, th models.Thresholds) *Store {
	return &Store{
		history:    history,
		cache:      cache,
		thresholds: th,
		logger:     log.With().Str("component", "baseline_store").Logger(),
		entries:    make(map[key]models.SideBaseline),
	}
}

// Get returns the baseline of symbol for the trading date
func (s *Store) Get(ctx context.Context, symbol string, date time.Time) (models.SymbolBaseline, error) {
	date = models.CalendarDate(date)

	if b, ok := s.lookup(symbol, date); ok {
		return b, nil
	}

	if s.cache != nil {
		b, ok, err := s.cache.Get(ctx, symbol, date)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Baseline cache read failed")
		} else if ok {
			s.put(date, b)
			return b, nil
		}
	}

	calls, err := s.history.FetchHistoricalAggregates(ctx, symbol, models.SideCall, s.thresholds.BaselineDays, date)
	if err != nil {
		return models.SymbolBaseline{}, fmt.Errorf("fetching call history for %s: %w", symbol, err)
	}
	puts, err := s.history.FetchHistoricalAggregates(ctx, symbol, models.SidePut, s.thresholds.BaselineDays, date)
	if err != nil {
		return models.SymbolBaseline{}, fmt.Errorf("fetching put history for %s: %w", symbol, err)
	}

	b := Build(symbol, date, calls, puts, s.thresholds)
	if !b.Call.VolumeSufficient() || !b.Put.VolumeSufficient() {
		s.logger.Debug().
			Str("symbol", symbol).
			Int("call_days", b.Call.VolumeDays).
			Int("put_days", b.Put.VolumeDays).
			Msg("Insufficient baseline history")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, date, b); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Baseline cache write failed")
		}
	}
	s.put(date, b)
	return b, nil
}

func (s *Store) lookup(symbol string, date time.Time) (models.SymbolBaseline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.day.Equal(date) {
		return models.SymbolBaseline{}, false
	}
	call, okCall := s.entries[key{symbol, models.SideCall, date}]
	put, okPut := s.entries[key{symbol, models.SidePut, date}]
	if !okCall || !okPut {
		return models.SymbolBaseline{}, false
	}
	return models.SymbolBaseline{
		Symbol:       symbol,
		AsOf:         date,
		LookbackDays: s.thresholds.BaselineDays,
		Call:         call,
		Put:          put,
	}, true
}

func (s *Store) put(date time.Time, b models.SymbolBaseline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.day.Equal(date) {
		// new trading day: drop the previous day's entries in one swap
		s.entries = make(map[key]models.SideBaseline)
		s.day = date
	}
	s.entries[key{b.Symbol, models.SideCall, date}] = b.Call
	s.entries[key{b.Symbol, models.SidePut, date}] = b.Put
}

// Len reports how many side baselines are held for the current day
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
