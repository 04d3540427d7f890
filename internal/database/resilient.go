package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/Alias1177/InsiderScan/models"
)

// Store is the full set of operations the resilient wrapper guards
type Store interface {
	models.ObservationSource
	models.HistorySource
	models.RecordSink
	models.RecordReader
}

// RetryPolicy bounds retries of a single call
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	// FailureThreshold consecutive failures open the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing
	OpenTimeout time.Duration
}

// DefaultRetryPolicy returns conservative retry settings
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval:  200 * time.Millisecond,
		MaxInterval:      5 * time.Second,
		MaxElapsedTime:   30 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Resilient retries transient failures with exponential backoff and stops
// calling a failing database through a circuit breaker
type Resilient struct {
	next    Store
	policy  RetryPolicy
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewResilient wraps next
func NewResilient(next Store, policy RetryPolicy) *Resilient {
	logger := log.With().Str("component", "database_breaker").Logger()

	st := gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 1,
		Timeout:     policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= policy.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Resilient{
		next:    next,
		policy:  policy,
		breaker: gobreaker.NewCircuitBreaker(st),
		logger:  logger,
	}
}

// State reports the breaker state
func (r *Resilient) State() gobreaker.State {
	return r.breaker.State()
}

func (r *Resilient) do(ctx context.Context, op string, fn func() error) error {
	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = r.policy.InitialInterval
	strategy.MaxInterval = r.policy.MaxInterval
	strategy.MaxElapsedTime = r.policy.MaxElapsedTime

	attempt := 0
	operation := func() error {
		attempt++
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		r.logger.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("Retrying database call")
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FetchCurrentObservations implements models.ObservationSource
func (r *Resilient) FetchCurrentObservations(ctx context.Context, asOf time.Time) (map[string][]models.ContractObservation, error) {
	var out map[string][]models.ContractObservation
	err := r.do(ctx, "fetch current observations", func() error {
		var err error
		out, err = r.next.FetchCurrentObservations(ctx, asOf)
		return err
	})
	return out, err
}

// FetchHistoricalAggregates implements models.HistorySource
func (r *Resilient) FetchHistoricalAggregates(ctx context.Context, symbol string, side models.Side, lookbackDays int, asOf time.Time) ([]models.HistoricalAggregate, error) {
	var out []models.HistoricalAggregate
	err := r.do(ctx, "fetch historical aggregates", func() error {
		var err error
		out, err = r.next.FetchHistoricalAggregates(ctx, symbol, side, lookbackDays, asOf)
		return err
	})
	return out, err
}

// UpsertAnomalyRecord implements models.RecordSink
func (r *Resilient) UpsertAnomalyRecord(ctx context.Context, record models.AnomalyRecord) error {
	return r.do(ctx, "upsert anomaly record", func() error {
		return r.next.UpsertAnomalyRecord(ctx, record)
	})
}

// ListAnomalyRecords implements models.RecordReader
func (r *Resilient) ListAnomalyRecords(ctx context.Context, eventDate time.Time, minScore float64) ([]models.AnomalyRecord, error) {
	var out []models.AnomalyRecord
	err := r.do(ctx, "list anomaly records", func() error {
		var err error
		out, err = r.next.ListAnomalyRecords(ctx, eventDate, minScore)
		return err
	})
	return out, err
}
