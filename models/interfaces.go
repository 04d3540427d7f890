package models

import (
	"context"
	"time"
)

// ObservationSource supplies the current session's contract rows grouped by symbol
type ObservationSource interface {
	FetchCurrentObservations(ctx context.Context, asOf time.Time) (map[string][]ContractObservation, error)
}

// HistorySource supplies daily aggregates ordered by date
type HistorySource interface {
	FetchHistoricalAggregates(ctx context.Context, symbol string, side Side, lookbackDays int, asOf time.Time) ([]HistoricalAggregate, error)
}

// RecordSink persists anomaly records; writes must be upserts keyed by (event date, symbol)
type RecordSink interface {
	UpsertAnomalyRecord(ctx context.Context, record AnomalyRecord) error
}

// RecordReader lists stored records for a trading date
type RecordReader interface {
	ListAnomalyRecords(ctx context.Context, eventDate time.Time, minScore float64) ([]AnomalyRecord, error)
}

// Notifier delivers alert-eligible records downstream
type Notifier interface {
	Notify(ctx context.Context, records []AnomalyRecord) error
}
