package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Alias1177/InsiderScan/models"
)

const currentObservationsQuery = `
	WITH latest_stock AS (
		SELECT DISTINCT ON (symbol)
			symbol, day_close, day_vwap
		FROM temp_stock
		WHERE as_of_timestamp <= $1
		  AND (day_close > 0 OR day_vwap > 0)
		ORDER BY symbol, as_of_timestamp DESC
	),
	latest_option AS (
		SELECT DISTINCT ON (symbol, contract_ticker)
			symbol, contract_ticker, contract_type, strike_price, expiration_date,
			session_volume, open_interest, session_close
		FROM temp_option
		WHERE as_of_timestamp <= $1
		ORDER BY symbol, contract_ticker, as_of_timestamp DESC
	)
	SELECT
		o.symbol,
		o.contract_ticker,
		o.contract_type,
		o.strike_price,
		o.expiration_date,
		COALESCE(o.session_volume, 0) AS session_volume,
		COALESCE(o.open_interest, 0) AS open_interest,
		COALESCE(o.session_close, 0) AS session_close,
		COALESCE(oc.shares_per_contract, 100) AS shares_per_contract,
		COALESCE(NULLIF(s.day_close, 0), NULLIF(s.day_vwap, 0), 0) AS underlying_price
	FROM latest_option o
	LEFT JOIN latest_stock s ON o.symbol = s.symbol
	LEFT JOIN option_contracts oc ON o.contract_ticker = oc.contract_ticker
	WHERE o.contract_type IN ('call', 'put')
	  AND o.expiration_date >= $2
	ORDER BY o.symbol, o.contract_ticker`

// FetchCurrentObservations returns the latest snapshot of every live contract
// as of asOf, grouped by symbol. The underlying price is taken from the stock
// snapshot only; a missing one is left at zero.
func (db *DB) FetchCurrentObservations(ctx context.Context, asOf time.Time) (map[string][]models.ContractObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	eventDate := models.TradingDate(asOf, db.location)

	var rows []models.ContractObservation
	if err := db.SelectContext(ctx, &rows, currentObservationsQuery, asOf, eventDate); err != nil {
		return nil, fmt.Errorf("failed to fetch current observations: %w", err)
	}

	result := make(map[string][]models.ContractObservation)
	for _, row := range rows {
		result[row.Symbol] = append(result[row.Symbol], row)
	}

	db.logger.Debug().
		Int("contracts", len(rows)).
		Int("symbols", len(result)).
		Time("as_of", asOf).
		Msg("Fetched current observations")

	return result, nil
}
