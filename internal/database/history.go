package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Alias1177/InsiderScan/models"
)

const historicalAggregatesQuery = `
	SELECT
		dos.date AS date,
		SUM(dos.volume) AS volume,
		SUM(COALESCE(dos.open_interest, 0)) AS open_interest
	FROM daily_option_snapshot dos
	INNER JOIN option_contracts oc ON dos.contract_ticker = oc.contract_ticker
	WHERE oc.symbol = $1
	  AND oc.contract_type = $2
	  AND dos.date BETWEEN $3 AND $4
	  AND dos.volume > 0
	GROUP BY dos.date
	ORDER BY dos.date`

// FetchHistoricalAggregates sums daily snapshots per date for one symbol side
// over the lookbackDays business days before asOf
func (db *DB) FetchHistoricalAggregates(ctx context.Context, symbol string, side models.Side, lookbackDays int, asOf time.Time) ([]models.HistoricalAggregate, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("invalid contract type: %q", side)
	}

	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	end := models.CalendarDate(asOf).AddDate(0, 0, -1)
	start := models.BusinessDaysBack(asOf, lookbackDays)

	var rows []models.HistoricalAggregate
	if err := db.SelectContext(ctx, &rows, historicalAggregatesQuery, symbol, string(side), start, end); err != nil {
		return nil, fmt.Errorf("failed to fetch %s history for %s: %w", side, symbol, err)
	}
	return rows, nil
}
