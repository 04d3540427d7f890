package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/models"
)

// Dispatcher filters records, drops repeats and fans out to every channel
type Dispatcher struct {
	filter   Filter
	dedup    *Deduplicator
	channels []models.Notifier
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher; dedup may be nil
func NewDispatcher(filter Filter, dedup *Deduplicator, channels ...models.Notifier) *Dispatcher {
	return &Dispatcher{
		filter:   filter,
		dedup:    dedup,
		channels: channels,
		logger:   log.With().Str("component", "notify").Logger(),
	}
}

// Channels reports how many outputs are configured
func (d *Dispatcher) Channels() int {
	return len(d.channels)
}

// Notify implements models.Notifier. A failing channel does not stop the others.
// Records are marked as delivered only once some channel accepted them.
func (d *Dispatcher) Notify(ctx context.Context, records []models.AnomalyRecord) error {
	selected := d.filter.Apply(records)
	if d.dedup != nil {
		fresh := selected[:0]
		for _, r := range selected {
			seen, err := d.dedup.Seen(ctx, r)
			if err != nil {
				// fail open
				d.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Dedup check failed")
				seen = false
			}
			if !seen {
				fresh = append(fresh, r)
			}
		}
		selected = fresh
	}

	if len(selected) == 0 {
		d.logger.Debug().Int("candidates", len(records)).Msg("Nothing to alert")
		return nil
	}

	var errs []error
	delivered := 0
	for _, ch := range d.channels {
		if err := ch.Notify(ctx, selected); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered++
	}

	if delivered > 0 && d.dedup != nil {
		for _, r := range selected {
			if err := d.dedup.Mark(ctx, r); err != nil {
				d.logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Failed to mark alert as sent")
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}

	d.logger.Info().Int("alerts", len(selected)).Int("channels", len(d.channels)).Msg("Alerts dispatched")
	return nil
}
