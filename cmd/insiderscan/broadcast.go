package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/InsiderScan/internal/notify"
	"github.com/Alias1177/InsiderScan/models"
)

func newBroadcastCmd(logLevel *string) *cobra.Command {
	var (
		date     string
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Re-send stored alerts for a trading date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*logLevel)
			if err != nil {
				return err
			}
			if minScore > 0 {
				cfg.AlertMinScore = minScore
			}

			a, err := newApp(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			eventDate := models.TradingDate(time.Now(), cfg.Location())
			if date != "" {
				eventDate, err = time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
			} else if latest, ok, err := a.db.LatestEventDate(cmd.Context()); err == nil && ok {
				eventDate = latest
			}

			records, err := a.store.ListAnomalyRecords(cmd.Context(), eventDate, cfg.AlertMinScore)
			if err != nil {
				return err
			}
			log.Info().
				Str("event_date", eventDate.Format("2006-01-02")).
				Int("records", len(records)).
				Msg("Loaded stored anomalies")

			if len(a.channels) == 0 {
				return fmt.Errorf("no alert channels configured")
			}
			// re-sends skip dedup
			dispatcher := notify.NewDispatcher(notify.Filter{MinScore: cfg.AlertMinScore}, nil, a.channels...)
			return dispatcher.Notify(cmd.Context(), records)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "trading date (YYYY-MM-DD), default latest stored")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "override ANOMALY_ALERT_MIN_SCORE")
	return cmd
}
