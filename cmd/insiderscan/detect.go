package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/InsiderScan/models"
)

func newDetectCmd(logLevel *string) *cobra.Command {
	var (
		asOf   string
		dryRun bool
		notify bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run one detection cycle",
		Long:  "Scores every symbol with current activity, stores the records and optionally sends alerts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*logLevel)
			if err != nil {
				return err
			}

			ts := time.Now()
			if asOf != "" {
				ts, err = time.Parse(time.RFC3339, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
			}

			a, err := newApp(cmd.Context(), cfg, dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			records, summary, err := a.detector.Run(cmd.Context(), ts)
			if err != nil {
				return fmt.Errorf("detection cycle %s: %w", summary.CycleID, err)
			}

			printRecords(records)

			if notify {
				if a.notifier.Channels() == 0 {
					log.Warn().Msg("No alert channels configured")
				} else if err := a.notifier.Notify(cmd.Context(), records); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "cycle timestamp (RFC3339), default now")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "score without writing records")
	cmd.Flags().BoolVar(&notify, "notify", false, "send alerts for qualifying records")
	return cmd
}

// printRecords writes elevated and high-conviction records as a table
func printRecords(records []models.AnomalyRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSCORE\tCONVICTION\tDIRECTION\tTIER\tPATTERN")
	for _, r := range records {
		if r.Conviction == models.ConvictionNormal {
			continue
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\t%s\n",
			r.Symbol, r.TotalScore, r.Conviction, r.Direction, r.VolumeTier, r.PatternDescription)
	}
	w.Flush()
}
