package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tweetwatch/internal/domain"
	"tweetwatch/internal/notify"
)

func newCollectCmd(a *app) *cobra.Command {
	var lookbackHours float64

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch new items from monitored accounts and trending search",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("lookback") {
				a.cfg.LookbackHours = lookbackHours
			}

			_, _, err := a.collect(cmd.Context())

			return err
		},
	}

	cmd.Flags().Float64Var(&lookbackHours, "lookback", 0, "override the look-back window in hours (0 disables it)")

	return cmd
}

// collect runs one collect stage and returns the collection plus the raw
// artifact path. The ledger is committed only after the artifact landed, so
// an interrupted run never marks unwritten items as seen.
func (a *app) collect(ctx context.Context) (*domain.RawCollection, string, error) {
	collector, err := a.collector()
	if err != nil {
		return nil, "", err
	}

	ledger, err := a.store.Load()
	if err != nil {
		return nil, "", fmt.Errorf("load state: %w", err)
	}

	a.logger.Info().Int("seen", ledger.SeenCount()).Msg("state loaded")

	raw, err := collector.Run(ctx, ledger)
	if err != nil {
		return nil, "", fmt.Errorf("collect: %w", err)
	}

	path, err := a.writer.WriteRaw(raw, a.clock.Now())
	if err != nil {
		return nil, "", err
	}

	if err := a.store.Save(ledger); err != nil {
		return nil, "", fmt.Errorf("save state: %w", err)
	}

	if raw.Metadata.TotalItems >= a.cfg.NotifyThreshold {
		a.notifier().Notify(ctx, notify.Event{
			Kind:      "collected",
			Message:   fmt.Sprintf("collected %d new items", raw.Metadata.TotalItems),
			ItemCount: raw.Metadata.TotalItems,
			At:        a.clock.Now(),
		})
	}

	return raw, path, nil
}
