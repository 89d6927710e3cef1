package main

import (
	"context"
)

// runAll is the default command: collect, analyze and render in one go,
// passing artifacts in memory while still writing every stage to disk.
func (a *app) runAll(ctx context.Context) error {
	raw, rawPath, err := a.collect(ctx)
	if err != nil {
		return err
	}

	if raw.Metadata.TotalItems == 0 {
		a.logger.Info().Msg("no new items, skipping analysis")

		return nil
	}

	analysis, _, err := a.analyzeRaw(ctx, raw, rawPath)
	if err != nil {
		return err
	}

	_, err = a.runReport(ctx, "", analysis)

	return err
}
