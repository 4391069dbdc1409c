package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradedesk/internal/models"
	"tradedesk/internal/store"
	"tradedesk/internal/view"
)

func newDashboardCmd(app *App) *cobra.Command {
	var (
		sortField string
		desc      bool
		watch     bool
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the recommendation dashboard",
		Long: `Synchronize the watchlist with the latest recommendations and
real-time quotes, and render the dashboard. With --watch the dashboard
stays open and refreshes quotes on an interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			spec := sortSpec(sortField, desc)

			if err := app.Sync.Resync(ctx); err != nil {
				output.Error("Dashboard sync failed: %v", err)
				return err
			}

			if !watch {
				renderRows(output, view.Order(app.Rows.Snapshot(), spec), app)
				return nil
			}

			return watchLoop(ctx, output, app, spec, interval)
		},
	}

	cmd.Flags().StringVar(&sortField, "sort", "", "sort field: symbol or action")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep refreshing quotes")
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Second, "quote refresh interval in watch mode")

	return cmd
}

func sortSpec(field string, desc bool) view.SortSpec {
	spec := view.SortSpec{}
	switch field {
	case "symbol":
		spec.Field = view.SortSymbol
	case "action":
		spec.Field = view.SortAction
	}
	if desc {
		spec.Direction = view.Descending
	}
	return spec
}

// watchLoop re-renders on every row-set publish and triggers a price
// refresh on the configured interval until the context is cancelled.
func watchLoop(ctx context.Context, output *Output, app *App, spec view.SortSpec, interval time.Duration) error {
	updates := app.Rows.Subscribe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	renderRows(output, view.Order(app.Rows.Snapshot(), spec), app)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// An overlapping refresh returns ErrRefreshInProgress; the
			// ticker just skips that round.
			go app.Refresh.Refresh(ctx)
		case rows := <-updates:
			renderRows(output, view.Order(rows, spec), app)
		}
	}
}

func renderRows(output *Output, rows []models.DisplayRow, app *App) {
	if output.IsJSON() {
		output.JSON(rows)
		return
	}

	if len(rows) == 0 {
		output.Info("Watchlist is empty. Add symbols to your watchlist to see recommendations.")
		return
	}

	table := NewTable(output, "SYMBOL", "COMPANY", "PRICE", "CHANGE", "ACTION", "CONFIDENCE")
	for _, row := range rows {
		table.AddRow(
			row.Entry.Symbol,
			row.Entry.CompanyName,
			formatPrice(row),
			formatChange(output, row),
			formatAction(output, row),
			formatConfidence(row),
		)
	}
	table.Render()

	if job := app.Generation.Job(); job.State != models.JobIdle {
		output.Println()
		output.Info("Generation job: %s", job.State)
	}
}

func newGenerateCmd(app *App) *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "generate [symbols...]",
		Short: "Generate fresh recommendations",
		Long: `Start a server-side recommendation generation job and poll it to
completion. Without arguments the job covers every watchlist symbol.
Only one job may run at a time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			symbols := args
			if len(symbols) == 0 {
				if err := app.Sync.Resync(ctx); err != nil {
					output.Error("Watchlist fetch failed: %v", err)
					return err
				}
				symbols = app.Rows.Symbols()
			}

			if err := app.Generation.Start(ctx, symbols); err != nil {
				output.Error("Could not start generation: %v", err)
				return err
			}
			output.Info("Generation started for %d symbols", len(symbols))

			if noWait {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-app.Generation.Done():
			}

			job := app.Generation.Job()
			switch job.LastOutcome {
			case models.JobCompleted:
				output.Success("Generation completed, dashboard updated")
			case models.JobFailed:
				output.Error("Generation failed: %s", job.ErrMessage)
				return fmt.Errorf("generation failed: %s", job.ErrMessage)
			case models.JobTimedOut:
				output.Warning("Generation timed out; the server job may still be running")
			default:
				output.Warning("Generation ended without a result")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "start the job without waiting for completion")
	return cmd
}

func newRefreshCmd(app *App) *cobra.Command {
	var (
		sortField string
		desc      bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh quotes for the current watchlist",
		Long: `Re-fetch real-time quotes for every watchlist row and render the
dashboard. Rows whose symbol returns no quote keep their previous price.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			// A fresh process has no rows yet; hydrate from the backend
			// before refreshing prices.
			if len(app.Rows.Symbols()) == 0 {
				if err := app.Sync.Resync(ctx); err != nil {
					output.Error("Watchlist sync failed: %v", err)
					return err
				}
			}

			if err := app.Refresh.Refresh(ctx); err != nil {
				output.Error("Refresh failed: %v", err)
				return err
			}

			renderRows(output, view.Order(app.Rows.Snapshot(), sortSpec(sortField, desc)), app)
			return nil
		},
	}

	cmd.Flags().StringVar(&sortField, "sort", "", "sort field: symbol or action")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync and generation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			job := app.Generation.Job()
			refreshing := app.Refresh.InProgress()

			if output.IsJSON() {
				payload := map[string]interface{}{
					"job":        job,
					"refreshing": refreshing,
				}
				if app.Store != nil {
					payload["freshness"] = freshnessReport(app)
				}
				return output.JSON(payload)
			}

			output.Bold("Generation")
			output.Printf("  State:        %s\n", job.State)
			if job.LastOutcome != "" {
				output.Printf("  Last outcome: %s\n", job.LastOutcome)
			}
			if job.ErrMessage != "" {
				output.Printf("  Error:        %s\n", job.ErrMessage)
			}
			output.Println()

			output.Bold("Quotes")
			output.Printf("  Refresh in progress: %v\n", refreshing)

			if app.Store != nil {
				output.Println()
				output.Bold("Cached data")
				for _, f := range freshnessReport(app) {
					output.Printf("  %s\n", store.FormatFreshness(f))
				}
			}
			return nil
		},
	}
}

func freshnessReport(app *App) []store.DataFreshness {
	thresholds := store.DefaultStaleThresholds()
	thresholds[store.SyncTypeRecommendations] = app.Config.Dashboard.RecommendationStaleMinutes

	report := make([]store.DataFreshness, 0, len(thresholds))
	for _, dataType := range []store.SyncDataType{store.SyncTypeWatchlist, store.SyncTypeRecommendations} {
		report = append(report, store.Freshness(app.Store, dataType, thresholds[dataType]))
	}
	return report
}
