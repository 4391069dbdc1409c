// Package cli provides the command-line interface for the trading assistant.
package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradedesk/internal/api"
	"tradedesk/internal/config"
	"tradedesk/internal/dashboard"
	"tradedesk/internal/logging"
	"tradedesk/internal/quotes"
	"tradedesk/internal/store"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Client     api.Client
	Store      store.DataStore
	Rows       *dashboard.RowStore
	Sync       *dashboard.Synchronizer
	Refresh    *dashboard.RefreshCoordinator
	Generation *dashboard.GenerationController
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Client = api.NewHTTPClient(api.HTTPConfig{
		BaseURL:  cfg.API.BaseURL,
		APIToken: cfg.Credentials.APIToken,
		Timeout:  cfg.API.Timeout,
	}, logger)

	dbPath := filepath.Join(config.DefaultConfigDir(), "tradedesk.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize snapshot store, offline fallback unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", dbPath).Msg("Snapshot store initialized")
	}

	app.Rows = dashboard.NewRowStore()
	batcher := quotes.NewBatcher(app.Client, quotes.BatcherConfig{
		BatchSize: cfg.Dashboard.QuoteBatchSize,
		Pause:     cfg.Dashboard.QuoteBatchPause,
	}, logger)
	app.Sync = dashboard.NewSynchronizer(app.Client, batcher, app.Rows, app.Store, dashboard.SynchronizerConfig{
		UserID:                     cfg.Credentials.UserID,
		RecommendationLimit:        cfg.Dashboard.RecommendationLimit,
		RecommendationStaleMinutes: cfg.Dashboard.RecommendationStaleMinutes,
	}, logger)
	app.Refresh = dashboard.NewRefreshCoordinator(batcher, app.Rows, logger)
	app.Generation = dashboard.NewGenerationController(app.Client, app.Sync, dashboard.NewScheduler(), dashboard.GenerationConfig{
		PollInterval: cfg.Dashboard.PollInterval,
		Timeout:      cfg.Dashboard.GenerationTimeout,
	}, logger)

	rootCmd := &cobra.Command{
		Use:   "tradedesk",
		Short: "Tradedesk - AI trading-assistant dashboard CLI",
		Long: `Tradedesk keeps a watchlist dashboard of AI-generated stock
recommendations in sync with the remote trading-assistant backend:
recommendations, rate-limited real-time quotes, and server-side
recommendation generation jobs.

Use 'tradedesk help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradedesk)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newDashboardCmd(app))
	rootCmd.AddCommand(newRefreshCmd(app))
	rootCmd.AddCommand(newGenerateCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Tradedesk v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("API")
	output.Printf("  Base URL:        %s\n", cfg.API.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.API.Timeout)
	output.Println()

	output.Bold("Dashboard")
	output.Printf("  Quote Batch:     %d symbols\n", cfg.Dashboard.QuoteBatchSize)
	output.Printf("  Batch Pause:     %s\n", cfg.Dashboard.QuoteBatchPause)
	output.Printf("  Rec Limit:       %d\n", cfg.Dashboard.RecommendationLimit)
	output.Printf("  Poll Interval:   %s\n", cfg.Dashboard.PollInterval)
	output.Printf("  Gen Timeout:     %s\n", cfg.Dashboard.GenerationTimeout)
	output.Println()

	output.Bold("UI")
	output.Printf("  Color:           %v\n", cfg.UI.ColorEnabled)
	output.Printf("  Time Format:     %s\n", cfg.UI.TimeFormat)
}
