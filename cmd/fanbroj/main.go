package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/codeabdala/fanbroj-cli/internal/api"
	"github.com/codeabdala/fanbroj-cli/internal/config"
	"github.com/codeabdala/fanbroj-cli/internal/database"
	"github.com/codeabdala/fanbroj-cli/internal/device"
	"github.com/codeabdala/fanbroj-cli/internal/entitlement"
	"github.com/codeabdala/fanbroj-cli/internal/tui"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
	// Global flags
	cfgFile   string
	logLevel  string
	debugMode bool

	// Global config, logger and database
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fanbroj",
	Short: "Terminal client for the Fanbroj streaming platform",
	Long: `fanbroj is a terminal client for the Fanbroj streaming platform
(movies, series and live sports in Somali).

It shows your premium status and runs the quick-checkout flow from the
terminal: EVC Plus / Zaad and card payments via a hosted checkout page
with automatic confirmation, M-Pesa and PayPal via manual transaction
submission.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for config init
		if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		var v *viper.Viper
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode {
			cfg.Advanced.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		db, err = database.Open(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open local database: %w", err)
		}

		// Hot reload keeps long-lived sessions in sync with config edits.
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			logger.Info("config file changed", "name", e.Name)
			if err := v.Unmarshal(cfg); err != nil {
				logger.Error("failed to reload config", "error", err)
			}
		})

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := database.Close(db); err != nil && logger != nil {
			logger.Error("failed to close database", "error", err)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("fanbroj starting...", "version", version)

		ident, err := device.Load(db)
		if err != nil {
			return fmt.Errorf("failed to load device identity: %w", err)
		}

		client := api.NewClient(cfg, logger)
		return tui.Start(cfg, logger, db, client, ident)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = filepath.Join(config.ConfigDir(), "config.yaml")
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show premium subscription status for this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := device.Load(db)
		if err != nil {
			return fmt.Errorf("failed to load device identity: %w", err)
		}

		client := api.NewClient(cfg, logger)
		svc := entitlement.NewService(client, db, ident.ID(), logger)

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		status, err := svc.Refresh(ctx)
		if err != nil {
			// Fall back to the cached record when offline.
			status = svc.Current()
			if !status.Stale {
				return fmt.Errorf("failed to fetch subscription: %w", err)
			}
			fmt.Println("(offline — showing cached status)")
		}

		fmt.Printf("Device:  %s\n", ident.ID())
		if status.Active {
			fmt.Printf("Premium: active (%s)\n", status.Plan)
			if !status.ExpiresAt.IsZero() {
				fmt.Printf("Expires: %s (%s)\n",
					status.ExpiresAt.Format(time.RFC1123),
					humanize.Time(status.ExpiresAt))
			}
		} else {
			fmt.Println("Premium: not active")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/fanbroj/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
}
