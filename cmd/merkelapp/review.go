package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/config"
	"github.com/eivindbakke/merkelapp/internal/tui"
)

func reviewCmd() *cobra.Command {
	var minScore float64

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Browse photos and scores in an interactive TUI",
		Long: `Open a full-screen browser over the photo library.

The list shows every photo with its score and labels; the detail pane shows
the reasoning behind the score and what the detector saw. Use it to spot
photos the detector got wrong, then fix them with 'merkelapp tag'.`,
		Example: `  # Browse everything
  merkelapp review

  # Only likely deliveries
  merkelapp review --min-score 0.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := store.Close(); closeErr != nil {
					slog.Error("Failed to close database", "error", closeErr)
				}
			}()

			// The TUI owns the terminal, so logs go to a file for the session
			if err := redirectLogsToFile(); err != nil {
				return err
			}

			cfg := tui.Config{Storage: store}
			if cmd.Flags().Changed("min-score") {
				cfg.MinScore = &minScore
			}

			if err := tui.Run(ctx, cfg); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("review failed: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Only show photos at or above this score")

	return cmd
}

// redirectLogsToFile routes all logging to a rotating file while the TUI is
// on screen. Without this, stray log lines corrupt the display.
func redirectLogsToFile() error {
	slogLevel, err := parseLogLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}

	path := viper.GetString("logging.file.path")
	if path == "" {
		path = filepath.Join(filepath.Dir(config.DatabasePath()), "merkelapp.log")
	} else {
		path = config.ExpandPath(path)
	}

	return common.SetupFileLogger(slogLevel, viper.GetString("logging.format"), common.LogFileOptions{
		Path:       path,
		MaxSizeMB:  viper.GetInt("logging.file.max_size_mb"),
		MaxBackups: viper.GetInt("logging.file.max_backups"),
		MaxAgeDays: viper.GetInt("logging.file.max_age_days"),
	})
}
