// Package main contains the merkelapp CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "merkelapp",
		Short: "📦 Photo labeling engine for package deliveries",
		Long: `merkelapp: A CLI tool that imports photos, detects postal objects with a
local vision model, and keeps every photo scored for package delivery evidence.

Import a directory, run the analysis, review the suggested labels, and export
a YOLO training dataset when the library is labeled.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/merkelapp/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also log to a size-rotated file")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.file.path", rootCmd.PersistentFlags().Lookup("log-file"))

	// Add commands
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(photosCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(untagCmd())
	rootCmd.AddCommand(labelsCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(checkpointCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/merkelapp", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("MERKELAPP")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Set up logging
	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setupLogging() error {
	level := viper.GetString("logging.level")
	format := viper.GetString("logging.format")

	slogLevel, err := parseLogLevel(level)
	if err != nil {
		return err
	}

	switch format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	var file *common.LogFileOptions
	if path := viper.GetString("logging.file.path"); path != "" {
		file = &common.LogFileOptions{
			Path:       config.ExpandPath(path),
			MaxSizeMB:  viper.GetInt("logging.file.max_size_mb"),
			MaxBackups: viper.GetInt("logging.file.max_backups"),
			MaxAgeDays: viper.GetInt("logging.file.max_age_days"),
		}
	}

	return common.SetupLogger(slogLevel, format, file)
}

func parseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			slog.Info("merkelapp version", "version", version)
		},
	}
}
