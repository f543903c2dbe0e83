package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/config"
	"github.com/eivindbakke/merkelapp/internal/detect"
	"github.com/eivindbakke/merkelapp/internal/engine"
	"github.com/eivindbakke/merkelapp/internal/ledger"
	"github.com/eivindbakke/merkelapp/internal/service"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect postal objects in imported photos",
		Long: `Run the vision model over unanalyzed photos and label them.

Each photo is sent to Ollama for object detection. In the default interactive
mode you review the suggested labels per photo; with --auto every suggestion
above the confidence floor is applied without review. Skipped photos stay
queued for the next run.`,
		Example: `  # Review unanalyzed photos interactively
  merkelapp analyze

  # Label everything the detector finds, no questions asked
  merkelapp analyze --auto

  # Re-run the detector over the whole library with a different model
  merkelapp analyze --all --model llava:34b`,
		RunE: runAnalyze,
	}

	cmd.Flags().Bool("all", false, "Reanalyze photos that were already analyzed")
	cmd.Flags().Bool("auto", false, "Apply suggested labels without interactive review")
	cmd.Flags().IntP("batch-size", "b", 20, "Maximum photos to analyze in one run")
	cmd.Flags().Float64("min-confidence", 0.5, "Drop detections below this confidence")
	cmd.Flags().StringP("model", "m", "", "Ollama model to use (default from config)")

	// Bind to viper
	_ = viper.BindPFlag("analysis.auto", cmd.Flags().Lookup("auto"))
	_ = viper.BindPFlag("analysis.batch_size", cmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("analysis.min_confidence", cmd.Flags().Lookup("min-confidence"))
	_ = viper.BindPFlag("ollama.model", cmd.Flags().Lookup("model"))

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	reanalyze, _ := cmd.Flags().GetBool("all")

	detectorCfg, err := config.LoadDetectorConfig()
	if err != nil {
		return err
	}
	detector, err := detect.NewOllamaDetector(detectorCfg)
	if err != nil {
		return fmt.Errorf("failed to create detector: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	engineCfg := engine.Config{
		BatchSize:     viper.GetInt("analysis.batch_size"),
		MinConfidence: viper.GetFloat64("analysis.min_confidence"),
		AutoApply:     viper.GetBool("analysis.auto"),
		Reanalyze:     reanalyze,
	}

	// Size the progress bar with the same filter the engine will use
	filter := service.PhotoFilter{Limit: engineCfg.BatchSize}
	if !engineCfg.Reanalyze {
		analyzed := false
		filter.Analyzed = &analyzed
	}
	pending, err := store.GetPhotos(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list photos: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println(cli.FormatInfo("Nothing to analyze. Import photos first with: merkelapp import <directory>"))
		return nil
	}

	prompter := cli.NewCLIPrompter(nil, nil)
	if !engineCfg.AutoApply {
		prompter.SetTotalPhotos(len(pending))
	}

	interrupt := cli.NewInterruptHandler(nil)
	ctx = interrupt.HandleInterrupts(ctx, !engineCfg.AutoApply)

	slog.Info("Starting photo analysis",
		"model", detectorCfg.Model,
		"photos", len(pending),
		"auto", engineCfg.AutoApply)

	eng := engine.NewWithConfig(store, ledger.New(store), detector, prompter, engineCfg)
	stats, err := eng.AnalyzePhotos(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The interrupt handler already told the user how to resume
			return nil
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	prompter.ShowCompletion(stats)

	if stats.Analyzed > 0 {
		fmt.Println(cli.FormatInfo("Browse the results with: merkelapp review"))
	}

	return nil
}
