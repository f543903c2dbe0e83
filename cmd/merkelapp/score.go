package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eivindbakke/merkelapp/internal/classify"
	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/ledger"
)

func scoreCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "score [photo]",
		Short: "Show or recompute delivery scores",
		Long: `Show the delivery score for a photo, or recompute scores from the
current labels.

Scores normally update automatically when labels change; --all forces a full
recomputation, which is useful after restoring a checkpoint or editing the
database by hand.`,
		Example: `  # Score for one photo, computed on the fly if missing
  merkelapp score photo-42

  # Recompute every photo from its labels
  merkelapp score --all

  # Library-wide score distribution
  merkelapp score summary`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if all && len(args) > 0 {
				return fmt.Errorf("--all does not take a photo id")
			}
			if !all && len(args) == 0 {
				return fmt.Errorf("provide a photo id or --all")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			labels := ledger.New(store)

			if all {
				count, rescoreErr := labels.RescoreAll(ctx)
				if rescoreErr != nil {
					return fmt.Errorf("failed to rescore photos: %w", rescoreErr)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rescored %d photos", count)))
				return nil
			}

			photo, err := resolvePhoto(ctx, store, args[0])
			if err != nil {
				return err
			}
			photoID := photo.ID

			result, err := store.GetClassification(ctx, photoID)
			if errors.Is(err, common.ErrNotFound) {
				result, err = labels.Rescore(ctx, photoID)
			}
			if err != nil {
				return fmt.Errorf("failed to score photo: %w", err)
			}

			contributing := "(none)"
			if len(result.Labels) > 0 {
				contributing = strings.Join(result.Labels, ", ")
			}

			content := fmt.Sprintf(`Score: %s (%d%%)
Confidence: %s
Assessment: %s
Labels: %s
Reasoning: %s`,
				cli.FormatScore(result.Score),
				classify.Percent(result.Score),
				classify.ConfidenceLevel(result.Score),
				classify.RiskLevel(result.Score),
				contributing,
				result.Reasoning)

			fmt.Println(cli.RenderBox(fmt.Sprintf("Score for %s", photoID), content))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Recompute scores for every photo")

	cmd.AddCommand(scoreSummaryCmd())

	return cmd
}

func scoreSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the score distribution across the library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := ledger.New(store).Summary(ctx)
			if err != nil {
				return fmt.Errorf("failed to summarize scores: %w", err)
			}

			if summary.TotalScored == 0 {
				fmt.Println(cli.InfoStyle.Render("No scored photos yet. Run 'merkelapp analyze' first."))
				return nil
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "Scored photos: %d\n", summary.TotalScored)
			fmt.Fprintf(&sb, "Confirmed deliveries: %d\n", summary.Confirmed)
			fmt.Fprintf(&sb, "Average score: %.2f\n\n", summary.AverageScore)

			levels := []string{"Very High", "High", "Medium", "Low", "Very Low", "Minimal", "None"}
			for _, level := range levels {
				count := summary.ByConfidence[level]
				if count == 0 {
					continue
				}
				fmt.Fprintf(&sb, "%-10s %d\n", level, count)
			}

			fmt.Println(cli.RenderBox("Score Summary", strings.TrimRight(sb.String(), "\n")))
			return nil
		},
	}
}
