package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eivindbakke/merkelapp/internal/classify"
	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/ledger"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

func tagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <photo> <label> [label...]",
		Short: "Add labels to a photo by hand",
		Long: `Attach one or more labels to a photo and rescore it.

Labels added this way are recorded as manual, which counts as user
confirmation in the analysis statistics.`,
		Example: `  # One label
  merkelapp tag photo-42 pakke

  # Several at once; quote labels that contain spaces
  merkelapp tag photo-42 pakke postkasse "pakke i postkasse"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names := args[1:]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			photo, err := resolvePhoto(ctx, store, args[0])
			if err != nil {
				return err
			}
			photoID := photo.ID

			labels := ledger.New(store)
			for _, name := range names {
				label, addErr := labels.AddLabel(ctx, photoID, name, model.SourceManual)
				if addErr != nil {
					return fmt.Errorf("failed to add label %q: %w", name, addErr)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added %s to %s", label.Name, photoID)))
			}

			printScore(ctx, store, photoID)
			return nil
		},
	}
}

func untagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untag <photo> <label> [label...]",
		Short: "Remove labels from a photo",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names := args[1:]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			photo, err := resolvePhoto(ctx, store, args[0])
			if err != nil {
				return err
			}
			photoID := photo.ID

			labels := ledger.New(store)
			for _, name := range names {
				if err := labels.RemoveLabel(ctx, photoID, name); err != nil {
					if errors.Is(err, common.ErrNotFound) {
						return fmt.Errorf("photo %q has no label %q", photoID, name)
					}
					return fmt.Errorf("failed to remove label %q: %w", name, err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %s from %s", name, photoID)))
			}

			printScore(ctx, store, photoID)
			return nil
		},
	}
}

// printScore shows the photo's score after a label change. Scoring problems
// are logged rather than failing the command; the label change already stuck.
func printScore(ctx context.Context, store service.Storage, photoID string) {
	result, err := store.GetClassification(ctx, photoID)
	if err != nil {
		slog.Warn("Failed to read updated score", "photo", photoID, "error", err)
		return
	}
	fmt.Printf("Score is now %s (%s)\n", cli.FormatScore(result.Score), classify.ConfidenceLevel(result.Score))
}
