package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eivindbakke/merkelapp/internal/classify"
	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/ledger"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

func photosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Browse and manage imported photos",
		Long:  `List photos, inspect a single photo, or remove photos from the library.`,
	}

	cmd.AddCommand(listPhotosCmd())
	cmd.AddCommand(showPhotoCmd())
	cmd.AddCommand(deletePhotoCmd())

	return cmd
}

func listPhotosCmd() *cobra.Command {
	var (
		pendingOnly  bool
		analyzedOnly bool
		minScore     float64
		limit        int
		offset       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos",
		Long:  `Display photos with their labels and delivery scores, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if pendingOnly && analyzedOnly {
				return fmt.Errorf("--pending and --analyzed are mutually exclusive")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			filter := service.PhotoFilter{Limit: limit, Offset: offset}
			if pendingOnly {
				analyzed := false
				filter.Analyzed = &analyzed
			}
			if analyzedOnly {
				analyzed := true
				filter.Analyzed = &analyzed
			}
			if cmd.Flags().Changed("min-score") {
				filter.MinScore = &minScore
			}

			photos, err := store.GetPhotos(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list photos: %w", err)
			}

			if len(photos) == 0 {
				fmt.Println(cli.InfoStyle.Render("No photos found. Use 'merkelapp import' to add some."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("FILE"),
				headerStyle.Render("TAKEN"),
				headerStyle.Render("SCORE"),
				headerStyle.Render("LABELS"))

			for i := range photos {
				photo := &photos[i]

				score := "-"
				if result, resErr := store.GetClassification(ctx, photo.ID); resErr == nil {
					score = cli.FormatScore(result.Score)
				} else if !errors.Is(resErr, common.ErrNotFound) {
					return fmt.Errorf("failed to get classification for %s: %w", photo.ID, resErr)
				}

				labels, labelErr := store.GetPhotoLabels(ctx, photo.ID)
				if labelErr != nil {
					return fmt.Errorf("failed to get labels for %s: %w", photo.ID, labelErr)
				}
				names := make([]string, 0, len(labels))
				for _, label := range labels {
					names = append(names, label.Name)
				}
				labelCol := strings.Join(names, ", ")
				if labelCol == "" {
					if photo.Analyzed {
						labelCol = cli.SubtleStyle.Render("(no labels)")
					} else {
						labelCol = cli.SubtleStyle.Render("(pending analysis)")
					}
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					photo.ID,
					filepath.Base(photo.AssetID),
					formatRelativeTime(photo.CreatedAt),
					score,
					labelCol)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only photos that have not been analyzed")
	cmd.Flags().BoolVar(&analyzedOnly, "analyzed", false, "Only photos that have been analyzed")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Only photos scored at or above this value")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum photos to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many photos")

	return cmd
}

func showPhotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <photo>",
		Short: "Show full details for one photo",
		Long:  `Display a photo's labels, score, and raw detection. Photos can be addressed by library ID or by the imported file path.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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

			labels, err := store.GetPhotoLabels(ctx, photoID)
			if err != nil {
				return fmt.Errorf("failed to get labels: %w", err)
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "File: %s\n", filepath.Base(photo.AssetID))
			fmt.Fprintf(&sb, "Path: %s\n", photo.AssetID)
			fmt.Fprintf(&sb, "Taken: %s\n", photo.CreatedAt.Format("Jan 2, 2006 15:04"))
			if photo.Analyzed {
				fmt.Fprintf(&sb, "Analyzed: %s\n", photo.AnalyzedAt.Format("Jan 2, 2006 15:04"))
			} else {
				fmt.Fprintf(&sb, "Analyzed: %s\n", cli.SubtleStyle.Render("not yet"))
			}
			if len(photo.Thumbnail) > 0 {
				fmt.Fprintf(&sb, "Thumbnail: %s\n", formatFileSize(int64(len(photo.Thumbnail))))
			}

			sb.WriteString("\nLabels:\n")
			if len(labels) == 0 {
				fmt.Fprintf(&sb, "  %s\n", cli.SubtleStyle.Render("(none)"))
			}
			for _, label := range labels {
				fmt.Fprintf(&sb, "  %s %s %s\n",
					cli.LabelIcon, label.Name,
					cli.SubtleStyle.Render(fmt.Sprintf("(%s)", label.Source)))
			}

			result, err := store.GetClassification(ctx, photoID)
			switch {
			case err == nil:
				fmt.Fprintf(&sb, "\nScore: %s (%d%%)\n", cli.FormatScore(result.Score), classify.Percent(result.Score))
				fmt.Fprintf(&sb, "Confidence: %s\n", classify.ConfidenceLevel(result.Score))
				fmt.Fprintf(&sb, "Assessment: %s\n", classify.RiskLevel(result.Score))
				fmt.Fprintf(&sb, "Reasoning: %s\n", result.Reasoning)
			case errors.Is(err, common.ErrNotFound):
				fmt.Fprintf(&sb, "\nScore: %s\n", cli.SubtleStyle.Render("not scored yet"))
			default:
				return fmt.Errorf("failed to get classification: %w", err)
			}

			if len(photo.Analysis) > 0 {
				var detection model.DetectionResult
				if jsonErr := json.Unmarshal(photo.Analysis, &detection); jsonErr == nil {
					fmt.Fprintf(&sb, "\nDetected objects (%s):\n", detection.Model)
					if len(detection.Objects) == 0 {
						fmt.Fprintf(&sb, "  %s\n", cli.SubtleStyle.Render("(none)"))
					}
					for _, obj := range detection.Objects {
						fmt.Fprintf(&sb, "  %s %s (%.0f%%)\n", cli.RobotIcon, obj.Name, obj.Confidence*100)
					}
				}
			}

			fmt.Println(cli.RenderBox(fmt.Sprintf("Photo %s", photoID), strings.TrimRight(sb.String(), "\n")))
			return nil
		},
	}
}

func deletePhotoCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <photo>",
		Short: "Delete a photo",
		Long:  `Remove a photo, its labels, and its classification from the library.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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

			if !force {
				fmt.Printf("%s This will permanently delete %s and its labels.\n",
					cli.WarningStyle.Render("⚠️"),
					cli.InfoStyle.Render(filepath.Base(photo.AssetID)))
				fmt.Printf("\nContinue? (y/N) ")

				var response string
				fmt.Scanln(&response)
				if !strings.HasPrefix(strings.ToLower(response), "y") {
					fmt.Println(cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			if err := ledger.New(store).DeletePhoto(ctx, photoID); err != nil {
				return fmt.Errorf("failed to delete photo: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted photo %s", photoID)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
