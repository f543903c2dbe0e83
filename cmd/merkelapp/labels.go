package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/ledger"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"
)

func labelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage the label vocabulary",
		Long: `List, add, and clean up labels.

The detector invents label names freely, so the table accumulates duplicates
and one-off junk over time. The merge, prune, and cleanup commands keep it
tidy; each takes an automatic checkpoint first so mistakes can be rolled back
with 'merkelapp checkpoint restore'.`,
	}

	cmd.AddCommand(listLabelsCmd())
	cmd.AddCommand(addLabelCmd())
	cmd.AddCommand(labelStatsCmd())
	cmd.AddCommand(labelDupesCmd())
	cmd.AddCommand(mergeLabelsCmd())
	cmd.AddCommand(pruneLabelsCmd())
	cmd.AddCommand(cleanupLabelsCmd())

	return cmd
}

func listLabelsCmd() *cobra.Command {
	var (
		filter     string
		unusedOnly bool
		sortBy     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List labels",
		Long:  `Display all labels with usage counts, optionally filtered by a regular expression.`,
		Example: `  # Everything, most used first
  merkelapp labels list

  # Labels the detector made up about mailboxes
  merkelapp labels list --filter 'postkasse'

  # Candidates for pruning
  merkelapp labels list --unused`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if sortBy != "usage" && sortBy != "name" {
				return fmt.Errorf("invalid sort order %q (want usage or name)", sortBy)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			labels, err := store.GetAllLabels(ctx)
			if err != nil {
				return fmt.Errorf("failed to get labels: %w", err)
			}

			filtered := make([]model.Label, 0, len(labels))
			for _, label := range labels {
				if unusedOnly && !label.IsUnused() {
					continue
				}
				if filter != "" {
					matched, matchErr := common.MatchRegex(filter, label.Name)
					if matchErr != nil {
						return fmt.Errorf("invalid filter: %w", matchErr)
					}
					if !matched {
						continue
					}
				}
				filtered = append(filtered, label)
			}

			if len(filtered) == 0 {
				fmt.Println(cli.InfoStyle.Render("No labels match."))
				return nil
			}

			switch sortBy {
			case "usage":
				sort.Slice(filtered, func(i, j int) bool {
					if filtered[i].UsageCount != filtered[j].UsageCount {
						return filtered[i].UsageCount > filtered[j].UsageCount
					}
					return filtered[i].Name < filtered[j].Name
				})
			case "name":
				sort.Slice(filtered, func(i, j int) bool {
					return filtered[i].Name < filtered[j].Name
				})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("NAME"),
				headerStyle.Render("CATEGORY"),
				headerStyle.Render("USAGE"),
				headerStyle.Render("PHOTOS"),
				headerStyle.Render("CREATED"))

			for _, label := range filtered {
				category := label.Category.DisplayName()
				if category == "" {
					category = cli.SubtleStyle.Render("-")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
					label.ID,
					label.Name,
					category,
					label.UsageCount,
					label.RefCount,
					formatRelativeTime(label.CreatedAt))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only labels whose name matches this regular expression")
	cmd.Flags().BoolVar(&unusedOnly, "unused", false, "Only labels no photo references")
	cmd.Flags().StringVar(&sortBy, "sort", "usage", "Sort order (usage, name)")

	return cmd
}

func addLabelCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a label to the vocabulary",
		Long: `Create a label without attaching it to a photo.

Useful for seeding the vocabulary before a manual tagging session. Known
postal label names get their category assigned automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

			labelCategory := model.LabelCategory(category)
			if category != "" && !labelCategory.Valid() {
				return fmt.Errorf("invalid category %q", category)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			normalized := model.NormalizeLabelName(name)
			existing, err := store.GetLabelsByName(ctx, normalized)
			if err != nil {
				return fmt.Errorf("failed to check existing label: %w", err)
			}
			if len(existing) > 0 {
				return fmt.Errorf("label %q already exists", normalized)
			}

			label, err := store.GetOrCreateLabel(ctx, name, labelCategory)
			if err != nil {
				return fmt.Errorf("failed to create label: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created label %s (#%d)", label.Name, label.ID)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Label category (postal, object, animal, ...)")

	return cmd
}

func labelStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show label table statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := ledger.New(store).Statistics(ctx)
			if err != nil {
				return fmt.Errorf("failed to get label statistics: %w", err)
			}

			content := fmt.Sprintf(`Total labels: %d
In use: %d
Unused: %d (%.1f%%)
Popular: %d (%.1f%%)`,
				stats.TotalLabels,
				stats.UsedLabels,
				stats.UnusedLabels, stats.UnusedPercent(),
				stats.PopularLabels, stats.PopularPercent())

			fmt.Println(cli.RenderBox("Label Statistics", content))

			if stats.UnusedLabels > 0 {
				fmt.Println(cli.FormatInfo("Remove unused labels with: merkelapp labels prune"))
			}

			return nil
		},
	}
}

func labelDupesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dupes",
		Short: "Show duplicate labels",
		Long:  `List groups of labels that normalize to the same name.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			groups, err := ledger.New(store).FindDuplicates(ctx)
			if err != nil {
				return fmt.Errorf("failed to find duplicates: %w", err)
			}

			if len(groups) == 0 {
				fmt.Println(cli.FormatSuccess("No duplicate labels found."))
				return nil
			}

			names := make([]string, 0, len(groups))
			for name := range groups {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Printf("%s %s\n", cli.LabelIcon, cli.BoldStyle.Render(name))
				for _, label := range groups[name] {
					fmt.Printf("  #%d  usage=%d  photos=%d  created %s\n",
						label.ID, label.UsageCount, label.RefCount, formatRelativeTime(label.CreatedAt))
				}
			}

			fmt.Println()
			fmt.Println(cli.FormatInfo("Combine each group with: merkelapp labels merge"))
			return nil
		},
	}
}

func mergeLabelsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge duplicate labels",
		Long: `Combine labels that normalize to the same name into one.

Photo links are repointed to the surviving label and usage counts are summed.
An automatic checkpoint is taken before anything changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if !confirmDestructive(force, "This will merge all duplicate labels.") {
				return nil
			}

			if err := takeAutoCheckpoint(ctx, store, "merge"); err != nil {
				return err
			}

			merged, err := ledger.New(store).MergeDuplicates(ctx)
			if err != nil {
				return fmt.Errorf("failed to merge duplicates: %w", err)
			}

			if merged == 0 {
				fmt.Println(cli.FormatSuccess("No duplicate labels to merge."))
				return nil
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Merged %d duplicate labels", merged)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func pruneLabelsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete unused labels",
		Long: `Remove labels that no photo references.

An automatic checkpoint is taken before anything changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if !confirmDestructive(force, "This will delete every label with no photo references.") {
				return nil
			}

			if err := takeAutoCheckpoint(ctx, store, "prune"); err != nil {
				return err
			}

			deleted, err := ledger.New(store).DeleteUnused(ctx)
			if err != nil {
				return fmt.Errorf("failed to prune labels: %w", err)
			}

			if deleted == 0 {
				fmt.Println(cli.FormatSuccess("No unused labels to delete."))
				return nil
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %d unused labels", deleted)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func cleanupLabelsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Merge duplicates, then delete unused labels",
		Long: `Run the full label cleanup: merge duplicates first, then prune what is
left unused. An automatic checkpoint is taken before anything changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if !confirmDestructive(force, "This will merge duplicate labels and delete unused ones.") {
				return nil
			}

			if err := takeAutoCheckpoint(ctx, store, "cleanup"); err != nil {
				return err
			}

			result, err := ledger.New(store).FullCleanup(ctx)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			content := fmt.Sprintf(`Merged: %d
Deleted: %d`,
				result.MergedLabels,
				result.DeletedLabels)

			fmt.Println(cli.RenderBox("Label Cleanup", content))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// confirmDestructive asks for a y/N confirmation unless force is set.
func confirmDestructive(force bool, message string) bool {
	if force {
		return true
	}

	fmt.Printf("%s %s\n", cli.WarningStyle.Render("⚠️"), message)
	fmt.Printf("\nContinue? (y/N) ")

	var response string
	fmt.Scanln(&response)
	if !strings.HasPrefix(strings.ToLower(response), "y") {
		fmt.Println(cli.SubtleStyle.Render("Cancelled."))
		return false
	}
	return true
}

// takeAutoCheckpoint snapshots the database before a destructive label
// operation so it can be rolled back with 'merkelapp checkpoint restore'.
func takeAutoCheckpoint(ctx context.Context, store service.Storage, prefix string) error {
	manager, err := openCheckpoints(store)
	if err != nil {
		return err
	}
	if err := manager.AutoCheckpoint(ctx, prefix); err != nil {
		return err
	}
	fmt.Println(cli.SubtleStyle.Render("Checkpoint saved."))
	return nil
}
