package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/config"
	"github.com/eivindbakke/merkelapp/internal/importer"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <directory>",
		Short: "Import photos from a directory",
		Long: `Import photos from a directory into the local database.

Each image gets a thumbnail and a photo record; files that were imported
before are skipped, so re-running on the same directory is safe.`,
		Example: `  # Import a camera dump
  merkelapp import ~/Pictures/doorbell

  # Include subdirectories and use WebP thumbnails
  merkelapp import --recursive --thumbnail-format webp ~/Pictures`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().Int("workers", 4, "Number of parallel import workers")
	cmd.Flags().Int("thumbnail-size", 256, "Thumbnail bounding box in pixels")
	cmd.Flags().String("thumbnail-format", "jpeg", "Thumbnail encoding (jpeg, webp)")

	// Bind to viper
	_ = viper.BindPFlag("import.workers", cmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("thumbnail.size", cmd.Flags().Lookup("thumbnail-size"))
	_ = viper.BindPFlag("thumbnail.format", cmd.Flags().Lookup("thumbnail-format"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]
	recursive, _ := cmd.Flags().GetBool("recursive")

	opts, err := config.LoadImportOptions()
	if err != nil {
		return err
	}
	opts.Recursive = recursive

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	fmt.Println(cli.FormatTitle("Importing photos"))

	// Total is unknown until the walk finishes, so run the bar in spinner mode
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Importing photos..."),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)

	var failures []importer.Result
	summary, err := importer.New(store, opts).Run(ctx, dir, func(res importer.Result) {
		_ = bar.Add(1)
		if res.Err != nil {
			failures = append(failures, res)
		}
	})
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	for _, res := range failures {
		fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", res.Path, res.Err)))
	}

	content := fmt.Sprintf(`Files scanned: %d
Imported: %d
Already known: %d
Failed: %d
Time taken: %s`,
		summary.Scanned,
		summary.Imported,
		summary.Skipped,
		summary.Failed,
		summary.Elapsed.Round(time.Millisecond))

	fmt.Println(cli.RenderBox("Import Summary", content))

	if summary.Imported > 0 {
		fmt.Println(cli.FormatInfo("Run 'merkelapp analyze' to detect postal objects in the new photos."))
	}

	return nil
}
