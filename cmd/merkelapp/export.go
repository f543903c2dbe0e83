package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eivindbakke/merkelapp/internal/cli"
	"github.com/eivindbakke/merkelapp/internal/export"
)

func exportCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "export <output-directory>",
		Short: "Export labeled photos as a YOLO training dataset",
		Long: `Write every labeled photo to a YOLO dataset layout.

Images are letterboxed to the training resolution and split 80/20 between
train and val. The output contains images/, labels/, a dataset.yaml for
training, and a manifest.json describing every exported photo.`,
		Example: `  merkelapp export ~/datasets/postal
  yolo train data=~/datasets/postal/dataset.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			outputDir := args[0]

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Println(cli.FormatTitle("Exporting training dataset"))

			exporter := export.New(store)
			exporter.Limit = limit
			summary, err := exporter.Run(ctx, outputDir)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if summary.Train+summary.Val == 0 {
				fmt.Println(cli.FormatWarning("No labeled photos to export. Run 'merkelapp analyze' first."))
				return nil
			}

			content := fmt.Sprintf(`Training images: %d
Validation images: %d
Skipped: %d

Dataset config: %s`,
				summary.Train,
				summary.Val,
				summary.Skipped,
				filepath.Join(outputDir, "dataset.yaml"))

			fmt.Println(cli.RenderBox("Export Summary", content))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "export at most this many photos (0 = all)")

	return cmd
}
