package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/spf13/cobra"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/storage"
)

var (
	fitInput     string
	fitArtifacts string
	fitOutput    string
)

func init() {
	fitCmd.Flags().StringVar(&fitInput, "input", "", "Training listings (parquet, or .avro listing rows).")
	fitCmd.Flags().StringVar(&fitArtifacts, "artifacts", "artifacts.json", "Where to write the artifact store. Ignored with --remote.")
	fitCmd.Flags().StringVar(&fitOutput, "output", "", "Optional parquet file for the fitted feature rows.")
	_ = fitCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(fitCmd)
}

var fitCmd = &cobra.Command{
	Use:   "fit --input <listings.parquet|listings.avro> [--artifacts <store.json>] [--output <features.parquet>]",
	Short: "Fits the pipeline and stores its artifacts locally or in remote storage.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		if remoteConfigFile != "" {
			return fitRemote(ctx, logger)
		}

		rec, err := readListings(ctx, memory.NewGoAllocator(), fitInput)
		if err != nil {
			return err
		}
		defer rec.Release()

		cfg, err := loadPipelineConfig(logger)
		if err != nil {
			return err
		}
		out, store, err := newPipeline(logger).Fit(ctx, rec, cfg)
		if err != nil {
			return err
		}
		defer out.Release()

		data, err := store.ToBytes()
		if err != nil {
			return err
		}
		if err := os.WriteFile(fitArtifacts, data, 0o644); err != nil {
			return errs.NewStackError(err)
		}
		if fitOutput != "" {
			if err := arrowops.WriteRecordToParquetFile(ctx, out, fitOutput); err != nil {
				return err
			}
		}

		logger.Info("fit complete",
			slog.Int64("rowsIn", rec.NumRows()),
			slog.Int64("rowsOut", out.NumRows()),
			slog.Int("outputWidth", store.OutputWidth()),
			slog.String("artifacts", fitArtifacts),
		)
		return nil
	},
}

// fitRemote fits through the feature service so the store is versioned and
// published for every process following the pipeline.
func fitRemote(ctx context.Context, logger *slog.Logger) error {
	wh, err := openWarehouse(ctx, logger)
	if err != nil {
		return err
	}
	defer wh.Close()

	var manifest *storage.ArtifactManifest
	if isAvroFile(fitInput) {
		rows, err := readListingRows(fitInput)
		if err != nil {
			return err
		}
		manifest, err = wh.FeatureService().FitListings(ctx, rows)
		if err != nil {
			return err
		}
	} else {
		rec, err := readListings(ctx, memory.NewGoAllocator(), fitInput)
		if err != nil {
			return err
		}
		defer rec.Release()
		manifest, err = wh.FeatureService().Fit(ctx, rec)
		if err != nil {
			return err
		}
	}

	logger.Info("fit persisted",
		slog.Int("version", manifest.Version),
		slog.String("storeKey", manifest.StoreKey),
	)
	return nil
}
