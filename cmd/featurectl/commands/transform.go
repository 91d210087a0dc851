package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/spf13/cobra"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/features"
)

var (
	transformInput     string
	transformArtifacts string
	transformOutput    string
)

func init() {
	transformCmd.Flags().StringVar(&transformInput, "input", "", "Listings to transform (parquet, or .avro listing rows).")
	transformCmd.Flags().StringVar(&transformArtifacts, "artifacts", "artifacts.json", "Artifact store written by fit. Ignored with --remote.")
	transformCmd.Flags().StringVar(&transformOutput, "output", "", "Parquet file for the feature rows.")
	_ = transformCmd.MarkFlagRequired("input")
	_ = transformCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(transformCmd)
}

var transformCmd = &cobra.Command{
	Use:   "transform --input <listings.parquet|listings.avro> --output <features.parquet> [--artifacts <store.json>]",
	Short: "Applies fitted artifacts to new listings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		var out arrow.Record
		var err error
		if remoteConfigFile != "" {
			out, err = transformRemote(ctx, logger)
		} else {
			out, err = transformLocal(ctx, logger)
		}
		if err != nil {
			return err
		}
		defer out.Release()

		if err := arrowops.WriteRecordToParquetFile(ctx, out, transformOutput); err != nil {
			return err
		}
		logger.Info("transform complete",
			slog.Int64("rows", out.NumRows()),
			slog.Int64("width", out.NumCols()),
			slog.String("output", transformOutput),
		)
		return nil
	},
}

func transformLocal(ctx context.Context, logger *slog.Logger) (arrow.Record, error) {
	rec, err := readListings(ctx, memory.NewGoAllocator(), transformInput)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	cfg, err := loadPipelineConfig(logger)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(transformArtifacts)
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	store, err := features.NewArtifactStoreFromBytes(data)
	if err != nil {
		return nil, err
	}
	return newPipeline(logger).Transform(ctx, rec, cfg, store)
}

// transformRemote loads the published store before transforming.
func transformRemote(ctx context.Context, logger *slog.Logger) (arrow.Record, error) {
	wh, err := openWarehouse(ctx, logger)
	if err != nil {
		return nil, err
	}
	defer wh.Close()

	if _, err := wh.FeatureService().Load(ctx, nil); err != nil {
		return nil, err
	}

	if isAvroFile(transformInput) {
		rows, err := readListingRows(transformInput)
		if err != nil {
			return nil, err
		}
		return wh.FeatureService().TransformListings(ctx, rows)
	}

	rec, err := readListings(ctx, memory.NewGoAllocator(), transformInput)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return wh.FeatureService().Transform(ctx, rec)
}
