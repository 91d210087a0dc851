package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/spf13/cobra"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/configutil"
	"github.com/alekLukanen/StrollerPricer/elements"
	"github.com/alekLukanen/StrollerPricer/features"
	"github.com/alekLukanen/StrollerPricer/operations"
	"github.com/alekLukanen/StrollerPricer/warehouse"
)

var (
	pipelineConfigFile string
	remoteConfigFile   string
	logLevel           string
)

var rootCmd = &cobra.Command{
	Use:           "featurectl",
	Short:         "featurectl fits and applies the listing feature pipeline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&pipelineConfigFile, "config", "", "Pipeline config (json5). The built-in listing config is used when empty.")
	rootCmd.PersistentFlags().StringVar(&remoteConfigFile, "remote", "", "Service config (json5) for object and key storage. Enables remote mode.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "One of debug, info, warn, error.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errs.ErrorWithStack(err))
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadPipelineConfig(logger *slog.Logger) (features.Config, error) {
	if pipelineConfigFile == "" {
		return features.DefaultConfig(), nil
	}
	return configutil.ReadPipelineConfig(logger, pipelineConfigFile)
}

// openWarehouse builds the remote stack. The pipeline config named in the
// service config is used unless --config overrides it.
func openWarehouse(ctx context.Context, logger *slog.Logger) (*warehouse.Warehouse, error) {
	options, err := configutil.ReadConfig[warehouse.Options](logger, remoteConfigFile)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed to read service config %s", remoteConfigFile))
	}
	if pipelineConfigFile == "" && options.PipelineConfigFile != "" {
		pipelineConfigFile = options.PipelineConfigFile
	}
	cfg, err := loadPipelineConfig(logger)
	if err != nil {
		return nil, err
	}
	return warehouse.NewWarehouse(ctx, logger, options, cfg)
}

func newPipeline(logger *slog.Logger) *features.Pipeline {
	return features.NewPipeline(logger, memory.NewGoAllocator())
}

// isAvroFile reports whether path names an avro container file of scraped
// listing rows. Anything else is read as parquet.
func isAvroFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".avro")
}

func readListingRows(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	defer f.Close()
	rows, err := operations.ReadListingRows(f, elements.ListingsTable())
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed to read %s", path))
	}
	return rows, nil
}

func readListings(ctx context.Context, mem memory.Allocator, path string) (arrow.Record, error) {
	if isAvroFile(path) {
		rows, err := readListingRows(path)
		if err != nil {
			return nil, err
		}
		return operations.AvroToArrow(mem, elements.ListingsTable(), rows)
	}
	rec, err := arrowops.ReadParquetFile(ctx, mem, path)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed to read %s", path))
	}
	return rec, nil
}
