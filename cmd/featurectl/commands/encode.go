package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/spf13/cobra"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/elements"
	"github.com/alekLukanen/StrollerPricer/operations"
)

var (
	encodeInput  string
	encodeOutput string
)

func init() {
	encodeCmd.Flags().StringVar(&encodeInput, "input", "", "Listings (parquet).")
	encodeCmd.Flags().StringVar(&encodeOutput, "output", "", "Avro container file of listing rows.")
	_ = encodeCmd.MarkFlagRequired("input")
	_ = encodeCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(encodeCmd)
}

var encodeCmd = &cobra.Command{
	Use:   "encode --input <listings.parquet> --output <listings.avro>",
	Short: "Writes parquet listings as the avro rows the scraper produces.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		rec, err := arrowops.ReadParquetFile(ctx, memory.NewGoAllocator(), encodeInput)
		if err != nil {
			return errs.Wrap(err, fmt.Errorf("failed to read %s", encodeInput))
		}
		defer rec.Release()

		if err := elements.ListingsTable().ValidateRecord(rec); err != nil {
			return errs.NewStackError(err)
		}
		listings, err := arrowops.TakeColumns(rec, elements.ListingsTable().ColumnNames())
		if err != nil {
			return err
		}
		defer listings.Release()

		rows, err := operations.ArrowToAvro(listings)
		if err != nil {
			return err
		}

		f, err := os.Create(encodeOutput)
		if err != nil {
			return errs.NewStackError(err)
		}
		defer f.Close()
		if err := operations.WriteListingRows(f, listings.Schema(), rows); err != nil {
			return err
		}

		logger.Info("encode complete",
			slog.Int("rows", len(rows)),
			slog.String("output", encodeOutput),
		)
		return nil
	},
}
