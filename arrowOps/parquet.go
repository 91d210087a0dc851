package arrowops

import (
	"context"
	"io"
	"os"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	parquetFileUtils "github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
)

func WriteRecordToParquet(ctx context.Context, record arrow.Record, w io.Writer) error {
	parquetWriteProps := parquet.NewWriterProperties(parquet.WithStats(true))
	arrowWriteProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
	parquetFileWriter, err := pqarrow.NewFileWriter(record.Schema(), w, parquetWriteProps, arrowWriteProps)
	if err != nil {
		return errs.NewStackError(err)
	}

	err = parquetFileWriter.Write(record)
	if err != nil {
		parquetFileWriter.Close()
		return errs.NewStackError(err)
	}
	if err := parquetFileWriter.Close(); err != nil {
		return errs.NewStackError(err)
	}
	return nil
}

func WriteRecordToParquetFile(ctx context.Context, record arrow.Record, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errs.NewStackError(err)
	}
	defer file.Close()

	return WriteRecordToParquet(ctx, record, file)
}

// ReadParquet reads every row group of the file into a single record.
func ReadParquet(ctx context.Context, mem memory.Allocator, r parquet.ReaderAtSeeker) (arrow.Record, error) {
	parquetFileReader, err := parquetFileUtils.NewParquetReader(r)
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	defer parquetFileReader.Close()

	parquetReadProps := pqarrow.ArrowReadProperties{
		Parallel:  true,
		BatchSize: 1 << 16,
	}
	arrowFileReader, err := pqarrow.NewFileReader(parquetFileReader, parquetReadProps, mem)
	if err != nil {
		return nil, errs.NewStackError(err)
	}

	recordReader, err := arrowFileReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	defer recordReader.Release()

	records := make([]arrow.Record, 0)
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()
	for recordReader.Next() {
		rec := recordReader.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := recordReader.Err(); err != nil && err != io.EOF {
		return nil, errs.NewStackError(err)
	}

	if len(records) == 0 {
		rb := array.NewRecordBuilder(mem, recordReader.Schema())
		defer rb.Release()
		return rb.NewRecord(), nil
	}
	return ConcatenateRecords(mem, records...)
}

func ReadParquetFile(ctx context.Context, mem memory.Allocator, filePath string) (arrow.Record, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	defer file.Close()

	return ReadParquet(ctx, mem, file)
}
