package operations

import (
	"fmt"
	"io"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/linkedin/goavro/v2"

	"github.com/alekLukanen/StrollerPricer/elements"
)

// WriteListingRows writes rows encoded by ArrowToAvro against schema as an
// avro object container file.
func WriteListingRows(w io.Writer, schema *arrow.Schema, rows [][]byte) error {
	codec, err := ArrowToAvroSchema(schema)
	if err != nil {
		return err
	}

	natives := make([]interface{}, 0, len(rows))
	for rowIdx, row := range rows {
		native, _, err := codec.NativeFromBinary(row)
		if err != nil {
			return errs.NewStackError(fmt.Errorf("%w| row %d: %v", ErrAvroRowInvalid, rowIdx, err))
		}
		natives = append(natives, native)
	}

	ocfWriter, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Codec: codec})
	if err != nil {
		return errs.NewStackError(err)
	}
	if len(natives) == 0 {
		return nil
	}
	if err := ocfWriter.Append(natives); err != nil {
		return errs.NewStackError(err)
	}
	return nil
}

// ReadListingRows reads an object container file and re-encodes each row
// against the table so it can be passed to AvroToArrow. Rows written with a
// different schema fail with ErrAvroRowInvalid.
func ReadListingRows(r io.Reader, table *elements.Table) ([][]byte, error) {
	codec, err := ArrowToAvroSchema(table.ArrowSchema())
	if err != nil {
		return nil, err
	}

	ocfReader, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| %v", ErrAvroRowInvalid, err))
	}

	rows := make([][]byte, 0)
	for ocfReader.Scan() {
		native, err := ocfReader.Read()
		if err != nil {
			return nil, errs.NewStackError(fmt.Errorf("%w| row %d: %v", ErrAvroRowInvalid, len(rows), err))
		}
		row, err := codec.BinaryFromNative(nil, native)
		if err != nil {
			return nil, errs.NewStackError(fmt.Errorf("%w| row %d: %v", ErrAvroRowInvalid, len(rows), err))
		}
		rows = append(rows, row)
	}
	if err := ocfReader.Err(); err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| %v", ErrAvroRowInvalid, err))
	}
	return rows, nil
}
