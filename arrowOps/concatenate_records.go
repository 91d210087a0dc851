package arrowops

import (
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// ConcatenateRecords stacks records with identical schemas into one record.
func ConcatenateRecords(mem memory.Allocator, records ...arrow.Record) (arrow.Record, error) {
	for _, record := range records {
		record.Retain()
	}
	defer func() {
		for _, record := range records {
			record.Release()
		}
	}()
	// validate the records
	if len(records) == 0 {
		return nil, errs.NewStackError(ErrNoDataLeft)
	}
	schema := records[0].Schema()
	for _, record := range records {
		if !RecordSchemasEqual(records[0], record) {
			return nil, errs.NewStackError(fmt.Errorf("%w| %s != %s", ErrSchemasNotEqual, schema, record.Schema()))
		}
	}

	// group all of the columns from each record together
	// so that we can concatenate them together
	fields := make([][]arrow.Array, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		fields[i] = make([]arrow.Array, len(records))
	}
	for recordIdx, record := range records {
		for i := 0; i < schema.NumFields(); i++ {
			fields[i][recordIdx] = record.Column(i)
		}
	}

	// concatenate the columns of the same index together
	concatenatedFields := make([]arrow.Array, 0, schema.NumFields())
	defer func() {
		for _, arr := range concatenatedFields {
			arr.Release()
		}
	}()
	for i := 0; i < schema.NumFields(); i++ {
		concatenatedField, err := array.Concatenate(fields[i], mem)
		if err != nil {
			return nil, errs.NewStackError(err)
		}
		concatenatedFields = append(concatenatedFields, concatenatedField)
	}

	var numRows int64
	for _, record := range records {
		numRows += record.NumRows()
	}
	return array.NewRecord(schema, concatenatedFields, numRows), nil
}
