package arrowops

import (
	"fmt"

	"github.com/alekLukanen/errs"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// TakeColumns projects rec onto columnNames in the given order. Every name
// must exist.
func TakeColumns(rec arrow.Record, columnNames []string) (arrow.Record, error) {
	selectedCols := make([]arrow.Array, 0, len(columnNames))
	selectedFields := make([]arrow.Field, 0, len(columnNames))

	for _, colName := range columnNames {
		colIndex := rec.Schema().FieldIndices(colName)
		if len(colIndex) == 0 {
			return nil, errs.NewStackError(fmt.Errorf("%w| column name: %s", ErrColumnNotFound, colName))
		}
		for _, colIndex := range colIndex {
			selectedCols = append(selectedCols, rec.Column(colIndex))
			selectedFields = append(selectedFields, rec.Schema().Field(colIndex))
		}
	}

	newSchema := arrow.NewSchema(selectedFields, nil)
	newRecord := array.NewRecord(newSchema, selectedCols, rec.NumRows())

	return newRecord, nil
}

// ProjectColumns is the lenient form of TakeColumns: names missing from rec
// are returned as skipped instead of failing.
func ProjectColumns(rec arrow.Record, columnNames []string) (arrow.Record, []string) {
	present := make([]string, 0, len(columnNames))
	skipped := make([]string, 0)
	for _, colName := range columnNames {
		if rec.Schema().HasField(colName) {
			present = append(present, colName)
		} else {
			skipped = append(skipped, colName)
		}
	}

	// every name in present exists so this cannot fail
	newRecord, _ := TakeColumns(rec, present)
	return newRecord, skipped
}
