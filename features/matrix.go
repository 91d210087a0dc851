package features

import (
	"github.com/apache/arrow/go/v17/arrow"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

// FeatureMatrix converts a transformed record into row-major float64
// feature vectors for a model. Every column must be numeric and free of
// nulls.
func FeatureMatrix(rec arrow.Record) ([][]float64, error) {
	rows := make([][]float64, rec.NumRows())
	for i := range rows {
		rows[i] = make([]float64, rec.NumCols())
	}

	for j := 0; j < int(rec.NumCols()); j++ {
		arr := rec.Column(j)
		if !arrowops.IsNumeric(arr.DataType()) {
			return nil, newColumnError(ErrSchema, "matrix", rec.ColumnName(j), "feature column is %s, not numeric", arr.DataType())
		}
		values, valid, err := arrowops.NumericValues(arr)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if !valid[i] {
				return nil, newColumnError(ErrSchema, "matrix", rec.ColumnName(j), "missing value at row %d", i)
			}
			rows[i][j] = v
		}
	}
	return rows, nil
}
