package features

import (
	"log/slog"
	"math"

	"github.com/apache/arrow/go/v17/arrow"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/stats"
)

const iqrFactor = 1.5

// outlierStep removes rows during fit only. Bounds for every column come
// from the full fit record and a row is kept only if it is within the
// bounds of every configured column. Null values fail the bounds check.
type outlierStep struct {
	cfg OutlierStep
}

func (obj *outlierStep) Name() string { return OutlierStepName }

func (obj *outlierStep) fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error) {
	keep := make([]bool, rec.NumRows())
	for i := range keep {
		keep[i] = true
	}

	artifact := &OutlierBounds{
		Method:  obj.cfg.Method,
		Columns: make([]ColumnBounds, 0, len(obj.cfg.Cols)),
		RowsIn:  rec.NumRows(),
	}
	if obj.cfg.Threshold != nil {
		artifact.Threshold = *obj.cfg.Threshold
	}

	for _, col := range obj.cfg.Cols {
		idx, err := columnIndex(obj.Name(), rec, col)
		if err != nil {
			return nil, err
		}
		arr := rec.Column(idx)
		if !arrowops.IsNumeric(arr.DataType()) {
			return nil, newColumnError(ErrSchema, obj.Name(), col, "outlier filtering needs a numeric column, got %s", arr.DataType())
		}
		values, valid, err := arrowops.NumericValues(arr)
		if err != nil {
			return nil, err
		}
		present := make([]float64, 0, len(values))
		for i, v := range values {
			if valid[i] {
				present = append(present, v)
			}
		}
		if len(present) == 0 {
			return nil, newColumnError(ErrNumericDegeneracy, obj.Name(), col, "no values to compute bounds from")
		}

		bounds, err := obj.columnBounds(col, present)
		if err != nil {
			return nil, err
		}
		artifact.Columns = append(artifact.Columns, bounds)

		for i, v := range values {
			if !valid[i] || !obj.within(bounds, v) {
				keep[i] = false
			}
		}
	}

	out, err := arrowops.FilterRecord(sc.mem, rec, keep)
	if err != nil {
		return nil, err
	}
	artifact.RowsKept = out.NumRows()
	building.outlier = artifact

	sc.logger.Debug("removed outlier rows",
		slog.String("method", string(obj.cfg.Method)),
		slog.Int64("rowsIn", artifact.RowsIn),
		slog.Int64("rowsKept", artifact.RowsKept),
	)
	return out, nil
}

func (obj *outlierStep) columnBounds(col string, present []float64) (ColumnBounds, error) {
	switch obj.cfg.Method {
	case OutlierIQR:
		q1, q3 := stats.Quartiles(present)
		iqr := q3 - q1
		return ColumnBounds{
			Column: col,
			Lower:  q1 - iqrFactor*iqr,
			Upper:  q3 + iqrFactor*iqr,
		}, nil
	case OutlierZScore:
		threshold := DefaultZScoreThreshold
		if obj.cfg.Threshold != nil {
			threshold = *obj.cfg.Threshold
		}
		mean := stats.Mean(present)
		std := stats.SampleStd(present)
		if math.IsNaN(std) || std == 0 {
			return ColumnBounds{}, newColumnError(ErrNumericDegeneracy, obj.Name(), col, "z-score needs a non-zero standard deviation, got %v", std)
		}
		return ColumnBounds{
			Column: col,
			Lower:  mean - threshold*std,
			Upper:  mean + threshold*std,
			Mean:   mean,
			Std:    std,
		}, nil
	default:
		return ColumnBounds{}, newColumnError(ErrConfiguration, obj.Name(), col, "unknown method %q", obj.cfg.Method)
	}
}

func (obj *outlierStep) within(bounds ColumnBounds, v float64) bool {
	if obj.cfg.Method == OutlierZScore {
		threshold := DefaultZScoreThreshold
		if obj.cfg.Threshold != nil {
			threshold = *obj.cfg.Threshold
		}
		return math.Abs((v-bounds.Mean)/bounds.Std) <= threshold
	}
	return v >= bounds.Lower && v <= bounds.Upper
}

// transform never drops rows.
func (obj *outlierStep) transform(sc *stepContext, rec arrow.Record, _ *ArtifactStore) (arrow.Record, error) {
	rec.Retain()
	return rec, nil
}
