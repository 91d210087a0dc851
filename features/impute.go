package features

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/stats"
)

// imputeStep fills nulls. Fill values come from the record being processed,
// in fit and in transform alike.
type imputeStep struct {
	cfg ImputeStep
}

func (obj *imputeStep) Name() string { return ImputeStepName }

func (obj *imputeStep) fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error) {
	out, used, err := obj.apply(sc, rec)
	if err != nil {
		return nil, err
	}
	building.impute = &ImputeValues{Strategy: obj.cfg.Strategy, Columns: used}
	return out, nil
}

func (obj *imputeStep) transform(sc *stepContext, rec arrow.Record, _ *ArtifactStore) (arrow.Record, error) {
	out, _, err := obj.apply(sc, rec)
	return out, err
}

func (obj *imputeStep) apply(sc *stepContext, rec arrow.Record) (arrow.Record, []ImputedColumn, error) {
	current := rec
	current.Retain()
	used := make([]ImputedColumn, 0, len(obj.cfg.Cols))

	for _, col := range obj.cfg.Cols {
		idx, err := columnIndex(obj.Name(), current, col)
		if err != nil {
			current.Release()
			return nil, nil, err
		}

		filled, fill, err := obj.imputeColumn(sc, col, current.Column(idx))
		if err != nil {
			current.Release()
			return nil, nil, err
		}
		if fill == nil {
			sc.logger.Debug("column has no values to impute from", slog.String("column", col))
		}

		field := current.Schema().Field(idx)
		field.Type = filled.DataType()
		next, err := arrowops.ReplaceColumn(current, idx, field, filled)
		filled.Release()
		current.Release()
		if err != nil {
			return nil, nil, err
		}
		current = next
		if fill != nil {
			used = append(used, ImputedColumn{Column: col, Value: fill})
		}
	}

	return current, used, nil
}

// imputeColumn returns the filled column and the fill value. A nil fill
// means the column had nothing to compute a fill value from; the column is
// still returned in the type a fill would have produced so fit and transform
// agree on the output schema.
func (obj *imputeStep) imputeColumn(sc *stepContext, col string, arr arrow.Array) (arrow.Array, any, error) {
	switch obj.cfg.Strategy {
	case ImputeMean, ImputeMedian:
		if !arrowops.IsNumeric(arr.DataType()) {
			return nil, nil, newColumnError(ErrSchema, obj.Name(), col, "%s imputation needs a numeric column, got %s", obj.cfg.Strategy, arr.DataType())
		}
		floatArr, err := arrowops.CastToFloat64(sc.mem, arr)
		if err != nil {
			return nil, nil, err
		}
		defer floatArr.Release()

		present := validFloats(floatArr)
		if len(present) == 0 {
			floatArr.Retain()
			return floatArr, nil, nil
		}
		var fill float64
		if obj.cfg.Strategy == ImputeMean {
			fill = stats.Mean(present)
		} else {
			fill = stats.Median(present)
		}
		filled, err := arrowops.FillNulls(sc.mem, floatArr, fill)
		return filled, fill, err

	case ImputeMode:
		fill, ok, err := modeValue(arr)
		if err != nil {
			return nil, nil, newColumnError(ErrSchema, obj.Name(), col, "%s", err)
		}
		if !ok {
			widened, err := widenForFill(sc, arr)
			return widened, nil, err
		}
		filled, err := fillNullsWidened(sc, arr, fill)
		return filled, fill, err

	case ImputeConstant:
		fill, err := coerceFillValue(obj.cfg.FillValue, arr.DataType())
		if err != nil {
			return nil, nil, newColumnError(ErrConfiguration, obj.Name(), col, "%s", err)
		}
		filled, err := fillNullsWidened(sc, arr, fill)
		return filled, fill, err

	default:
		return nil, nil, newColumnError(ErrConfiguration, obj.Name(), col, "unknown strategy %q", obj.cfg.Strategy)
	}
}

// fillNullsWidened fills arr, casting numeric types that FillNulls does not
// build natively to float64 first.
func fillNullsWidened(sc *stepContext, arr arrow.Array, fill any) (arrow.Array, error) {
	switch arr.DataType().ID() {
	case arrow.BOOL, arrow.INT64, arrow.FLOAT64, arrow.STRING:
		return arrowops.FillNulls(sc.mem, arr, fill)
	}
	floatArr, err := arrowops.CastToFloat64(sc.mem, arr)
	if err != nil {
		return nil, err
	}
	defer floatArr.Release()
	f, ok := toFloat(fill)
	if !ok {
		return nil, fmt.Errorf("fill value %v (%T) for %s", fill, fill, arr.DataType())
	}
	return arrowops.FillNulls(sc.mem, floatArr, f)
}

// widenForFill returns arr in the type fillNullsWidened would produce for it.
func widenForFill(sc *stepContext, arr arrow.Array) (arrow.Array, error) {
	switch arr.DataType().ID() {
	case arrow.BOOL, arrow.INT64, arrow.FLOAT64, arrow.STRING:
		arr.Retain()
		return arr, nil
	}
	floatArr, err := arrowops.CastToFloat64(sc.mem, arr)
	if err != nil {
		return nil, err
	}
	return floatArr, nil
}

func validFloats(arr *array.Float64) []float64 {
	present := make([]float64, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) || math.IsNaN(arr.Value(i)) {
			continue
		}
		present = append(present, arr.Value(i))
	}
	return present
}

// modeValue returns the most frequent non-null value in the column's own
// Go type.
func modeValue(arr arrow.Array) (any, bool, error) {
	switch typedArr := arr.(type) {
	case *array.String:
		present := make([]string, 0, typedArr.Len())
		for i := 0; i < typedArr.Len(); i++ {
			if !typedArr.IsNull(i) {
				present = append(present, typedArr.Value(i))
			}
		}
		mode, ok := stats.ModeString(present)
		return mode, ok, nil
	}

	if !arrowops.IsNumeric(arr.DataType()) {
		return nil, false, fmt.Errorf("mode imputation does not support %s", arr.DataType())
	}
	values, valid, err := arrowops.NumericValues(arr)
	if err != nil {
		return nil, false, err
	}
	present := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return nil, false, nil
	}
	mode := stats.Mode(present)
	switch arr.DataType().ID() {
	case arrow.BOOL:
		return mode != 0, true, nil
	case arrow.INT64:
		return int64(mode), true, nil
	default:
		return mode, true, nil
	}
}

// coerceFillValue converts a configured constant to the column's Go type.
func coerceFillValue(fill any, dt arrow.DataType) (any, error) {
	switch dt.ID() {
	case arrow.STRING:
		if s, ok := fill.(string); ok {
			return s, nil
		}
	case arrow.BOOL:
		if b, ok := fill.(bool); ok {
			return b, nil
		}
	case arrow.INT64:
		switch v := fill.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case float64:
			if v == math.Trunc(v) {
				return int64(v), nil
			}
		}
	default:
		if arrowops.IsNumeric(dt) {
			if f, ok := toFloat(fill); ok {
				return f, nil
			}
		}
	}
	return nil, fmt.Errorf("fill value %v (%T) does not fit column type %s", fill, fill, dt)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
