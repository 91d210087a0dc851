package features

import (
	"log/slog"
	"math"

	"github.com/apache/arrow/go/v17/arrow"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
	"github.com/alekLukanen/StrollerPricer/stats"
)

// scaleStep maps each configured column to (v - center) / scale as
// float64. Nulls stay null.
//
//	standard: center = mean,   scale = population std
//	minmax:   center = min,    scale = max - min
//	robust:   center = median, scale = Q3 - Q1
type scaleStep struct {
	cfg ScaleStep
}

func (obj *scaleStep) Name() string { return ScaleStepName }

func (obj *scaleStep) fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error) {
	params := &ScalerParams{
		Method:  obj.cfg.Method,
		Columns: make([]ScaledColumn, 0, len(obj.cfg.Cols)),
	}
	for _, col := range obj.cfg.Cols {
		idx, err := columnIndex(obj.Name(), rec, col)
		if err != nil {
			return nil, err
		}
		values, valid, err := obj.numericColumn(col, rec.Column(idx))
		if err != nil {
			return nil, err
		}
		present := make([]float64, 0, len(values))
		for i, v := range values {
			if valid[i] {
				present = append(present, v)
			}
		}
		scaled, err := obj.fitColumn(col, present)
		if err != nil {
			return nil, err
		}
		params.Columns = append(params.Columns, scaled)
	}

	out, err := obj.apply(sc, rec, params)
	if err != nil {
		return nil, err
	}
	building.scaler = params
	return out, nil
}

func (obj *scaleStep) fitColumn(col string, present []float64) (ScaledColumn, error) {
	if len(present) == 0 {
		return ScaledColumn{}, newColumnError(ErrNumericDegeneracy, obj.Name(), col, "no values to fit on")
	}

	scaled := ScaledColumn{Column: col}
	switch obj.cfg.Method {
	case ScaleStandard:
		scaled.Center = stats.Mean(present)
		scaled.Scale = stats.PopStd(present)
	case ScaleMinMax:
		lo, hi := stats.MinMax(present)
		scaled.Center = lo
		scaled.Scale = hi - lo
	case ScaleRobust:
		q1, q3 := stats.Quartiles(present)
		scaled.Center = stats.Median(present)
		scaled.Scale = q3 - q1
	default:
		return ScaledColumn{}, newColumnError(ErrConfiguration, obj.Name(), col, "unknown method %q", obj.cfg.Method)
	}

	if !(scaled.Scale > 0) || math.IsInf(scaled.Scale, 0) {
		return ScaledColumn{}, newColumnError(ErrNumericDegeneracy, obj.Name(), col, "%s scaling needs a non-zero spread, got %v", obj.cfg.Method, scaled.Scale)
	}
	return scaled, nil
}

// transform creates missing target columns as 0.0 before scaling.
func (obj *scaleStep) transform(sc *stepContext, rec arrow.Record, store *ArtifactStore) (arrow.Record, error) {
	params := store.scaler
	if params == nil {
		return nil, newColumnError(ErrArtifactNotFound, obj.Name(), "", "no scaler params")
	}

	current := rec
	current.Retain()
	for _, col := range params.Columns {
		if current.Schema().HasField(col.Column) {
			continue
		}
		zeros := arrowops.NewFloat64Array(sc.mem, make([]float64, current.NumRows()), nil)
		next, err := arrowops.AppendColumn(current, arrow.Field{Name: col.Column, Type: arrow.PrimitiveTypes.Float64}, zeros)
		zeros.Release()
		current.Release()
		if err != nil {
			return nil, err
		}
		current = next
		sc.logger.Debug("created missing scale column", slog.String("column", col.Column))
	}
	defer current.Release()

	return obj.apply(sc, current, params)
}

func (obj *scaleStep) apply(sc *stepContext, rec arrow.Record, params *ScalerParams) (arrow.Record, error) {
	current := rec
	current.Retain()

	for _, col := range params.Columns {
		idx, err := columnIndex(obj.Name(), current, col.Column)
		if err != nil {
			current.Release()
			return nil, err
		}
		values, valid, err := obj.numericColumn(col.Column, current.Column(idx))
		if err != nil {
			current.Release()
			return nil, err
		}

		out := make([]float64, len(values))
		for i, v := range values {
			if valid[i] {
				out[i] = (v - col.Center) / col.Scale
			}
		}
		scaled := arrowops.NewFloat64Array(sc.mem, out, valid)

		field := current.Schema().Field(idx)
		field.Type = arrow.PrimitiveTypes.Float64
		next, err := arrowops.ReplaceColumn(current, idx, field, scaled)
		scaled.Release()
		current.Release()
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (obj *scaleStep) numericColumn(col string, arr arrow.Array) ([]float64, []bool, error) {
	if !arrowops.IsNumeric(arr.DataType()) {
		return nil, nil, newColumnError(ErrSchema, obj.Name(), col, "scaling needs a numeric column, got %s", arr.DataType())
	}
	return arrowops.NumericValues(arr)
}
