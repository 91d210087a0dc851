package features

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

// oneHotStep expands categorical columns into float64 0/1 indicator
// columns named <column>_<category>. Non-source columns keep their order
// and the indicators follow them, source column by source column.
type oneHotStep struct {
	cfg OneHotStep
}

func (obj *oneHotStep) Name() string { return OneHotStepName }

func (obj *oneHotStep) fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error) {
	schema := &OneHotSchema{
		SourceColumns: slices.Clone(obj.cfg.Cols),
		DropFirst:     obj.cfg.DropFirst,
		Columns:       make([]OneHotColumn, 0, len(obj.cfg.Cols)),
	}
	for _, col := range obj.cfg.Cols {
		idx, err := columnIndex(obj.Name(), rec, col)
		if err != nil {
			return nil, err
		}
		categories := sortedCategories(rec.Column(idx))
		indicators := categories
		if obj.cfg.DropFirst && len(indicators) > 0 {
			indicators = indicators[1:]
		}
		schema.Columns = append(schema.Columns, OneHotColumn{
			Column:     col,
			Categories: categories,
			Indicators: slices.Clone(indicators),
		})
	}

	out, err := obj.expand(sc, rec, schema)
	if err != nil {
		return nil, err
	}
	schema.OutputColumns = arrowops.ColumnNames(out)
	if err := uniqueNames(obj.Name(), schema.OutputColumns); err != nil {
		out.Release()
		return nil, newColumnError(ErrSchema, obj.Name(), "", "%s", err)
	}

	building.oneHot = schema
	return out, nil
}

func (obj *oneHotStep) transform(sc *stepContext, rec arrow.Record, store *ArtifactStore) (arrow.Record, error) {
	schema := store.oneHot
	if schema == nil {
		return nil, newColumnError(ErrArtifactNotFound, obj.Name(), "", "no one-hot schema")
	}

	expanded, err := obj.expand(sc, rec, schema)
	if err != nil {
		return nil, err
	}
	defer expanded.Release()

	return obj.align(sc, expanded, schema)
}

// expand builds the indicator columns from the categories in schema.
// Values outside those categories produce all-zero indicators.
func (obj *oneHotStep) expand(sc *stepContext, rec arrow.Record, schema *OneHotSchema) (arrow.Record, error) {
	fields := make([]arrow.Field, 0, rec.NumCols())
	cols := make([]arrow.Array, 0, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		if slices.Contains(schema.SourceColumns, rec.ColumnName(i)) {
			continue
		}
		fields = append(fields, rec.Schema().Field(i))
		cols = append(cols, rec.Column(i))
	}

	built := make([]arrow.Array, 0)
	defer func() {
		for _, arr := range built {
			arr.Release()
		}
	}()
	for _, ohCol := range schema.Columns {
		idx, err := columnIndex(obj.Name(), rec, ohCol.Column)
		if err != nil {
			return nil, err
		}
		arr := rec.Column(idx)

		canonical := make([]string, arr.Len())
		for i := range canonical {
			if arr.IsNull(i) {
				continue
			}
			canonical[i] = arrowops.CanonicalString(arr, i)
		}

		for _, category := range ohCol.Indicators {
			values := make([]float64, arr.Len())
			for i := range values {
				if !arr.IsNull(i) && canonical[i] == category {
					values[i] = 1
				}
			}
			indicator := arrowops.NewFloat64Array(sc.mem, values, nil)
			built = append(built, indicator)
			fields = append(fields, arrow.Field{Name: indicatorName(ohCol.Column, category), Type: arrow.PrimitiveTypes.Float64})
			cols = append(cols, indicator)
		}
	}

	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// align forces expanded onto the fit-time column order. Missing columns are
// added as zeros and columns the schema does not list are dropped.
func (obj *oneHotStep) align(sc *stepContext, expanded arrow.Record, schema *OneHotSchema) (arrow.Record, error) {
	fields := make([]arrow.Field, 0, len(schema.OutputColumns))
	cols := make([]arrow.Array, 0, len(schema.OutputColumns))
	built := make([]arrow.Array, 0)
	defer func() {
		for _, arr := range built {
			arr.Release()
		}
	}()

	missing := make([]string, 0)
	for _, name := range schema.OutputColumns {
		indices := expanded.Schema().FieldIndices(name)
		if len(indices) > 0 {
			fields = append(fields, expanded.Schema().Field(indices[0]))
			cols = append(cols, expanded.Column(indices[0]))
			continue
		}
		zeros := arrowops.NewFloat64Array(sc.mem, make([]float64, expanded.NumRows()), nil)
		built = append(built, zeros)
		fields = append(fields, arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64})
		cols = append(cols, zeros)
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		sc.logger.Debug("zero filled columns missing from the expanded record",
			slog.Any("columns", missing),
		)
	}

	return array.NewRecord(arrow.NewSchema(fields, nil), cols, expanded.NumRows()), nil
}

func indicatorName(column, category string) string {
	return fmt.Sprintf("%s_%s", column, category)
}

// sortedCategories returns the distinct non-null canonical values of arr.
func sortedCategories(arr arrow.Array) []string {
	seen := make(map[string]struct{})
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}
		seen[arrowops.CanonicalString(arr, i)] = struct{}{}
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
