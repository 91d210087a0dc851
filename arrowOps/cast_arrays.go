package arrowops

import (
	"fmt"
	"math"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// NullString is the canonical text of a missing value.
const NullString = "nan"

func IsNumeric(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.BOOL,
		arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return true
	default:
		return false
	}
}

// NumericValues widens a numeric array to float64. The second slice marks
// the valid (non-null) positions; null positions hold NaN.
func NumericValues(arr arrow.Array) ([]float64, []bool, error) {
	values := make([]float64, arr.Len())
	valid := make([]bool, arr.Len())

	var at func(i int) float64
	switch typedArr := arr.(type) {
	case *array.Boolean:
		at = func(i int) float64 {
			if typedArr.Value(i) {
				return 1
			}
			return 0
		}
	case *array.Int8:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Int16:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Int32:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Int64:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Uint8:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Uint16:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Uint32:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Uint64:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Float32:
		at = func(i int) float64 { return float64(typedArr.Value(i)) }
	case *array.Float64:
		at = typedArr.Value
	default:
		return nil, nil, errs.NewStackError(fmt.Errorf("%w| %s is not numeric", ErrUnsupportedDataType, arr.DataType()))
	}

	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			values[i] = math.NaN()
			continue
		}
		values[i] = at(i)
		valid[i] = !math.IsNaN(values[i])
	}
	return values, valid, nil
}

// NewFloat64Array builds a float64 array; positions where valid is false
// become null. A nil valid slice means every value is present.
func NewFloat64Array(mem memory.Allocator, values []float64, valid []bool) *array.Float64 {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewFloat64Array()
}

func CastToFloat64(mem memory.Allocator, arr arrow.Array) (*array.Float64, error) {
	values, valid, err := NumericValues(arr)
	if err != nil {
		return nil, err
	}
	return NewFloat64Array(mem, values, valid), nil
}

// CanonicalString renders a single value as text; nulls render as NullString.
func CanonicalString(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return NullString
	}
	if f, ok := arr.(*array.Float64); ok && math.IsNaN(f.Value(i)) {
		return NullString
	}
	return arr.ValueStr(i)
}

// FillNulls replaces the nulls of arr with fill, which must match the
// array's Go value type.
func FillNulls(mem memory.Allocator, arr arrow.Array, fill any) (arrow.Array, error) {
	mismatch := func() error {
		return errs.NewStackError(fmt.Errorf("%w| fill value %v (%T) for %s", ErrUnsupportedDataType, fill, fill, arr.DataType()))
	}

	switch typedArr := arr.(type) {
	case *array.Boolean:
		v, ok := fill.(bool)
		if !ok {
			return nil, mismatch()
		}
		return fillNativeArray[bool](array.NewBooleanBuilder(mem), typedArr, v), nil
	case *array.Int64:
		v, ok := fill.(int64)
		if !ok {
			return nil, mismatch()
		}
		return fillNativeArray[int64](array.NewInt64Builder(mem), typedArr, v), nil
	case *array.Float64:
		v, ok := fill.(float64)
		if !ok {
			return nil, mismatch()
		}
		return fillNativeArray[float64](array.NewFloat64Builder(mem), typedArr, v), nil
	case *array.String:
		v, ok := fill.(string)
		if !ok {
			return nil, mismatch()
		}
		return fillNativeArray[string](array.NewStringBuilder(mem), typedArr, v), nil
	default:
		return nil, mismatch()
	}
}

func fillNativeArray[T any](b valueBuilder[T], arr valueArray[T], fill T) arrow.Array {
	defer b.Release()
	b.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.Append(fill)
			continue
		}
		b.Append(arr.Value(i))
	}
	return b.NewArray()
}

// ReplaceColumn returns a record with column idx swapped for arr under the
// given field. The caller keeps ownership of arr.
func ReplaceColumn(record arrow.Record, idx int, field arrow.Field, arr arrow.Array) (arrow.Record, error) {
	if arr.Len() != int(record.NumRows()) {
		return nil, errs.NewStackError(fmt.Errorf("%w| column %s has %d rows, record %d", ErrLengthMismatch, field.Name, arr.Len(), record.NumRows()))
	}
	fields := make([]arrow.Field, record.NumCols())
	cols := make([]arrow.Array, record.NumCols())
	for i := range cols {
		fields[i] = record.Schema().Field(i)
		cols[i] = record.Column(i)
	}
	fields[idx] = field
	cols[idx] = arr
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, record.NumRows()), nil
}

// AppendColumn returns a record with arr added as the last column.
func AppendColumn(record arrow.Record, field arrow.Field, arr arrow.Array) (arrow.Record, error) {
	if arr.Len() != int(record.NumRows()) {
		return nil, errs.NewStackError(fmt.Errorf("%w| column %s has %d rows, record %d", ErrLengthMismatch, field.Name, arr.Len(), record.NumRows()))
	}
	fields := append(record.Schema().Fields(), field)
	cols := append(append([]arrow.Array{}, record.Columns()...), arr)
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, record.NumRows()), nil
}
