package arrowops

import (
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// TakeRecord returns a new record holding the rows of record at the given
// indices, in index order. The caller owns the returned record.
func TakeRecord(mem memory.Allocator, record arrow.Record, indices *array.Uint32) (arrow.Record, error) {
	record.Retain()
	defer record.Release()

	takenFields := make([]arrow.Array, record.NumCols())
	defer func() {
		for _, arr := range takenFields {
			if arr != nil {
				arr.Release()
			}
		}
	}()
	for i := 0; i < int(record.NumCols()); i++ {
		takenRows, err := TakeArray(mem, record.Column(i), indices)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("column: %s", record.ColumnName(i)))
		}
		takenFields[i] = takenRows
	}
	return array.NewRecord(record.Schema(), takenFields, int64(indices.Len())), nil
}

func TakeArray(mem memory.Allocator, arr arrow.Array, indices *array.Uint32) (arrow.Array, error) {
	for i := 0; i < indices.Len(); i++ {
		if int(indices.Value(i)) >= arr.Len() {
			return nil, errs.NewStackError(fmt.Errorf("%w| index %d, length %d", ErrIndexOutOfRange, indices.Value(i), arr.Len()))
		}
	}

	switch arr.DataType().ID() {
	case arrow.BOOL:
		return takeNativeArray[bool](array.NewBooleanBuilder(mem), arr.(*array.Boolean), indices), nil
	case arrow.INT8:
		return takeNativeArray[int8](array.NewInt8Builder(mem), arr.(*array.Int8), indices), nil
	case arrow.INT16:
		return takeNativeArray[int16](array.NewInt16Builder(mem), arr.(*array.Int16), indices), nil
	case arrow.INT32:
		return takeNativeArray[int32](array.NewInt32Builder(mem), arr.(*array.Int32), indices), nil
	case arrow.INT64:
		return takeNativeArray[int64](array.NewInt64Builder(mem), arr.(*array.Int64), indices), nil
	case arrow.UINT8:
		return takeNativeArray[uint8](array.NewUint8Builder(mem), arr.(*array.Uint8), indices), nil
	case arrow.UINT16:
		return takeNativeArray[uint16](array.NewUint16Builder(mem), arr.(*array.Uint16), indices), nil
	case arrow.UINT32:
		return takeNativeArray[uint32](array.NewUint32Builder(mem), arr.(*array.Uint32), indices), nil
	case arrow.UINT64:
		return takeNativeArray[uint64](array.NewUint64Builder(mem), arr.(*array.Uint64), indices), nil
	case arrow.FLOAT32:
		return takeNativeArray[float32](array.NewFloat32Builder(mem), arr.(*array.Float32), indices), nil
	case arrow.FLOAT64:
		return takeNativeArray[float64](array.NewFloat64Builder(mem), arr.(*array.Float64), indices), nil
	case arrow.STRING:
		return takeNativeArray[string](array.NewStringBuilder(mem), arr.(*array.String), indices), nil
	default:
		return nil, errs.NewStackError(fmt.Errorf("%w| %s", ErrUnsupportedDataType, arr.DataType()))
	}
}

func takeNativeArray[T any](b valueBuilder[T], arr valueArray[T], indices *array.Uint32) arrow.Array {
	defer b.Release()
	b.Reserve(indices.Len())
	for i := 0; i < indices.Len(); i++ {
		idx := int(indices.Value(i))
		if arr.IsNull(idx) {
			b.AppendNull()
			continue
		}
		b.Append(arr.Value(idx))
	}
	return b.NewArray()
}

// FilterRecord keeps the rows whose entry in keep is true.
func FilterRecord(mem memory.Allocator, record arrow.Record, keep []bool) (arrow.Record, error) {
	if len(keep) != int(record.NumRows()) {
		return nil, errs.NewStackError(fmt.Errorf("%w| mask %d, rows %d", ErrLengthMismatch, len(keep), record.NumRows()))
	}

	ib := array.NewUint32Builder(mem)
	defer ib.Release()
	for i, k := range keep {
		if k {
			ib.Append(uint32(i))
		}
	}
	indices := ib.NewUint32Array()
	defer indices.Release()

	return TakeRecord(mem, record, indices)
}
