package operations

import (
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/linkedin/goavro/v2"
)

/*
* Convert an arrow record to an avro array of serialized rows
 */
func ArrowToAvro(tuples arrow.Record) ([][]byte, error) {
	avroSchema, err := ArrowToAvroSchema(tuples.Schema())
	if err != nil {
		return nil, err
	}

	arrowSchema := tuples.Schema()
	columnNames := make([]string, arrowSchema.NumFields())
	avroTypes := make([]string, arrowSchema.NumFields())
	for i, field := range arrowSchema.Fields() {
		columnNames[i] = field.Name
		avroTypes[i], err = ArrowToAvroType(field.Type)
		if err != nil {
			return nil, err
		}
	}

	columnArrays := tuples.Columns()
	data := make([][]byte, tuples.NumRows())

	dataMap := make(map[string]interface{})
	for i := int64(0); i < tuples.NumRows(); i++ {
		for colIdx, col := range columnArrays {
			val, err := ArrowArrayValueToAvroValue(col, int(i))
			if err != nil {
				return nil, err
			}
			if val == nil {
				dataMap[columnNames[colIdx]] = nil
			} else {
				dataMap[columnNames[colIdx]] = goavro.Union(avroTypes[colIdx], val)
			}
		}

		msgData, err := avroSchema.BinaryFromNative(nil, dataMap)
		if err != nil {
			return nil, errs.NewStackError(fmt.Errorf("%w| row %d: %v", ErrAvroRowInvalid, i, err))
		}

		data[i] = msgData
		clear(dataMap)
	}

	return data, nil
}

// ArrowArrayValueToAvroValue returns the value widened to the avro native
// type, or nil when the slot is null.
func ArrowArrayValueToAvroValue(arr arrow.Array, idx int) (interface{}, error) {
	if arr.IsNull(idx) {
		return nil, nil
	}
	switch arr.DataType().ID() {
	case arrow.BOOL:
		return arr.(*array.Boolean).Value(idx), nil
	case arrow.INT8:
		return int64(arr.(*array.Int8).Value(idx)), nil
	case arrow.INT16:
		return int64(arr.(*array.Int16).Value(idx)), nil
	case arrow.INT32:
		return int64(arr.(*array.Int32).Value(idx)), nil
	case arrow.INT64:
		return arr.(*array.Int64).Value(idx), nil
	case arrow.UINT8:
		return int64(arr.(*array.Uint8).Value(idx)), nil
	case arrow.UINT16:
		return int64(arr.(*array.Uint16).Value(idx)), nil
	case arrow.UINT32:
		return int64(arr.(*array.Uint32).Value(idx)), nil
	case arrow.FLOAT32:
		return float64(arr.(*array.Float32).Value(idx)), nil
	case arrow.FLOAT64:
		return arr.(*array.Float64).Value(idx), nil
	case arrow.STRING:
		return arr.(*array.String).Value(idx), nil
	case arrow.BINARY:
		return arr.(*array.Binary).Value(idx), nil
	default:
		return nil, errs.NewStackError(fmt.Errorf("%w| arrow type %s", ErrUnsupportedArrowToAvroTypeConversion, arr.DataType()))
	}
}
