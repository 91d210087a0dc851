package operations

import (
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/alekLukanen/StrollerPricer/elements"
)

// AvroToArrow decodes avro encoded rows into one record laid out like the
// table declaration.
func AvroToArrow(allocator memory.Allocator, table *elements.Table, tuples [][]byte) (arrow.Record, error) {
	arrowSchema := table.ArrowSchema()
	avroCodec, err := ArrowToAvroSchema(arrowSchema)
	if err != nil {
		return nil, err
	}

	recordBuilder := array.NewRecordBuilder(allocator, arrowSchema)
	defer recordBuilder.Release()

	for rowIdx, tuple := range tuples {
		mapData, _, err := avroCodec.NativeFromBinary(tuple)
		if err != nil {
			return nil, errs.NewStackError(fmt.Errorf("%w| row %d: %v", ErrAvroRowInvalid, rowIdx, err))
		}

		castMapData, ok := mapData.(map[string]interface{})
		if !ok {
			return nil, errs.NewStackError(fmt.Errorf("%w| row %d is not a record", ErrAvroRowInvalid, rowIdx))
		}

		if err := AppendArrowRow(arrowSchema, recordBuilder, castMapData); err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("row %d", rowIdx))
		}
	}

	return recordBuilder.NewRecord(), nil
}

// unionValue unwraps goavro's native union form: nil for the null branch,
// otherwise a single entry map keyed by the branch type.
func unionValue(value interface{}) (interface{}, bool) {
	if value == nil {
		return nil, false
	}
	if branch, ok := value.(map[string]interface{}); ok {
		for _, v := range branch {
			return v, v != nil
		}
		return nil, false
	}
	return value, true
}

func AppendArrowRow(schema *arrow.Schema, recordBuilder *array.RecordBuilder, avroData map[string]interface{}) error {
	for idx, field := range schema.Fields() {
		value, ok := unionValue(avroData[field.Name])
		if !ok {
			recordBuilder.Field(idx).AppendNull()
			continue
		}

		var castOk bool
		switch field.Type.ID() {
		case arrow.BOOL:
			var v bool
			v, castOk = value.(bool)
			if castOk {
				recordBuilder.Field(idx).(*array.BooleanBuilder).Append(v)
			}
		case arrow.INT8:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Int8Builder).Append(int8(v))
			}
		case arrow.INT16:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Int16Builder).Append(int16(v))
			}
		case arrow.INT32:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Int32Builder).Append(int32(v))
			}
		case arrow.INT64:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Int64Builder).Append(v)
			}
		case arrow.UINT8:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Uint8Builder).Append(uint8(v))
			}
		case arrow.UINT16:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Uint16Builder).Append(uint16(v))
			}
		case arrow.UINT32:
			var v int64
			v, castOk = value.(int64)
			if castOk {
				recordBuilder.Field(idx).(*array.Uint32Builder).Append(uint32(v))
			}
		case arrow.FLOAT32:
			var v float64
			v, castOk = value.(float64)
			if castOk {
				recordBuilder.Field(idx).(*array.Float32Builder).Append(float32(v))
			}
		case arrow.FLOAT64:
			var v float64
			v, castOk = value.(float64)
			if castOk {
				recordBuilder.Field(idx).(*array.Float64Builder).Append(v)
			}
		case arrow.STRING:
			var v string
			v, castOk = value.(string)
			if castOk {
				recordBuilder.Field(idx).(*array.StringBuilder).Append(v)
			}
		case arrow.BINARY:
			var v []byte
			v, castOk = value.([]byte)
			if castOk {
				recordBuilder.Field(idx).(*array.BinaryBuilder).Append(v)
			}
		default:
			return errs.NewStackError(fmt.Errorf("%w| arrow type %s", ErrUnsupportedAvroToArrowTypeConversion, field.Type))
		}
		if !castOk {
			return errs.NewStackError(fmt.Errorf(
				"%w| column %s: cannot store %T as %s", ErrAvroRowInvalid, field.Name, value, field.Type,
			))
		}
	}

	return nil
}
