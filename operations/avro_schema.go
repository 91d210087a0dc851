package operations

import (
	"encoding/json"
	"fmt"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/linkedin/goavro/v2"
)

// Every field is encoded as a ["null", <type>] union so scraped rows can
// carry missing values.
type avroField struct {
	Name    string `json:"name"`
	Type    []any  `json:"type"`
	Default any    `json:"default"`
}

type avroSchemaTemplate struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

func ArrowToAvroSchema(arrowSchema *arrow.Schema) (*goavro.Codec, error) {
	avroSchema := avroSchemaTemplate{
		Type:   "record",
		Name:   "listingRow",
		Fields: make([]avroField, 0, arrowSchema.NumFields()),
	}

	for _, field := range arrowSchema.Fields() {
		avroType, err := ArrowToAvroType(field.Type)
		if err != nil {
			return nil, err
		}
		avroSchema.Fields = append(avroSchema.Fields, avroField{
			Name:    field.Name,
			Type:    []any{"null", avroType},
			Default: nil,
		})
	}

	codecData, err := json.Marshal(avroSchema)
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	codec, err := goavro.NewCodec(string(codecData))
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	return codec, nil
}

func ArrowToAvroType(arrowType arrow.DataType) (string, error) {
	switch arrowType.ID() {
	case arrow.BOOL:
		return "boolean", nil
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return "long", nil
	case arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return "long", nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return "double", nil
	case arrow.STRING:
		return "string", nil
	case arrow.BINARY:
		return "bytes", nil
	default:
		return "", errs.NewStackError(fmt.Errorf("%w| arrow type %s", ErrUnsupportedArrowToAvroTypeConversion, arrowType))
	}
}
