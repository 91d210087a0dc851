package operations

import "errors"

var (
	ErrUnsupportedArrowToAvroTypeConversion = errors.New("unsupported arrow to avro type conversion")
	ErrUnsupportedAvroToArrowTypeConversion = errors.New("unsupported avro to arrow type conversion")
	ErrAvroRowInvalid                       = errors.New("avro row invalid")
	ErrFitInProgress                        = errors.New("another fit is in progress")
	ErrWidthMismatch                        = errors.New("feature width does not match the model")
	ErrNoStorePublished                     = errors.New("no artifact store published")
	ErrImageCountMismatch                   = errors.New("image count does not match row count")
)
