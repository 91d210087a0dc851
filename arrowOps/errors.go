package arrowops

import "errors"

var (
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrColumnNotFound      = errors.New("column not found")
	ErrNoDataLeft          = errors.New("no data left")
	ErrSchemasNotEqual     = errors.New("schemas not equal")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrLengthMismatch      = errors.New("array length does not match record")
)
