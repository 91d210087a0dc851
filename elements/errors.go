package elements

import "errors"

var (
	ErrTableInvalid       = errors.New("table invalid")
	ErrColumnNotFound     = errors.New("column not found")
	ErrColumnTypeMismatch = errors.New("column type mismatch")
)
