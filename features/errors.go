package features

import (
	"errors"
	"fmt"

	"github.com/alekLukanen/errs"
)

var (
	ErrSchema            = errors.New("schema error")
	ErrConfiguration     = errors.New("configuration error")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrUnseenCategory    = errors.New("unseen category")
	ErrNumericDegeneracy = errors.New("numeric degeneracy")
)

// ColumnError names the step and column a pipeline failure came from.
// errors.Is matches it against its Kind.
type ColumnError struct {
	Kind   error
	Step   string
	Column string
	Detail string
}

func (obj *ColumnError) Error() string {
	msg := fmt.Sprintf("%s| step: %s", obj.Kind, obj.Step)
	if obj.Column != "" {
		msg += fmt.Sprintf(", column: %s", obj.Column)
	}
	if obj.Detail != "" {
		msg += ", " + obj.Detail
	}
	return msg
}

func (obj *ColumnError) Unwrap() error {
	return obj.Kind
}

func newColumnError(kind error, step, column, format string, args ...any) error {
	return errs.NewStackError(&ColumnError{
		Kind:   kind,
		Step:   step,
		Column: column,
		Detail: fmt.Sprintf(format, args...),
	})
}
