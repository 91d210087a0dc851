package elements

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
)

// Table declares the columns a record is expected to carry.
type Table struct {
	name    string
	columns []Column
}

func NewTable(name string) *Table {
	return &Table{
		name:    name,
		columns: []Column{},
	}
}

func (obj *Table) TableName() string {
	return obj.name
}

func (obj *Table) Columns() []Column {
	return obj.columns
}

func (obj *Table) AddColumns(columns ...Column) *Table {
	obj.columns = append(obj.columns, columns...)
	return obj
}

func (obj *Table) IsValid() error {
	if obj.name == "" {
		return fmt.Errorf("%w| name invalid", ErrTableInvalid)
	}

	if len(obj.columns) == 0 {
		return fmt.Errorf("%w| table does not have columns", ErrTableInvalid)
	}

	uniqColumns := make(map[string]struct{}, len(obj.columns))
	for _, col := range obj.columns {
		if !col.IsValid() {
			return fmt.Errorf("%w| table has invalid column", ErrTableInvalid)
		}
		if _, ok := uniqColumns[col.Name]; ok {
			return fmt.Errorf("%w| duplicate column %s", ErrTableInvalid, col.Name)
		}
		uniqColumns[col.Name] = struct{}{}
	}

	return nil
}

func (obj *Table) GetColumnByName(name string) (Column, error) {
	for _, col := range obj.columns {
		if col.Name == name {
			return col, nil
		}
	}
	return Column{}, fmt.Errorf("%w| %s", ErrColumnNotFound, name)
}

// ColumnNames lists the declared column names, optionally restricted to
// the given kinds.
func (obj *Table) ColumnNames(kinds ...ColumnKind) []string {
	names := make([]string, 0, len(obj.columns))
	for _, col := range obj.columns {
		if len(kinds) > 0 && !col.Kind.In(kinds...) {
			continue
		}
		names = append(names, col.Name)
	}
	return names
}

func (obj *Table) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(obj.columns))
	for i, col := range obj.columns {
		fields[i] = arrow.Field{Name: col.Name, Type: col.Dtype, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// ValidateRecord checks that every declared column is present in the
// record with the declared type. Extra record columns are allowed.
func (obj *Table) ValidateRecord(record arrow.Record) error {
	for _, col := range obj.columns {
		indices := record.Schema().FieldIndices(col.Name)
		if len(indices) == 0 {
			return fmt.Errorf("%w| table %s, column %s", ErrColumnNotFound, obj.name, col.Name)
		}
		if dt := record.Column(indices[0]).DataType(); !arrow.TypeEqual(dt, col.Dtype) {
			return fmt.Errorf("%w| table %s, column %s: expected %s, got %s", ErrColumnTypeMismatch, obj.name, col.Name, col.Dtype, dt)
		}
	}
	return nil
}

////////////////////////////////////////

type ColumnKind string

const (
	NumericColumn     ColumnKind = "numeric"
	CategoricalColumn ColumnKind = "categorical"
	BooleanColumn     ColumnKind = "boolean"
	IdentifierColumn  ColumnKind = "identifier"
)

func (obj ColumnKind) In(kinds ...ColumnKind) bool {
	for _, kind := range kinds {
		if obj == kind {
			return true
		}
	}
	return false
}

type Column struct {
	Name  string
	Dtype arrow.DataType
	Kind  ColumnKind
}

func NewColumn(name string, dtype arrow.DataType, kind ColumnKind) Column {
	return Column{
		Name:  name,
		Dtype: dtype,
		Kind:  kind,
	}
}

func (obj *Column) IsValid() bool {
	if obj.Name == "" {
		return false
	}

	if obj.Dtype == nil {
		return false
	}

	switch obj.Kind {
	case NumericColumn, CategoricalColumn, BooleanColumn, IdentifierColumn:
		return true
	default:
		return false
	}
}
