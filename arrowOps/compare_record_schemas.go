package arrowops

import (
	"github.com/apache/arrow/go/v17/arrow"
)

// RecordSchemasEqual reports whether both records share one schema,
// field order and nullability included.
func RecordSchemasEqual(record1 arrow.Record, record2 arrow.Record) bool {
	return record1.Schema().Equal(record2.Schema())
}

// ColumnNames lists the record's column names in order.
func ColumnNames(record arrow.Record) []string {
	names := make([]string, record.NumCols())
	for i := range names {
		names[i] = record.ColumnName(i)
	}
	return names
}
