package arrowops

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// RecordsEqual compares the named columns of both records. With no fields
// the whole records are compared.
func RecordsEqual(rec1, rec2 arrow.Record, fields ...string) bool {
	if len(fields) == 0 {
		return array.RecordEqual(rec1, rec2)
	}
	if rec1.NumRows() != rec2.NumRows() {
		return false
	}
	for _, name := range fields {
		idx1 := rec1.Schema().FieldIndices(name)
		idx2 := rec2.Schema().FieldIndices(name)
		if len(idx1) == 0 || len(idx1) != len(idx2) {
			return false
		}
		for i := range idx1 {
			if !array.Equal(rec1.Column(idx1[i]), rec2.Column(idx2[i])) {
				return false
			}
		}
	}
	return true
}
