package arrowops

import (
	"math"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"
)

func TestNumericValues(t *testing.T) {
	mem := memory.NewGoAllocator()

	data := mockListings(mem)
	defer data.Release()

	values, valid, err := NumericValues(data.Column(2))
	assert.Nil(t, err)
	assert.Equal(t, []bool{true, false, true}, valid)
	assert.Equal(t, 120000.0, values[0])
	assert.True(t, math.IsNaN(values[1]))

	boolValues, _, err := NumericValues(data.Column(1))
	assert.Nil(t, err)
	assert.Equal(t, 1.0, boolValues[0])

	_, _, err = NumericValues(data.Column(0))
	assert.ErrorIs(t, err, ErrUnsupportedDataType)
}

func TestCanonicalString(t *testing.T) {
	mem := memory.NewGoAllocator()

	data := mockListings(mem)
	defer data.Release()

	assert.Equal(t, "새 상품", CanonicalString(data.Column(0), 0))
	assert.Equal(t, NullString, CanonicalString(data.Column(0), 1))
	assert.Equal(t, "true", CanonicalString(data.Column(1), 0))
	assert.Equal(t, "80000", CanonicalString(data.Column(2), 2))
}

func TestFillNulls(t *testing.T) {
	mem := memory.NewGoAllocator()

	data := mockListings(mem)
	defer data.Release()

	filled, err := FillNulls(mem, data.Column(0), "unknown")
	if !assert.Nil(t, err) {
		return
	}
	defer filled.Release()
	assert.Equal(t, 0, filled.NullN())
	assert.Equal(t, "unknown", filled.(*array.String).Value(1))

	_, err = FillNulls(mem, data.Column(2), "unknown")
	assert.ErrorIs(t, err, ErrUnsupportedDataType)
}

func TestReplaceAndAppendColumn(t *testing.T) {
	mem := memory.NewGoAllocator()

	data := mockData(mem, 3)
	defer data.Release()

	col := NewFloat64Array(mem, []float64{1, 2, 3}, nil)
	defer col.Release()

	replaced, err := ReplaceColumn(data, 0, arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Float64}, col)
	if !assert.Nil(t, err) {
		return
	}
	defer replaced.Release()
	assert.Equal(t, arrow.FLOAT64, replaced.Column(0).DataType().ID())
	assert.Equal(t, []string{"a", "b", "c"}, ColumnNames(replaced))

	appended, err := AppendColumn(data, arrow.Field{Name: "d", Type: arrow.PrimitiveTypes.Float64}, col)
	if !assert.Nil(t, err) {
		return
	}
	defer appended.Release()
	assert.Equal(t, []string{"a", "b", "c", "d"}, ColumnNames(appended))

	short := NewFloat64Array(mem, []float64{1}, nil)
	defer short.Release()
	_, err = AppendColumn(data, arrow.Field{Name: "d", Type: arrow.PrimitiveTypes.Float64}, short)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
