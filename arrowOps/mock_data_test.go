package arrowops

import (
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func mockData(mem memory.Allocator, size int) arrow.Record {
	rb1 := array.NewRecordBuilder(mem, arrow.NewSchema(
		[]arrow.Field{
			{Name: "a", Type: arrow.PrimitiveTypes.Uint32},
			{Name: "b", Type: arrow.PrimitiveTypes.Float32},
			{Name: "c", Type: arrow.BinaryTypes.String},
		},
		nil,
	))
	defer rb1.Release()

	aValues := make([]uint32, size)
	bValues := make([]float32, size)
	cValues := make([]string, size)
	for i := 0; i < size; i++ {
		aValues[i] = uint32(i)
		bValues[i] = float32(i)
		cValues[i] = strconv.Itoa(i)
	}

	rb1.Field(0).(*array.Uint32Builder).AppendValues(aValues, nil)
	rb1.Field(1).(*array.Float32Builder).AppendValues(bValues, nil)
	rb1.Field(2).(*array.StringBuilder).AppendValues(cValues, nil)

	return rb1.NewRecord()
}

// mockListings has a null in every column at row 1.
func mockListings(mem memory.Allocator) arrow.Record {
	rb := array.NewRecordBuilder(mem, arrow.NewSchema(
		[]arrow.Field{
			{Name: "condition", Type: arrow.BinaryTypes.String, Nullable: true},
			{Name: "is_completed", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
			{Name: "price", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		},
		nil,
	))
	defer rb.Release()

	valid := []bool{true, false, true}
	rb.Field(0).(*array.StringBuilder).AppendValues([]string{"새 상품", "", "사용감 적음"}, valid)
	rb.Field(1).(*array.BooleanBuilder).AppendValues([]bool{true, false, false}, valid)
	rb.Field(2).(*array.Int64Builder).AppendValues([]int64{120000, 0, 80000}, valid)

	return rb.NewRecord()
}
