package features

import (
	"log/slog"
	"os"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func testLogger() *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(
			os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn},
		),
	)
}

func newTestPipeline() *Pipeline {
	return NewPipeline(testLogger(), memory.NewGoAllocator())
}

// newCheckedPipeline fails the test when anything the pipeline allocated is
// still held once the test returns.
func newCheckedPipeline(t *testing.T) *Pipeline {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	t.Cleanup(func() { mem.AssertSize(t, 0) })
	return NewPipeline(testLogger(), mem)
}

type listing struct {
	condition string
	location  string
	model     string
	modelType string
	price     int64

	// null markers
	noModel bool
	noPrice bool
}

var listingsSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "id", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "condition", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "is_completed", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "location", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "model", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "model_type", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	},
	nil,
)

func listingsRecord(mem memory.Allocator, listings []listing) arrow.Record {
	rb := array.NewRecordBuilder(mem, listingsSchema)
	defer rb.Release()

	for i, l := range listings {
		rb.Field(0).(*array.StringBuilder).Append(string(rune('a'+i%26)) + "-listing")
		rb.Field(1).(*array.StringBuilder).Append(l.condition)
		rb.Field(2).(*array.BooleanBuilder).Append(i%2 == 0)
		rb.Field(3).(*array.StringBuilder).Append(l.location)
		if l.noModel {
			rb.Field(4).(*array.StringBuilder).AppendNull()
		} else {
			rb.Field(4).(*array.StringBuilder).Append(l.model)
		}
		rb.Field(5).(*array.StringBuilder).Append(l.modelType)
		if l.noPrice {
			rb.Field(6).(*array.Int64Builder).AppendNull()
		} else {
			rb.Field(6).(*array.Int64Builder).Append(l.price)
		}
	}
	return rb.NewRecord()
}

func pricesRecord(mem memory.Allocator, prices ...int64) arrow.Record {
	listings := make([]listing, len(prices))
	for i, p := range prices {
		listings[i] = listing{condition: "새 상품", location: "서울특별시", model: "yoyo", modelType: "휴대용", price: p}
	}
	return listingsRecord(mem, listings)
}

func float64Record(mem memory.Allocator, name string, values []float64, valid []bool) arrow.Record {
	rb := array.NewRecordBuilder(mem, arrow.NewSchema(
		[]arrow.Field{{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}},
		nil,
	))
	defer rb.Release()
	rb.Field(0).(*array.Float64Builder).AppendValues(values, valid)
	return rb.NewRecord()
}

var (
	conditionOptions = []string{"새 상품", "사용감 적음", "사용감 많음"}
	cityOptions      = []string{"서울특별시", "부산광역시", "대구광역시", "인천광역시", "광주광역시", "대전광역시", "울산광역시", "세종특별자치시", "경기도", "제주특별자치도"}
	modelOptions     = []string{"yoyo", "bugaboo", "cybex", "joie", "stokke", "silvercross"}
	modelTypeOptions = []string{"휴대용", "디럭스"}
)

// hundredListings covers every option at least once.
func hundredListings(mem memory.Allocator) arrow.Record {
	listings := make([]listing, 100)
	for i := range listings {
		listings[i] = listing{
			condition: conditionOptions[i%len(conditionOptions)],
			location:  cityOptions[i%len(cityOptions)],
			model:     modelOptions[i%len(modelOptions)],
			modelType: modelTypeOptions[i%len(modelTypeOptions)],
			price:     100_000 + int64((i*7919)%400_000),
		}
	}
	return listingsRecord(mem, listings)
}

func float64Column(rec arrow.Record, name string) []float64 {
	idx := rec.Schema().FieldIndices(name)[0]
	return rec.Column(idx).(*array.Float64).Float64Values()
}
