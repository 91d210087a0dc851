package operations

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/alekLukanen/StrollerPricer/elements"
)

func testLogger() *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(
			os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn},
		),
	)
}

type listing struct {
	id        string
	condition string
	location  string
	model     string
	modelType string
	price     int64
	noPrice   bool
	noModel   bool
}

func listingsRecord(mem memory.Allocator, listings []listing) arrow.Record {
	rb := array.NewRecordBuilder(mem, elements.ListingsTable().ArrowSchema())
	defer rb.Release()

	for i, l := range listings {
		rb.Field(0).(*array.StringBuilder).Append(l.id)
		rb.Field(1).(*array.StringBuilder).Append(l.condition)
		rb.Field(2).(*array.BooleanBuilder).Append(i%3 == 0)
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

var (
	conditionOptions = []string{"새 상품", "사용감 적음", "사용감 많음"}
	cityOptions      = []string{"서울특별시", "부산광역시", "대구광역시", "인천광역시", "광주광역시", "대전광역시", "울산광역시", "세종특별자치시", "경기도", "제주특별자치도"}
	modelOptions     = []string{"yoyo", "bugaboo", "cybex", "joie", "stokke", "silvercross"}
	modelTypeOptions = []string{"휴대용", "디럭스"}
)

// one indicator per option plus the scaled price
const defaultOutputWidth = 3 + 10 + 6 + 2 + 1

func hundredListings(mem memory.Allocator) arrow.Record {
	listings := make([]listing, 100)
	for i := range listings {
		listings[i] = listing{
			id:        fmt.Sprintf("listing-%03d", i),
			condition: conditionOptions[i%len(conditionOptions)],
			location:  cityOptions[i%len(cityOptions)],
			model:     modelOptions[i%len(modelOptions)],
			modelType: modelTypeOptions[i%len(modelTypeOptions)],
			price:     100_000 + int64((i*7919)%400_000),
		}
	}
	return listingsRecord(mem, listings)
}
