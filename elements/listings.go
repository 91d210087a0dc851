package elements

import "github.com/apache/arrow/go/v17/arrow"

const ListingsTableName = "listings"

// ListingsTable is the row layout the scraper produces for one resale
// listing.
func ListingsTable() *Table {
	return NewTable(ListingsTableName).AddColumns(
		NewColumn("id", arrow.BinaryTypes.String, IdentifierColumn),
		NewColumn("condition", arrow.BinaryTypes.String, CategoricalColumn),
		NewColumn("is_completed", arrow.FixedWidthTypes.Boolean, BooleanColumn),
		NewColumn("location", arrow.BinaryTypes.String, CategoricalColumn),
		NewColumn("model", arrow.BinaryTypes.String, CategoricalColumn),
		NewColumn("model_type", arrow.BinaryTypes.String, CategoricalColumn),
		NewColumn("price", arrow.PrimitiveTypes.Int64, NumericColumn),
	)
}
