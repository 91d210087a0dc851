package features

import (
	"context"
	"log/slog"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

type stepContext struct {
	ctx    context.Context
	mem    memory.Allocator
	logger *slog.Logger
}

// step is one stage of the pipeline. Both methods leave rec untouched and
// return a record the caller owns.
type step interface {
	Name() string
	// fit may record artifacts on the store being built.
	fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error)
	// transform only reads the store.
	transform(sc *stepContext, rec arrow.Record, store *ArtifactStore) (arrow.Record, error)
}

// columnIndex returns the position of name in rec or a SchemaError.
func columnIndex(stepName string, rec arrow.Record, name string) (int, error) {
	indices := rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return -1, newColumnError(ErrSchema, stepName, name, "column not found in dataset")
	}
	return indices[0], nil
}
