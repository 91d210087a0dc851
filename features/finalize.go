package features

import (
	"log/slog"

	"github.com/apache/arrow/go/v17/arrow"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

// finalStep projects onto the requested columns. During fit requested
// columns that do not exist are skipped; the columns actually kept are
// recorded and transform projects onto exactly those.
type finalStep struct {
	cols []string
}

func (obj *finalStep) Name() string { return FinalStepName }

func (obj *finalStep) fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error) {
	out, skipped := arrowops.ProjectColumns(rec, obj.cols)
	if len(skipped) > 0 {
		sc.logger.Warn("final columns not present in the dataset were skipped", slog.Any("columns", skipped))
	}
	building.finalColumns = arrowops.ColumnNames(out)
	return out, nil
}

func (obj *finalStep) transform(sc *stepContext, rec arrow.Record, store *ArtifactStore) (arrow.Record, error) {
	if store.finalColumns == nil {
		return nil, newColumnError(ErrArtifactNotFound, obj.Name(), "", "no final columns")
	}
	for _, col := range store.finalColumns {
		if _, err := columnIndex(obj.Name(), rec, col); err != nil {
			return nil, err
		}
	}
	return arrowops.TakeColumns(rec, store.finalColumns)
}
