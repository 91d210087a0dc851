package features

import (
	"github.com/apache/arrow/go/v17/arrow"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

type selectStep struct {
	cols []string
}

func (obj *selectStep) Name() string { return SelectStepName }

func (obj *selectStep) fit(sc *stepContext, rec arrow.Record, _ *ArtifactStore) (arrow.Record, error) {
	return obj.apply(rec)
}

func (obj *selectStep) transform(sc *stepContext, rec arrow.Record, _ *ArtifactStore) (arrow.Record, error) {
	return obj.apply(rec)
}

func (obj *selectStep) apply(rec arrow.Record) (arrow.Record, error) {
	for _, col := range obj.cols {
		if _, err := columnIndex(obj.Name(), rec, col); err != nil {
			return nil, err
		}
	}
	return arrowops.TakeColumns(rec, obj.cols)
}
