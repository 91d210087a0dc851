package features

import (
	"sort"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

// labelEncodeStep replaces each configured column with int64 codes. Values
// are compared by their canonical text form, so 1 and "1" share a code.
type labelEncodeStep struct {
	cfg LabelEncodeStep
}

func (obj *labelEncodeStep) Name() string { return LabelEncodeStepName }

func (obj *labelEncodeStep) fit(sc *stepContext, rec arrow.Record, building *ArtifactStore) (arrow.Record, error) {
	mappings := make([]*LabelMapping, 0, len(obj.cfg.Cols))
	for _, col := range obj.cfg.Cols {
		idx, err := columnIndex(obj.Name(), rec, col)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, newLabelMapping(col, sortedClasses(rec.Column(idx)), obj.cfg.UnseenPolicy))
	}

	out, err := obj.encode(sc, rec, mappings)
	if err != nil {
		return nil, err
	}
	building.labels = mappings
	return out, nil
}

func (obj *labelEncodeStep) transform(sc *stepContext, rec arrow.Record, store *ArtifactStore) (arrow.Record, error) {
	mappings := make([]*LabelMapping, 0, len(obj.cfg.Cols))
	for _, col := range obj.cfg.Cols {
		mapping := store.labelMapping(col)
		if mapping == nil {
			return nil, newColumnError(ErrArtifactNotFound, obj.Name(), col, "no label mapping")
		}
		mappings = append(mappings, mapping)
	}
	return obj.encode(sc, rec, mappings)
}

func (obj *labelEncodeStep) encode(sc *stepContext, rec arrow.Record, mappings []*LabelMapping) (arrow.Record, error) {
	current := rec
	current.Retain()

	for _, mapping := range mappings {
		idx, err := columnIndex(obj.Name(), current, mapping.Column)
		if err != nil {
			current.Release()
			return nil, err
		}

		codes, err := obj.encodeColumn(sc, current.Column(idx), mapping)
		if err != nil {
			current.Release()
			return nil, err
		}
		next, err := arrowops.ReplaceColumn(current, idx, arrow.Field{Name: mapping.Column, Type: arrow.PrimitiveTypes.Int64}, codes)
		codes.Release()
		current.Release()
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (obj *labelEncodeStep) encodeColumn(sc *stepContext, arr arrow.Array, mapping *LabelMapping) (arrow.Array, error) {
	b := array.NewInt64Builder(sc.mem)
	defer b.Release()
	b.Reserve(arr.Len())

	for i := 0; i < arr.Len(); i++ {
		value := arrowops.CanonicalString(arr, i)
		code, ok := mapping.Code(value)
		if !ok {
			if mapping.UnseenPolicy != UnseenUnknown {
				return nil, newColumnError(ErrUnseenCategory, obj.Name(), mapping.Column, "value %q was not seen during fit", value)
			}
			code = mapping.UnknownCode()
		}
		b.Append(code)
	}
	return b.NewArray(), nil
}

// sortedClasses returns the distinct canonical values of arr in byte order.
func sortedClasses(arr arrow.Array) []string {
	seen := make(map[string]struct{})
	for i := 0; i < arr.Len(); i++ {
		seen[arrowops.CanonicalString(arr, i)] = struct{}{}
	}
	classes := make([]string, 0, len(seen))
	for class := range seen {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
