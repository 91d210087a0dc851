package features

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/alekLukanen/errs"
)

const artifactFormatVersion = 1

type ImputedColumn struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// ImputeValues records the fill values of the fit pass. Transform
// recomputes its own fill values from the data it is given.
type ImputeValues struct {
	Strategy ImputeStrategy  `json:"strategy"`
	Columns  []ImputedColumn `json:"columns"`
}

type ColumnBounds struct {
	Column string  `json:"column"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
}

// OutlierBounds describes the rows the fit pass removed. Transform never
// reads it.
type OutlierBounds struct {
	Method    OutlierMethod  `json:"method"`
	Threshold float64        `json:"threshold,omitempty"`
	Columns   []ColumnBounds `json:"columns"`
	RowsIn    int64          `json:"rows_in"`
	RowsKept  int64          `json:"rows_kept"`
}

// LabelMapping assigns each class its index in the sorted class list.
type LabelMapping struct {
	Column       string       `json:"column"`
	Classes      []string     `json:"classes"`
	UnseenPolicy UnseenPolicy `json:"unseen_policy"`

	codes map[string]int64
}

func newLabelMapping(column string, classes []string, policy UnseenPolicy) *LabelMapping {
	mapping := &LabelMapping{
		Column:       column,
		Classes:      classes,
		UnseenPolicy: policy,
	}
	mapping.index()
	return mapping
}

func (obj *LabelMapping) index() {
	obj.codes = make(map[string]int64, len(obj.Classes))
	for i, class := range obj.Classes {
		obj.codes[class] = int64(i)
	}
}

func (obj *LabelMapping) UnmarshalJSON(data []byte) error {
	type labelMapping LabelMapping
	var raw labelMapping
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*obj = LabelMapping(raw)
	obj.index()
	return nil
}

// Code looks up the code of a canonical value.
func (obj *LabelMapping) Code(value string) (int64, bool) {
	code, ok := obj.codes[value]
	return code, ok
}

// UnknownCode is the code reserved for unseen values under UnseenUnknown.
func (obj *LabelMapping) UnknownCode() int64 {
	return int64(len(obj.Classes))
}

func (obj *LabelMapping) clone() *LabelMapping {
	return newLabelMapping(obj.Column, slices.Clone(obj.Classes), obj.UnseenPolicy)
}

type OneHotColumn struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
	// Indicators are the categories that received a column, after drop_first.
	Indicators []string `json:"indicators"`
}

type OneHotSchema struct {
	SourceColumns []string       `json:"source_columns"`
	DropFirst     bool           `json:"drop_first"`
	Columns       []OneHotColumn `json:"columns"`
	OutputColumns []string       `json:"output_columns"`
}

func (obj *OneHotSchema) clone() *OneHotSchema {
	cp := &OneHotSchema{
		SourceColumns: slices.Clone(obj.SourceColumns),
		DropFirst:     obj.DropFirst,
		Columns:       make([]OneHotColumn, len(obj.Columns)),
		OutputColumns: slices.Clone(obj.OutputColumns),
	}
	for i, col := range obj.Columns {
		cp.Columns[i] = OneHotColumn{
			Column:     col.Column,
			Categories: slices.Clone(col.Categories),
			Indicators: slices.Clone(col.Indicators),
		}
	}
	return cp
}

type ScaledColumn struct {
	Column string  `json:"column"`
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

type ScalerParams struct {
	Method  ScaleMethod    `json:"method"`
	Columns []ScaledColumn `json:"columns"`
}

func (obj *ScalerParams) ColumnNames() []string {
	names := make([]string, len(obj.Columns))
	for i, col := range obj.Columns {
		names[i] = col.Column
	}
	return names
}

// ArtifactStore holds everything one fit learned. It has no exported
// setters: the pipeline fills it during fit and it is read-only after.
type ArtifactStore struct {
	configFingerprint string
	impute            *ImputeValues
	outlier           *OutlierBounds
	labels            []*LabelMapping
	oneHot            *OneHotSchema
	scaler            *ScalerParams
	finalColumns      []string
	outputColumns     []string
}

func newArtifactStore(fingerprint string) *ArtifactStore {
	return &ArtifactStore{configFingerprint: fingerprint}
}

func (obj *ArtifactStore) ConfigFingerprint() string {
	return obj.configFingerprint
}

// OutputColumns is the column order every transform with this store
// produces.
func (obj *ArtifactStore) OutputColumns() []string {
	return slices.Clone(obj.outputColumns)
}

// OutputWidth is the number of feature columns.
func (obj *ArtifactStore) OutputWidth() int {
	return len(obj.outputColumns)
}

func (obj *ArtifactStore) ImputeValues() (ImputeValues, bool) {
	if obj.impute == nil {
		return ImputeValues{}, false
	}
	return ImputeValues{Strategy: obj.impute.Strategy, Columns: slices.Clone(obj.impute.Columns)}, true
}

func (obj *ArtifactStore) OutlierBounds() (OutlierBounds, bool) {
	if obj.outlier == nil {
		return OutlierBounds{}, false
	}
	cp := *obj.outlier
	cp.Columns = slices.Clone(obj.outlier.Columns)
	return cp, true
}

func (obj *ArtifactStore) LabelMapping(column string) (*LabelMapping, bool) {
	mapping := obj.labelMapping(column)
	if mapping == nil {
		return nil, false
	}
	return mapping.clone(), true
}

func (obj *ArtifactStore) labelMapping(column string) *LabelMapping {
	for _, mapping := range obj.labels {
		if mapping.Column == column {
			return mapping
		}
	}
	return nil
}

func (obj *ArtifactStore) OneHotSchema() (*OneHotSchema, bool) {
	if obj.oneHot == nil {
		return nil, false
	}
	return obj.oneHot.clone(), true
}

func (obj *ArtifactStore) ScalerParams() (ScalerParams, bool) {
	if obj.scaler == nil {
		return ScalerParams{}, false
	}
	return ScalerParams{Method: obj.scaler.Method, Columns: slices.Clone(obj.scaler.Columns)}, true
}

func (obj *ArtifactStore) FinalColumns() ([]string, bool) {
	if obj.finalColumns == nil {
		return nil, false
	}
	return slices.Clone(obj.finalColumns), true
}

// checkRequired verifies, before any data is touched, that every artifact
// cfg needs at transform time is present and scoped to the configured
// columns.
func (obj *ArtifactStore) checkRequired(cfg Config) error {
	if step := cfg.LabelEncode; step != nil {
		for _, col := range step.Cols {
			if obj.labelMapping(col) == nil {
				return newColumnError(ErrArtifactNotFound, LabelEncodeStepName, col, "no label mapping")
			}
		}
	}
	if step := cfg.OneHot; step != nil {
		if obj.oneHot == nil {
			return newColumnError(ErrArtifactNotFound, OneHotStepName, "", "no one-hot schema")
		}
		if !slices.Equal(obj.oneHot.SourceColumns, step.Cols) {
			return newColumnError(ErrArtifactNotFound, OneHotStepName, "", "schema was fit on %v, config lists %v", obj.oneHot.SourceColumns, step.Cols)
		}
	}
	if step := cfg.Scale; step != nil {
		if obj.scaler == nil {
			return newColumnError(ErrArtifactNotFound, ScaleStepName, "", "no scaler params")
		}
		if !slices.Equal(obj.scaler.ColumnNames(), step.Cols) {
			return newColumnError(ErrArtifactNotFound, ScaleStepName, "", "params were fit on %v, config lists %v", obj.scaler.ColumnNames(), step.Cols)
		}
	}
	if cfg.FinalCols != nil && obj.finalColumns == nil {
		return newColumnError(ErrArtifactNotFound, FinalStepName, "", "no final columns")
	}
	return nil
}

// Validate checks the internal consistency of a loaded store.
func (obj *ArtifactStore) Validate() error {
	if obj.configFingerprint == "" {
		return errs.NewStackError(fmt.Errorf("%w| missing config fingerprint", ErrConfiguration))
	}
	if err := uniqueNames("output_columns", obj.outputColumns); err != nil {
		return err
	}
	for _, mapping := range obj.labels {
		if !sort.StringsAreSorted(mapping.Classes) {
			return newColumnError(ErrConfiguration, LabelEncodeStepName, mapping.Column, "classes are not sorted")
		}
		if err := uniqueNames(mapping.Column, mapping.Classes); err != nil {
			return err
		}
	}
	if obj.oneHot != nil {
		if err := uniqueNames(OneHotStepName, obj.oneHot.OutputColumns); err != nil {
			return err
		}
	}
	if obj.scaler != nil {
		for _, col := range obj.scaler.Columns {
			if !(col.Scale > 0) || math.IsInf(col.Scale, 0) || math.IsNaN(col.Center) || math.IsInf(col.Center, 0) {
				return newColumnError(ErrNumericDegeneracy, ScaleStepName, col.Column, "invalid stored statistics center=%v scale=%v", col.Center, col.Scale)
			}
		}
	}
	return nil
}

func uniqueNames(scope string, names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			return errs.NewStackError(fmt.Errorf("%w| duplicate name %q in %s", ErrSchema, name, scope))
		}
		seen[name] = struct{}{}
	}
	return nil
}

type artifactStoreDTO struct {
	FormatVersion     int             `json:"format_version"`
	ConfigFingerprint string          `json:"config_fingerprint"`
	ImputeValues      *ImputeValues   `json:"impute_values,omitempty"`
	OutlierBounds     *OutlierBounds  `json:"outlier_bounds,omitempty"`
	LabelMappings     []*LabelMapping `json:"label_mappings,omitempty"`
	OneHotSchema      *OneHotSchema   `json:"onehot_schema,omitempty"`
	ScalerParams      *ScalerParams   `json:"scaler_params,omitempty"`
	FinalColumns      []string        `json:"final_columns"`
	OutputColumns     []string        `json:"output_columns"`
}

// ToBytes serializes the store. The same fit always yields the same bytes.
func (obj *ArtifactStore) ToBytes() ([]byte, error) {
	data, err := json.Marshal(artifactStoreDTO{
		FormatVersion:     artifactFormatVersion,
		ConfigFingerprint: obj.configFingerprint,
		ImputeValues:      obj.impute,
		OutlierBounds:     obj.outlier,
		LabelMappings:     obj.labels,
		OneHotSchema:      obj.oneHot,
		ScalerParams:      obj.scaler,
		FinalColumns:      obj.finalColumns,
		OutputColumns:     obj.outputColumns,
	})
	if err != nil {
		return nil, errs.NewStackError(err)
	}
	return data, nil
}

func NewArtifactStoreFromBytes(data []byte) (*ArtifactStore, error) {
	var dto artifactStoreDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| unable to decode artifact store: %s", ErrConfiguration, err))
	}
	if dto.FormatVersion != artifactFormatVersion {
		return nil, errs.NewStackError(fmt.Errorf("%w| unsupported artifact format version %d", ErrConfiguration, dto.FormatVersion))
	}

	store := &ArtifactStore{
		configFingerprint: dto.ConfigFingerprint,
		impute:            dto.ImputeValues,
		outlier:           dto.OutlierBounds,
		labels:            dto.LabelMappings,
		oneHot:            dto.OneHotSchema,
		scaler:            dto.ScalerParams,
		finalColumns:      dto.FinalColumns,
		outputColumns:     dto.OutputColumns,
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return store, nil
}
