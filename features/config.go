package features

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/alekLukanen/errs"
	"github.com/cespare/xxhash/v2"
)

const (
	SelectStepName      = "select_cols"
	ImputeStepName      = "impute"
	OutlierStepName     = "outlier"
	LabelEncodeStepName = "label_encode"
	OneHotStepName      = "onehot"
	ScaleStepName       = "scale"
	FinalStepName       = "final_cols"
)

type ImputeStrategy string

const (
	ImputeMean     ImputeStrategy = "mean"
	ImputeMedian   ImputeStrategy = "median"
	ImputeMode     ImputeStrategy = "mode"
	ImputeConstant ImputeStrategy = "constant"
)

type OutlierMethod string

const (
	OutlierZScore OutlierMethod = "zscore"
	OutlierIQR    OutlierMethod = "iqr"
)

const DefaultZScoreThreshold = 3.0

type UnseenPolicy string

const (
	// UnseenError fails the transform on a value the mapping never saw.
	UnseenError UnseenPolicy = "error"
	// UnseenUnknown maps unseen values to the reserved code len(classes).
	UnseenUnknown UnseenPolicy = "unknown"
)

type ScaleMethod string

const (
	ScaleStandard ScaleMethod = "standard"
	ScaleMinMax   ScaleMethod = "minmax"
	ScaleRobust   ScaleMethod = "robust"
)

type ImputeStep struct {
	Strategy  ImputeStrategy `json:"strategy,omitempty"`
	Cols      []string       `json:"cols"`
	FillValue any            `json:"fill_value,omitempty"`
}

type OutlierStep struct {
	Method    OutlierMethod `json:"method,omitempty"`
	Cols      []string      `json:"cols"`
	Threshold *float64      `json:"threshold,omitempty"`
}

type LabelEncodeStep struct {
	Cols         []string     `json:"cols"`
	UnseenPolicy UnseenPolicy `json:"unseen_policy,omitempty"`
}

type OneHotStep struct {
	Cols      []string `json:"cols"`
	DropFirst bool     `json:"drop_first,omitempty"`
}

type ScaleStep struct {
	Cols   []string    `json:"cols"`
	Method ScaleMethod `json:"method,omitempty"`
}

// Config lists the pipeline steps to run. A nil step is skipped. Steps
// always run in the order the fields are declared.
type Config struct {
	SelectCols  []string         `json:"select_cols,omitempty"`
	Impute      *ImputeStep      `json:"impute,omitempty"`
	Outlier     *OutlierStep     `json:"outlier,omitempty"`
	LabelEncode *LabelEncodeStep `json:"label_encode,omitempty"`
	OneHot      *OneHotStep      `json:"onehot,omitempty"`
	Scale       *ScaleStep       `json:"scale,omitempty"`
	FinalCols   []string         `json:"final_cols,omitempty"`
}

// DecodeConfig reads a JSON config. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	dec.UseNumber()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, errs.NewStackError(fmt.Errorf("%w| %s", ErrConfiguration, err))
	}
	if cfg.Impute != nil {
		fill, err := normalizeFillValue(cfg.Impute.FillValue)
		if err != nil {
			return Config{}, err
		}
		cfg.Impute.FillValue = fill
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.WithDefaults(), nil
}

func DecodeConfigBytes(data []byte) (Config, error) {
	return DecodeConfig(bytes.NewReader(data))
}

// normalizeFillValue turns a decoded json.Number into int64 when it is
// integral and float64 otherwise.
func normalizeFillValue(v any) (any, error) {
	num, ok := v.(json.Number)
	if !ok {
		return v, nil
	}
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| fill_value %s", ErrConfiguration, num))
	}
	return f, nil
}

// WithDefaults returns a copy with omitted options filled in.
func (obj Config) WithDefaults() Config {
	cfg := obj.clone()
	if cfg.Impute != nil && cfg.Impute.Strategy == "" {
		cfg.Impute.Strategy = ImputeMean
	}
	if cfg.Outlier != nil {
		if cfg.Outlier.Method == "" {
			cfg.Outlier.Method = OutlierZScore
		}
		if cfg.Outlier.Method == OutlierZScore && cfg.Outlier.Threshold == nil {
			threshold := DefaultZScoreThreshold
			cfg.Outlier.Threshold = &threshold
		}
	}
	if cfg.LabelEncode != nil && cfg.LabelEncode.UnseenPolicy == "" {
		cfg.LabelEncode.UnseenPolicy = UnseenError
	}
	if cfg.Scale != nil && cfg.Scale.Method == "" {
		cfg.Scale.Method = ScaleStandard
	}
	return cfg
}

func (obj Config) clone() Config {
	cfg := Config{
		SelectCols: slices.Clone(obj.SelectCols),
		FinalCols:  slices.Clone(obj.FinalCols),
	}
	if obj.Impute != nil {
		step := *obj.Impute
		step.Cols = slices.Clone(step.Cols)
		cfg.Impute = &step
	}
	if obj.Outlier != nil {
		step := *obj.Outlier
		step.Cols = slices.Clone(step.Cols)
		if step.Threshold != nil {
			threshold := *step.Threshold
			step.Threshold = &threshold
		}
		cfg.Outlier = &step
	}
	if obj.LabelEncode != nil {
		step := *obj.LabelEncode
		step.Cols = slices.Clone(step.Cols)
		cfg.LabelEncode = &step
	}
	if obj.OneHot != nil {
		step := *obj.OneHot
		step.Cols = slices.Clone(step.Cols)
		cfg.OneHot = &step
	}
	if obj.Scale != nil {
		step := *obj.Scale
		step.Cols = slices.Clone(step.Cols)
		cfg.Scale = &step
	}
	return cfg
}

func (obj Config) Validate() error {
	if obj.SelectCols != nil {
		if err := validateColumnList(SelectStepName, obj.SelectCols); err != nil {
			return err
		}
	}

	if step := obj.Impute; step != nil {
		if err := validateColumnList(ImputeStepName, step.Cols); err != nil {
			return err
		}
		switch step.Strategy {
		case "", ImputeMean, ImputeMedian, ImputeMode:
			if step.FillValue != nil {
				return newColumnError(ErrConfiguration, ImputeStepName, "", "fill_value requires the constant strategy, got %q", step.Strategy)
			}
		case ImputeConstant:
			switch step.FillValue.(type) {
			case string, bool, int64, float64, int:
			case nil:
				return newColumnError(ErrConfiguration, ImputeStepName, "", "constant strategy requires fill_value")
			default:
				return newColumnError(ErrConfiguration, ImputeStepName, "", "unsupported fill_value %v (%T)", step.FillValue, step.FillValue)
			}
		default:
			return newColumnError(ErrConfiguration, ImputeStepName, "", "unknown strategy %q", step.Strategy)
		}
	}

	if step := obj.Outlier; step != nil {
		if err := validateColumnList(OutlierStepName, step.Cols); err != nil {
			return err
		}
		switch step.Method {
		case "", OutlierZScore:
			if step.Threshold != nil && !(*step.Threshold > 0) {
				return newColumnError(ErrConfiguration, OutlierStepName, "", "threshold must be positive, got %v", *step.Threshold)
			}
		case OutlierIQR:
			if step.Threshold != nil {
				return newColumnError(ErrConfiguration, OutlierStepName, "", "threshold is not used by the iqr method")
			}
		default:
			return newColumnError(ErrConfiguration, OutlierStepName, "", "unknown method %q", step.Method)
		}
	}

	if step := obj.LabelEncode; step != nil {
		if err := validateColumnList(LabelEncodeStepName, step.Cols); err != nil {
			return err
		}
		switch step.UnseenPolicy {
		case "", UnseenError, UnseenUnknown:
		default:
			return newColumnError(ErrConfiguration, LabelEncodeStepName, "", "unknown unseen_policy %q", step.UnseenPolicy)
		}
	}

	if step := obj.OneHot; step != nil {
		if err := validateColumnList(OneHotStepName, step.Cols); err != nil {
			return err
		}
	}

	if step := obj.Scale; step != nil {
		if err := validateColumnList(ScaleStepName, step.Cols); err != nil {
			return err
		}
		switch step.Method {
		case "", ScaleStandard, ScaleMinMax, ScaleRobust:
		default:
			return newColumnError(ErrConfiguration, ScaleStepName, "", "unknown method %q", step.Method)
		}
	}

	// a column cannot be both label encoded and one-hot expanded
	if obj.LabelEncode != nil && obj.OneHot != nil {
		for _, col := range obj.OneHot.Cols {
			if slices.Contains(obj.LabelEncode.Cols, col) {
				return newColumnError(ErrConfiguration, OneHotStepName, col, "column is also label encoded")
			}
		}
	}

	if obj.FinalCols != nil {
		if err := validateColumnList(FinalStepName, obj.FinalCols); err != nil {
			return err
		}
	}

	return nil
}

func validateColumnList(step string, cols []string) error {
	if len(cols) == 0 {
		return newColumnError(ErrConfiguration, step, "", "column list is empty")
	}
	seen := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		if col == "" {
			return newColumnError(ErrConfiguration, step, "", "empty column name")
		}
		if _, ok := seen[col]; ok {
			return newColumnError(ErrConfiguration, step, col, "duplicate column")
		}
		seen[col] = struct{}{}
	}
	return nil
}

// Fingerprint identifies the config an artifact store was fit with.
// Configs that differ only in omitted defaults share a fingerprint.
func (obj Config) Fingerprint() (string, error) {
	data, err := json.Marshal(obj.WithDefaults())
	if err != nil {
		return "", errs.NewStackError(err)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// steps returns the configured steps in pipeline order.
func (obj Config) steps() []step {
	steps := make([]step, 0, 7)
	if obj.SelectCols != nil {
		steps = append(steps, &selectStep{cols: obj.SelectCols})
	}
	if obj.Impute != nil {
		steps = append(steps, &imputeStep{cfg: *obj.Impute})
	}
	if obj.Outlier != nil {
		steps = append(steps, &outlierStep{cfg: *obj.Outlier})
	}
	if obj.LabelEncode != nil {
		steps = append(steps, &labelEncodeStep{cfg: *obj.LabelEncode})
	}
	if obj.OneHot != nil {
		steps = append(steps, &oneHotStep{cfg: *obj.OneHot})
	}
	if obj.Scale != nil {
		steps = append(steps, &scaleStep{cfg: *obj.Scale})
	}
	if obj.FinalCols != nil {
		steps = append(steps, &finalStep{cols: obj.FinalCols})
	}
	return steps
}
