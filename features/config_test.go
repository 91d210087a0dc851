package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeConfig(t *testing.T) {
	data := []byte(`{
		"select_cols": ["condition", "model", "price"],
		"impute": {"strategy": "constant", "cols": ["model"], "fill_value": 0},
		"outlier": {"method": "iqr", "cols": ["price"]},
		"onehot": {"cols": ["condition"], "drop_first": true},
		"scale": {"cols": ["price"]}
	}`)

	cfg, err := DecodeConfigBytes(data)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, []string{"condition", "model", "price"}, cfg.SelectCols)
	assert.Equal(t, int64(0), cfg.Impute.FillValue)
	assert.Equal(t, OutlierIQR, cfg.Outlier.Method)
	assert.Nil(t, cfg.Outlier.Threshold)
	assert.True(t, cfg.OneHot.DropFirst)
	assert.Equal(t, ScaleStandard, cfg.Scale.Method)
	assert.Nil(t, cfg.LabelEncode)
	assert.Nil(t, cfg.FinalCols)
}

func TestDecodeConfigErrors(t *testing.T) {
	testCases := []struct {
		caseName    string
		data        string
		expectedErr error
	}{
		{caseName: "unknown key", data: `{"selectcols": ["a"]}`, expectedErr: ErrConfiguration},
		{caseName: "unknown step option", data: `{"scale": {"cols": ["a"], "with_mean": true}}`, expectedErr: ErrConfiguration},
		{caseName: "unknown scale method", data: `{"scale": {"cols": ["a"], "method": "log"}}`, expectedErr: ErrConfiguration},
		{caseName: "unknown impute strategy", data: `{"impute": {"cols": ["a"], "strategy": "ffill"}}`, expectedErr: ErrConfiguration},
		{caseName: "constant without fill value", data: `{"impute": {"cols": ["a"], "strategy": "constant"}}`, expectedErr: ErrConfiguration},
		{caseName: "fill value without constant", data: `{"impute": {"cols": ["a"], "strategy": "mean", "fill_value": 1}}`, expectedErr: ErrConfiguration},
		{caseName: "iqr with threshold", data: `{"outlier": {"cols": ["a"], "method": "iqr", "threshold": 2}}`, expectedErr: ErrConfiguration},
		{caseName: "negative threshold", data: `{"outlier": {"cols": ["a"], "threshold": -1}}`, expectedErr: ErrConfiguration},
		{caseName: "unknown unseen policy", data: `{"label_encode": {"cols": ["a"], "unseen_policy": "skip"}}`, expectedErr: ErrConfiguration},
		{caseName: "empty column list", data: `{"onehot": {"cols": []}}`, expectedErr: ErrConfiguration},
		{caseName: "duplicate columns", data: `{"select_cols": ["a", "a"]}`, expectedErr: ErrConfiguration},
		{caseName: "encoded twice", data: `{"label_encode": {"cols": ["a"]}, "onehot": {"cols": ["a"]}}`, expectedErr: ErrConfiguration},
		{caseName: "not json", data: `select_cols: a`, expectedErr: ErrConfiguration},
		{caseName: "valid", data: `{"outlier": {"cols": ["a"]}}`, expectedErr: nil},
	}

	for _, testCase := range testCases {
		t.Run(testCase.caseName, func(t *testing.T) {
			_, err := DecodeConfigBytes([]byte(testCase.data))
			if !errors.Is(err, testCase.expectedErr) {
				t.Errorf("expected error '%s' but received '%s'", testCase.expectedErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{
		Impute:      &ImputeStep{Cols: []string{"a"}},
		Outlier:     &OutlierStep{Cols: []string{"a"}},
		LabelEncode: &LabelEncodeStep{Cols: []string{"b"}},
		Scale:       &ScaleStep{Cols: []string{"a"}},
	}

	defaulted := cfg.WithDefaults()
	assert.Equal(t, ImputeMean, defaulted.Impute.Strategy)
	assert.Equal(t, OutlierZScore, defaulted.Outlier.Method)
	assert.Equal(t, DefaultZScoreThreshold, *defaulted.Outlier.Threshold)
	assert.Equal(t, UnseenError, defaulted.LabelEncode.UnseenPolicy)
	assert.Equal(t, ScaleStandard, defaulted.Scale.Method)

	// the receiver is left untouched
	assert.Equal(t, ImputeStrategy(""), cfg.Impute.Strategy)
	assert.Nil(t, cfg.Outlier.Threshold)
}

func TestConfigFingerprint(t *testing.T) {
	implicit := Config{Scale: &ScaleStep{Cols: []string{"price"}}}
	explicit := Config{Scale: &ScaleStep{Cols: []string{"price"}, Method: ScaleStandard}}
	other := Config{Scale: &ScaleStep{Cols: []string{"price"}, Method: ScaleRobust}}

	fp1, err := implicit.Fingerprint()
	assert.Nil(t, err)
	fp2, err := explicit.Fingerprint()
	assert.Nil(t, err)
	fp3, err := other.Fingerprint()
	assert.Nil(t, err)

	assert.Len(t, fp1, 16)
	assert.Equal(t, fp1, fp2)
	assert.NotEqual(t, fp1, fp3)
}

func TestConfigStepOrder(t *testing.T) {
	cfg := Config{
		FinalCols:   []string{"a"},
		Scale:       &ScaleStep{Cols: []string{"a"}},
		SelectCols:  []string{"a", "b"},
		LabelEncode: &LabelEncodeStep{Cols: []string{"b"}},
	}

	names := make([]string, 0)
	for _, s := range cfg.steps() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{SelectStepName, LabelEncodeStepName, ScaleStepName, FinalStepName}, names)
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())
}
