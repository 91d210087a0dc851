package configutil

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alekLukanen/StrollerPricer/features"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unable to write %s: %s", path, err)
	}
}

type sampleConfig struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Retries int    `json:"retries"`
}

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		caseName string
		name     string
		expected string
	}{
		{caseName: "json5", name: "conf/service.json5", expected: "conf/service.local.json5"},
		{caseName: "dotted name", name: "conf/pipeline.prod.json5", expected: "conf/pipeline.prod.local.json5"},
		{caseName: "no extension", name: "conf/service", expected: "conf/service.local"},
	}
	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			assert.Equal(t, tc.expected, LocalPath(tc.name))
		})
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "service.json5")

	testCases := []struct {
		caseName    string
		base        string
		local       string
		expected    sampleConfig
		expectedErr error
	}{
		{
			caseName: "base only",
			base:     `{name: "pricer", address: "localhost:6379", retries: 2, // trailing comment
}`,
			expected: sampleConfig{Name: "pricer", Address: "localhost:6379", Retries: 2},
		},
		{
			caseName: "local overrides base",
			base:     `{name: "pricer", address: "localhost:6379", retries: 2}`,
			local:    `{address: "redis:6379"}`,
			expected: sampleConfig{Name: "pricer", Address: "redis:6379", Retries: 2},
		},
		{
			caseName: "local only",
			local:    `{name: "local"}`,
			expected: sampleConfig{Name: "local"},
		},
		{
			caseName:    "neither file",
			expectedErr: os.ErrNotExist,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.caseName, func(t *testing.T) {
			os.Remove(name)
			os.Remove(LocalPath(name))
			if tc.base != "" {
				writeFile(t, name, tc.base)
			}
			if tc.local != "" {
				writeFile(t, LocalPath(name), tc.local)
			}

			result, err := ReadConfig[sampleConfig](testLogger(), name)
			if tc.expectedErr != nil {
				if !errors.Is(err, tc.expectedErr) {
					t.Errorf("expected error '%s' but received '%s'", tc.expectedErr, err)
				}
				return
			}
			if !assert.Nil(t, err) {
				return
			}
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestReadPipelineConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "pipeline.json5")

	writeFile(t, name, `{
  // listing features
  select_cols: ["condition", "price"],
  impute: {strategy: "constant", cols: ["price"], fill_value: 0},
  onehot: {cols: ["condition"]},
  scale: {cols: ["price"], method: "standard"},
}`)
	writeFile(t, LocalPath(name), `{scale: {cols: ["price"], method: "robust"}}`)

	cfg, err := ReadPipelineConfig(testLogger(), name)
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, []string{"condition", "price"}, cfg.SelectCols)
	assert.Equal(t, features.ScaleRobust, cfg.Scale.Method)
	assert.Equal(t, int64(0), cfg.Impute.FillValue)
}

func TestReadPipelineConfigRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "pipeline.json5")
	writeFile(t, name, `{select_cols: ["price"], sclae: {cols: ["price"]}}`)

	_, err := ReadPipelineConfig(testLogger(), name)
	if !errors.Is(err, features.ErrConfiguration) {
		t.Errorf("expected error '%s' but received '%s'", features.ErrConfiguration, err)
	}
}
