package configutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/alekLukanen/errs"
	"github.com/titanous/json5"

	"github.com/alekLukanen/StrollerPricer/features"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalPath is the override file read next to name, e.g. service.local.json5
// for service.json5.
func LocalPath(name string) string {
	prefixname, ext := splitExt(filepath.Base(name))
	if ext == "" {
		return filepath.Join(filepath.Dir(name), prefixname+".local")
	}
	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefixname, ext))
}

// ReadConfig reads a json5 file and merges <name>.local.<ext> over it when
// present. os.ErrNotExist is returned only when neither file exists.
func ReadConfig[T any](logger *slog.Logger, name string) (T, error) {
	var out T
	allNotFound := true

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, errs.NewStackError(err)
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, errs.NewStackError(fmt.Errorf("%s: %w", name, err))
		}
		allNotFound = false
	}

	localFilepath := LocalPath(name)
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, errs.NewStackError(err)
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, errs.NewStackError(fmt.Errorf("%s: %w", localFilepath, err))
		}
		if allNotFound {
			out = override
		} else if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, errs.NewStackError(err)
		}
		logger.Info("merging config with local overrides", slog.String("local", localFilepath))
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadPipelineConfig reads a json5 pipeline config. The merged document is
// decoded strictly so unknown keys are still rejected.
func ReadPipelineConfig(logger *slog.Logger, name string) (features.Config, error) {
	raw, err := ReadConfig[map[string]any](logger, name)
	if err != nil {
		return features.Config{}, err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return features.Config{}, errs.NewStackError(err)
	}
	return features.DecodeConfigBytes(data)
}
