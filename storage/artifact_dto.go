package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/google/uuid"
)

// ArtifactManifest points at one persisted artifact store version. The
// store bytes themselves carry no identity or time so that refitting the
// same data reproduces them exactly; both live here instead.
type ArtifactManifest struct {
	Id                uuid.UUID `json:"id"`
	PipelineName      string    `json:"pipeline_name"`
	Version           int       `json:"version"`
	ConfigFingerprint string    `json:"config_fingerprint"`
	CreatedAt         time.Time `json:"created_at"`
	OutputColumns     []string  `json:"output_columns"`
	StoreKey          string    `json:"store_key"`
}

func NewArtifactManifestFromBytes(data []byte) (*ArtifactManifest, error) {
	manifest := &ArtifactManifest{}
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| %v", ErrManifestInvalid, err))
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (obj *ArtifactManifest) ToBytes() ([]byte, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

func (obj *ArtifactManifest) Validate() error {
	if obj.Id == uuid.Nil {
		return errs.NewStackError(fmt.Errorf("%w| id is required", ErrManifestInvalid))
	}
	if obj.PipelineName == "" {
		return errs.NewStackError(fmt.Errorf("%w| pipeline name is required", ErrManifestInvalid))
	}
	if obj.Version <= 0 {
		return errs.NewStackError(fmt.Errorf("%w| version must be positive", ErrManifestInvalid))
	}
	if obj.ConfigFingerprint == "" {
		return errs.NewStackError(fmt.Errorf("%w| config fingerprint is required", ErrManifestInvalid))
	}
	if obj.StoreKey == "" {
		return errs.NewStackError(fmt.Errorf("%w| store key is required", ErrManifestInvalid))
	}
	if len(obj.OutputColumns) == 0 {
		return errs.NewStackError(fmt.Errorf("%w| output columns are required", ErrManifestInvalid))
	}
	sorted := slices.Clone(obj.OutputColumns)
	slices.Sort(sorted)
	if len(slices.Compact(sorted)) != len(obj.OutputColumns) {
		return errs.NewStackError(fmt.Errorf("%w| output columns must be unique", ErrManifestInvalid))
	}
	return nil
}
