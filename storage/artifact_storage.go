package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/google/uuid"

	"github.com/alekLukanen/StrollerPricer/features"
)

type IArtifactStorage interface {
	PutArtifactStore(context.Context, string, int, *features.ArtifactStore) (*ArtifactManifest, error)
	GetLatestManifest(context.Context, string) (*ArtifactManifest, error)
	GetManifest(context.Context, string, int) (*ArtifactManifest, error)
	GetArtifactStore(context.Context, *ArtifactManifest) (*features.ArtifactStore, error)
}

type ArtifactStorageOptions struct {
	BucketName string
	KeyPrefix  string
}

// ArtifactStorage keeps every fitted store as an immutable versioned object
// next to a small manifest. A version becomes visible once its manifest is
// written, so the store object is always uploaded first.
type ArtifactStorage struct {
	logger *slog.Logger

	IObjectStorage

	bucketName string
	keyPrefix  string
	now        func() time.Time
}

func NewArtifactStorage(
	logger *slog.Logger,
	objectStorage IObjectStorage,
	options ArtifactStorageOptions,
) *ArtifactStorage {
	return &ArtifactStorage{
		logger:         logger,
		IObjectStorage: objectStorage,
		bucketName:     options.BucketName,
		keyPrefix:      options.KeyPrefix,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (obj *ArtifactStorage) manifestPrefix(pipelineName string) string {
	return fmt.Sprintf("%s/pipeline-state/artifacts/%s/manifest_", obj.keyPrefix, pipelineName)
}

func (obj *ArtifactStorage) ManifestKey(pipelineName string, version int) string {
	return fmt.Sprintf("%s%d.json", obj.manifestPrefix(pipelineName), version)
}

func (obj *ArtifactStorage) StoreKey(pipelineName string, version int) string {
	return fmt.Sprintf("%s/pipeline-state/artifacts/%s/v%d/store.json", obj.keyPrefix, pipelineName, version)
}

func (obj *ArtifactStorage) PutArtifactStore(
	ctx context.Context,
	pipelineName string,
	version int,
	store *features.ArtifactStore,
) (*ArtifactManifest, error) {
	if store == nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| cannot persist a nil store", features.ErrArtifactNotFound))
	}

	storeData, err := store.ToBytes()
	if err != nil {
		return nil, err
	}

	manifest := &ArtifactManifest{
		Id:                uuid.New(),
		PipelineName:      pipelineName,
		Version:           version,
		ConfigFingerprint: store.ConfigFingerprint(),
		CreatedAt:         obj.now(),
		OutputColumns:     store.OutputColumns(),
		StoreKey:          obj.StoreKey(pipelineName, version),
	}
	manifestData, err := manifest.ToBytes()
	if err != nil {
		return nil, err
	}

	if err := obj.Upload(ctx, obj.bucketName, manifest.StoreKey, storeData); err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed uploading artifact store %s version %d", pipelineName, version))
	}
	if err := obj.Upload(ctx, obj.bucketName, obj.ManifestKey(pipelineName, version), manifestData); err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("failed uploading manifest %s version %d", pipelineName, version))
	}

	obj.logger.Info("persisted artifact store",
		slog.String("pipeline", pipelineName),
		slog.Int("version", version),
		slog.String("id", manifest.Id.String()),
	)
	return manifest, nil
}

func (obj *ArtifactStorage) GetLatestManifest(ctx context.Context, pipelineName string) (*ArtifactManifest, error) {
	version, err := obj.LatestVersion(ctx, pipelineName)
	if err != nil {
		return nil, err
	}
	return obj.GetManifest(ctx, pipelineName, version)
}

// LatestVersion returns the highest version that has a manifest. Keys that
// do not parse as a version are ignored.
func (obj *ArtifactStorage) LatestVersion(ctx context.Context, pipelineName string) (int, error) {
	prefix := obj.manifestPrefix(pipelineName)
	keys, err := obj.ListObjects(ctx, obj.bucketName, prefix)
	if err != nil {
		return 0, errs.Wrap(err, fmt.Errorf("failed listing manifests for pipeline %s", pipelineName))
	}

	var newest int
	for _, key := range keys {
		cleanedKey := strings.TrimPrefix(key, prefix)
		cleanedKey = strings.TrimSuffix(cleanedKey, ".json")
		version, err := strconv.Atoi(cleanedKey)
		if err != nil {
			continue
		}
		if version > newest {
			newest = version
		}
	}
	if newest == 0 {
		return 0, errs.NewStackError(fmt.Errorf("%w| pipeline %s has no manifests", ErrArtifactStoreNotFound, pipelineName))
	}
	return newest, nil
}

func (obj *ArtifactStorage) GetManifest(ctx context.Context, pipelineName string, version int) (*ArtifactManifest, error) {
	data, err := obj.Download(ctx, obj.bucketName, obj.ManifestKey(pipelineName, version))
	if errors.Is(err, ErrObjectNotFound) {
		return nil, errs.NewStackError(fmt.Errorf("%w| pipeline %s version %d", ErrArtifactStoreNotFound, pipelineName, version))
	} else if err != nil {
		return nil, err
	}
	manifest, err := NewArtifactManifestFromBytes(data)
	if err != nil {
		return nil, err
	}
	if manifest.PipelineName != pipelineName || manifest.Version != version {
		return nil, errs.NewStackError(fmt.Errorf(
			"%w| manifest at %s describes pipeline %s version %d",
			ErrManifestInvalid, obj.ManifestKey(pipelineName, version), manifest.PipelineName, manifest.Version,
		))
	}
	return manifest, nil
}

func (obj *ArtifactStorage) GetArtifactStore(ctx context.Context, manifest *ArtifactManifest) (*features.ArtifactStore, error) {
	data, err := obj.Download(ctx, obj.bucketName, manifest.StoreKey)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, errs.NewStackError(fmt.Errorf("%w| store object %s", ErrArtifactStoreNotFound, manifest.StoreKey))
	} else if err != nil {
		return nil, err
	}
	store, err := features.NewArtifactStoreFromBytes(data)
	if err != nil {
		return nil, err
	}
	if store.ConfigFingerprint() != manifest.ConfigFingerprint {
		return nil, errs.NewStackError(fmt.Errorf(
			"%w| store fingerprint %s does not match manifest fingerprint %s",
			ErrManifestInvalid, store.ConfigFingerprint(), manifest.ConfigFingerprint,
		))
	}
	return store, nil
}
