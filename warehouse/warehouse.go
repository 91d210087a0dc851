package warehouse

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/alekLukanen/StrollerPricer/features"
	"github.com/alekLukanen/StrollerPricer/operations"
	"github.com/alekLukanen/StrollerPricer/storage"
)

type ObjectStorageConfig struct {
	Endpoint     string `json:"endpoint"`
	Region       string `json:"region"`
	AuthKey      string `json:"auth_key"`
	AuthSecret   string `json:"auth_secret"`
	UsePathStyle bool   `json:"use_path_style"`
	BucketName   string `json:"bucket_name"`
	KeyPrefix    string `json:"key_prefix"`
}

type KeyStorageConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	KeyPrefix string `json:"key_prefix"`
}

// Options is the service config file layout.
type Options struct {
	PipelineName       string              `json:"pipeline_name"`
	PipelineConfigFile string              `json:"pipeline_config_file"`
	FitLockSeconds     int                 `json:"fit_lock_seconds"`
	ReloadSeconds      int                 `json:"reload_seconds"`
	ObjectStorage      ObjectStorageConfig `json:"object_storage"`
	KeyStorage         KeyStorageConfig    `json:"key_storage"`
}

type Warehouse struct {
	logger          *slog.Logger
	keyStorage      *storage.KeyStorage
	artifactStorage storage.IArtifactStorage

	name           string
	featureService *operations.FeatureService
	reloadInterval time.Duration
	loadedVersion  int
}

func NewWarehouse(
	ctx context.Context,
	logger *slog.Logger,
	options Options,
	pipelineConfig features.Config,
) (*Warehouse, error) {
	keyStorage, err := storage.NewKeyStorage(ctx, logger, storage.KeyStorageOptions{
		Address:   options.KeyStorage.Address,
		Password:  options.KeyStorage.Password,
		KeyPrefix: options.KeyStorage.KeyPrefix,
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}

	objectStorageOptions := storage.NewObjectStorageOptionsFromStaticCredentials(
		options.ObjectStorage.Endpoint,
		options.ObjectStorage.Region,
		options.ObjectStorage.AuthKey,
		options.ObjectStorage.AuthSecret,
		options.ObjectStorage.UsePathStyle,
	)
	if options.ObjectStorage.AuthKey == "" {
		objectStorageOptions.AuthType = ""
	}
	objectStorage, err := storage.NewObjectStorage(ctx, logger, *objectStorageOptions)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	artifactStorage := storage.NewArtifactStorage(logger, objectStorage, storage.ArtifactStorageOptions{
		BucketName: options.ObjectStorage.BucketName,
		KeyPrefix:  options.ObjectStorage.KeyPrefix,
	})

	allocator := memory.NewGoAllocator()
	registry, err := features.NewRegistry(logger, features.NewPipeline(logger, allocator), pipelineConfig)
	if err != nil {
		return nil, errs.Wrap(err)
	}

	featureService := operations.NewFeatureService(
		logger,
		allocator,
		registry,
		artifactStorage,
		keyStorage,
		operations.FeatureServiceOptions{
			PipelineName:    options.PipelineName,
			FitLockDuration: time.Duration(options.FitLockSeconds) * time.Second,
		},
	)

	reloadInterval := time.Duration(options.ReloadSeconds) * time.Second
	if reloadInterval <= 0 {
		reloadInterval = time.Minute
	}

	return &Warehouse{
		logger:          logger,
		keyStorage:      keyStorage,
		artifactStorage: artifactStorage,
		name:            options.PipelineName,
		featureService:  featureService,
		reloadInterval:  reloadInterval,
	}, nil
}

func (obj *Warehouse) FeatureService() *operations.FeatureService {
	return obj.featureService
}

// Manifest reads a persisted manifest; version 0 means the latest.
func (obj *Warehouse) Manifest(ctx context.Context, version int) (*storage.ArtifactManifest, error) {
	if version == 0 {
		return obj.artifactStorage.GetLatestManifest(ctx, obj.name)
	}
	return obj.artifactStorage.GetManifest(ctx, obj.name, version)
}

func (obj *Warehouse) ArtifactStore(ctx context.Context, manifest *storage.ArtifactManifest) (*features.ArtifactStore, error) {
	return obj.artifactStorage.GetArtifactStore(ctx, manifest)
}

// Run keeps the published store in step with the version pointer so that
// fits made by other processes are picked up. model may be nil.
func (obj *Warehouse) Run(ctx context.Context, model operations.IPriceModel) error {
	ticker := time.NewTicker(obj.reloadInterval)
	defer ticker.Stop()

	for {
		if err := obj.reload(ctx, model); err != nil {
			if errors.Is(err, operations.ErrWidthMismatch) {
				return errs.Wrap(err)
			}
			obj.logger.Warn("reload failed", slog.String("pipeline", obj.name), slog.String("error", errs.ErrorWithStack(err)))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (obj *Warehouse) reload(ctx context.Context, model operations.IPriceModel) error {
	status, err := obj.featureService.Status(ctx)
	if err != nil {
		return err
	}
	if !needsReload(status, obj.loadedVersion) {
		return nil
	}
	manifest, err := obj.featureService.Load(ctx, model)
	if errors.Is(err, storage.ErrArtifactStoreNotFound) {
		obj.logger.Info("no artifact store to load yet", slog.String("pipeline", obj.name))
		return nil
	} else if err != nil {
		return err
	}
	obj.loadedVersion = manifest.Version
	return nil
}

// needsReload reports whether the version pointer has moved past the loaded
// store. An unset pointer (version 0) never replaces a published store; the
// fallback load already picked the latest manifest.
func needsReload(status operations.FeatureStatus, loadedVersion int) bool {
	if !status.Published {
		return true
	}
	return status.CurrentVersion != 0 && status.CurrentVersion != loadedVersion
}

func (obj *Warehouse) Close() error {
	return obj.keyStorage.Close()
}
