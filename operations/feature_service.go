package operations

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/alekLukanen/StrollerPricer/elements"
	"github.com/alekLukanen/StrollerPricer/features"
	"github.com/alekLukanen/StrollerPricer/storage"
)

type FeatureServiceOptions struct {
	PipelineName    string
	FitLockDuration time.Duration
}

// FeatureService is the only place listings become model features. Fits
// are coordinated across processes through the key storage lock, and every
// fitted store is persisted before it is published.
type FeatureService struct {
	logger    *slog.Logger
	allocator memory.Allocator

	table           *elements.Table
	registry        *features.Registry
	artifactStorage IArtifactStorage
	keyStorage      IKeyStorage

	options FeatureServiceOptions
}

func NewFeatureService(
	logger *slog.Logger,
	allocator memory.Allocator,
	registry *features.Registry,
	artifactStorage IArtifactStorage,
	keyStorage IKeyStorage,
	options FeatureServiceOptions,
) *FeatureService {
	if options.FitLockDuration <= 0 {
		options.FitLockDuration = 5 * time.Minute
	}
	return &FeatureService{
		logger:          logger,
		allocator:       allocator,
		table:           elements.ListingsTable(),
		registry:        registry,
		artifactStorage: artifactStorage,
		keyStorage:      keyStorage,
		options:         options,
	}
}

func (obj *FeatureService) DecodeListings(rows [][]byte) (arrow.Record, error) {
	return AvroToArrow(obj.allocator, obj.table, rows)
}

func (obj *FeatureService) FitListings(ctx context.Context, rows [][]byte) (*storage.ArtifactManifest, error) {
	rec, err := obj.DecodeListings(rows)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return obj.Fit(ctx, rec)
}

// Fit fits the registry's config on rec, persists the store as the next
// version and publishes it. Nothing is published when any stage fails.
func (obj *FeatureService) Fit(ctx context.Context, rec arrow.Record) (*storage.ArtifactManifest, error) {
	pipelineName := obj.options.PipelineName
	if err := obj.table.ValidateRecord(rec); err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| %v", features.ErrSchema, err))
	}

	lock, err := obj.keyStorage.ClaimFitLock(ctx, pipelineName, obj.options.FitLockDuration)
	if err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| pipeline %s: %v", ErrFitInProgress, pipelineName, err))
	}
	defer func() {
		if _, unlockErr := obj.keyStorage.ReleaseLock(context.WithoutCancel(ctx), lock); unlockErr != nil {
			obj.logger.Warn("failed releasing fit lock",
				slog.String("pipeline", pipelineName),
				slog.String("error", unlockErr.Error()),
			)
		}
	}()

	version, err := obj.keyStorage.NextVersion(ctx, pipelineName)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("unable to reserve a version for pipeline %s", pipelineName))
	}

	var manifest *storage.ArtifactManifest
	out, _, err := obj.registry.Fit(ctx, rec, func(ctx context.Context, store *features.ArtifactStore) error {
		persisted, err := obj.artifactStorage.PutArtifactStore(ctx, pipelineName, version, store)
		if err != nil {
			return err
		}
		if err := obj.keyStorage.SetCurrentVersion(ctx, pipelineName, version); err != nil {
			return err
		}
		manifest = persisted
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Release()

	if err := obj.keyStorage.SetLastFitTime(ctx, pipelineName, manifest.CreatedAt); err != nil {
		obj.logger.Warn("failed recording fit time", slog.String("error", errs.ErrorWithStack(err)))
	}

	obj.logger.Info("fit listings",
		slog.String("pipeline", pipelineName),
		slog.Int("version", version),
		slog.Int64("numRows", rec.NumRows()),
		slog.Int("outputWidth", len(manifest.OutputColumns)),
	)
	return manifest, nil
}

// Load publishes the current persisted store. When a model is given its
// tabular width is checked first and a mismatched store is never published.
func (obj *FeatureService) Load(ctx context.Context, model IPriceModel) (*storage.ArtifactManifest, error) {
	pipelineName := obj.options.PipelineName

	var manifest *storage.ArtifactManifest
	version, err := obj.keyStorage.GetCurrentVersion(ctx, pipelineName)
	if errors.Is(err, storage.ErrVersionNotSet) {
		manifest, err = obj.artifactStorage.GetLatestManifest(ctx, pipelineName)
	} else if err == nil {
		manifest, err = obj.artifactStorage.GetManifest(ctx, pipelineName, version)
	}
	if err != nil {
		return nil, err
	}

	store, err := obj.artifactStorage.GetArtifactStore(ctx, manifest)
	if err != nil {
		return nil, err
	}
	if model != nil {
		if err := checkWidth(store.OutputWidth(), model); err != nil {
			return nil, err
		}
	}
	if err := obj.registry.Publish(store); err != nil {
		return nil, err
	}

	obj.logger.Info("loaded artifact store",
		slog.String("pipeline", pipelineName),
		slog.Int("version", manifest.Version),
		slog.String("id", manifest.Id.String()),
	)
	return manifest, nil
}

func checkWidth(width int, model IPriceModel) error {
	if width != model.TabularWidth() {
		return errs.NewStackError(fmt.Errorf(
			"%w| features have %d columns, model expects %d", ErrWidthMismatch, width, model.TabularWidth(),
		))
	}
	return nil
}

func (obj *FeatureService) Transform(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
	if err := obj.table.ValidateRecord(rec); err != nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| %v", features.ErrSchema, err))
	}
	if _, ok := obj.registry.Current(); !ok {
		return nil, errs.NewStackError(ErrNoStorePublished)
	}
	return obj.registry.Transform(ctx, rec)
}

func (obj *FeatureService) TransformListings(ctx context.Context, rows [][]byte) (arrow.Record, error) {
	rec, err := obj.DecodeListings(rows)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return obj.Transform(ctx, rec)
}

// Predict prices each row of rec. images is either nil or holds one image
// per row. Predictions are rounded and never negative.
func (obj *FeatureService) Predict(
	ctx context.Context,
	model IPriceModel,
	normalizer IImageNormalizer,
	rec arrow.Record,
	images []image.Image,
) ([]int64, error) {
	if images != nil && len(images) != int(rec.NumRows()) {
		return nil, errs.NewStackError(fmt.Errorf(
			"%w| %d images for %d rows", ErrImageCountMismatch, len(images), rec.NumRows(),
		))
	}

	out, err := obj.Transform(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer out.Release()

	if err := checkWidth(int(out.NumCols()), model); err != nil {
		return nil, err
	}
	matrix, err := features.FeatureMatrix(out)
	if err != nil {
		return nil, err
	}

	prices := make([]int64, len(matrix))
	for i, row := range matrix {
		var img image.Image
		if images != nil {
			img = images[i]
			if normalizer != nil && img != nil {
				img, err = normalizer.Normalize(img)
				if err != nil {
					return nil, errs.Wrap(err, fmt.Errorf("unable to normalize image for row %d", i))
				}
			}
		}
		price, err := model.Predict(ctx, row, img)
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("prediction failed for row %d", i))
		}
		prices[i] = int64(math.Max(0, math.Round(price)))
	}
	return prices, nil
}

// PriceListings pulls the current listings from the source and prices them
// with their photos.
func (obj *FeatureService) PriceListings(
	ctx context.Context,
	source IListingSource,
	normalizer IImageNormalizer,
	model IPriceModel,
) (map[string]int64, error) {
	rows, err := source.Listings(ctx)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("unable to fetch listings"))
	}
	rec, err := obj.DecodeListings(rows)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	ids, ok := rec.Column(rec.Schema().FieldIndices("id")[0]).(*array.String)
	if !ok {
		return nil, errs.NewStackError(fmt.Errorf("%w| id column is not a string", features.ErrSchema))
	}
	images := make([]image.Image, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		if ids.IsNull(i) {
			continue
		}
		images[i], err = source.ListingImage(ctx, ids.Value(i))
		if err != nil {
			return nil, errs.Wrap(err, fmt.Errorf("unable to fetch image for listing %s", ids.Value(i)))
		}
	}

	prices, err := obj.Predict(ctx, model, normalizer, rec, images)
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(prices))
	for i, price := range prices {
		if ids.IsNull(i) {
			continue
		}
		result[ids.Value(i)] = price
	}
	return result, nil
}

type FeatureStatus struct {
	PipelineName      string    `json:"pipeline_name"`
	CurrentVersion    int       `json:"current_version"`
	LastFitTime       time.Time `json:"last_fit_time"`
	ConfigFingerprint string    `json:"config_fingerprint"`
	Published         bool      `json:"published"`
	OutputColumns     []string  `json:"output_columns"`
}

func (obj *FeatureService) Status(ctx context.Context) (FeatureStatus, error) {
	pipelineName := obj.options.PipelineName
	status := FeatureStatus{
		PipelineName:      pipelineName,
		ConfigFingerprint: obj.registry.ConfigFingerprint(),
	}

	version, err := obj.keyStorage.GetCurrentVersion(ctx, pipelineName)
	if err != nil && !errors.Is(err, storage.ErrVersionNotSet) {
		return FeatureStatus{}, err
	}
	status.CurrentVersion = version

	status.LastFitTime, err = obj.keyStorage.GetLastFitTime(ctx, pipelineName)
	if err != nil {
		return FeatureStatus{}, err
	}

	if store, ok := obj.registry.Current(); ok {
		status.Published = true
		status.OutputColumns = store.OutputColumns()
	}
	return status, nil
}
