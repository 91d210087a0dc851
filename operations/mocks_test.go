package operations

import (
	"context"
	"image"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/alekLukanen/StrollerPricer/features"
	"github.com/alekLukanen/StrollerPricer/storage"
)

type MockLock struct {
	mock.Mock
}

func (obj *MockLock) TryLockContext(ctx context.Context) error {
	return obj.Called(ctx).Error(0)
}

func (obj *MockLock) UnlockContext(ctx context.Context) (bool, error) {
	ret := obj.Called(ctx)
	return ret.Bool(0), ret.Error(1)
}

func (obj *MockLock) Name() string {
	return "fit-lock"
}

type MockKeyStorage struct {
	mock.Mock
}

func (obj *MockKeyStorage) ClaimFitLock(ctx context.Context, pipelineName string, duration time.Duration) (storage.ILock, error) {
	ret := obj.Called(ctx, pipelineName, duration)
	lock, _ := ret.Get(0).(storage.ILock)
	return lock, ret.Error(1)
}

func (obj *MockKeyStorage) ReleaseLock(ctx context.Context, lock storage.ILock) (bool, error) {
	ret := obj.Called(ctx, lock)
	return ret.Bool(0), ret.Error(1)
}

func (obj *MockKeyStorage) NextVersion(ctx context.Context, pipelineName string) (int, error) {
	ret := obj.Called(ctx, pipelineName)
	return ret.Int(0), ret.Error(1)
}

func (obj *MockKeyStorage) GetCurrentVersion(ctx context.Context, pipelineName string) (int, error) {
	ret := obj.Called(ctx, pipelineName)
	return ret.Int(0), ret.Error(1)
}

func (obj *MockKeyStorage) SetCurrentVersion(ctx context.Context, pipelineName string, version int) error {
	return obj.Called(ctx, pipelineName, version).Error(0)
}

func (obj *MockKeyStorage) GetLastFitTime(ctx context.Context, pipelineName string) (time.Time, error) {
	ret := obj.Called(ctx, pipelineName)
	return ret.Get(0).(time.Time), ret.Error(1)
}

func (obj *MockKeyStorage) SetLastFitTime(ctx context.Context, pipelineName string, ts time.Time) error {
	return obj.Called(ctx, pipelineName, ts).Error(0)
}

type MockArtifactStorage struct {
	mock.Mock
}

func (obj *MockArtifactStorage) PutArtifactStore(ctx context.Context, pipelineName string, version int, store *features.ArtifactStore) (*storage.ArtifactManifest, error) {
	ret := obj.Called(ctx, pipelineName, version, store)
	manifest, _ := ret.Get(0).(*storage.ArtifactManifest)
	return manifest, ret.Error(1)
}

func (obj *MockArtifactStorage) GetLatestManifest(ctx context.Context, pipelineName string) (*storage.ArtifactManifest, error) {
	ret := obj.Called(ctx, pipelineName)
	manifest, _ := ret.Get(0).(*storage.ArtifactManifest)
	return manifest, ret.Error(1)
}

func (obj *MockArtifactStorage) GetManifest(ctx context.Context, pipelineName string, version int) (*storage.ArtifactManifest, error) {
	ret := obj.Called(ctx, pipelineName, version)
	manifest, _ := ret.Get(0).(*storage.ArtifactManifest)
	return manifest, ret.Error(1)
}

func (obj *MockArtifactStorage) GetArtifactStore(ctx context.Context, manifest *storage.ArtifactManifest) (*features.ArtifactStore, error) {
	ret := obj.Called(ctx, manifest)
	store, _ := ret.Get(0).(*features.ArtifactStore)
	return store, ret.Error(1)
}

// fixedModel sums its features and reports a fixed input width.
type fixedModel struct {
	width  int
	offset float64
	seen   []image.Image
}

func (obj *fixedModel) TabularWidth() int {
	return obj.width
}

func (obj *fixedModel) Predict(ctx context.Context, row []float64, img image.Image) (float64, error) {
	obj.seen = append(obj.seen, img)
	total := obj.offset
	for _, v := range row {
		total += v
	}
	return total, nil
}

type squareNormalizer struct{}

func (obj squareNormalizer) Normalize(img image.Image) (image.Image, error) {
	b := img.Bounds()
	side := max(b.Dx(), b.Dy())
	return image.NewGray(image.Rect(0, 0, side, side)), nil
}

type staticSource struct {
	rows   [][]byte
	images map[string]image.Image
}

func (obj *staticSource) Listings(ctx context.Context) ([][]byte, error) {
	return obj.rows, nil
}

func (obj *staticSource) ListingImage(ctx context.Context, id string) (image.Image, error) {
	return obj.images[id], nil
}
