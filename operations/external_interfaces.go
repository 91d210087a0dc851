package operations

import (
	"context"
	"image"
	"time"

	"github.com/alekLukanen/StrollerPricer/features"
	"github.com/alekLukanen/StrollerPricer/storage"
)

type IKeyStorage interface {
	ClaimFitLock(context.Context, string, time.Duration) (storage.ILock, error)
	ReleaseLock(context.Context, storage.ILock) (bool, error)

	NextVersion(context.Context, string) (int, error)
	GetCurrentVersion(context.Context, string) (int, error)
	SetCurrentVersion(context.Context, string, int) error

	GetLastFitTime(context.Context, string) (time.Time, error)
	SetLastFitTime(context.Context, string, time.Time) error
}

type IArtifactStorage interface {
	PutArtifactStore(context.Context, string, int, *features.ArtifactStore) (*storage.ArtifactManifest, error)
	GetLatestManifest(context.Context, string) (*storage.ArtifactManifest, error)
	GetManifest(context.Context, string, int) (*storage.ArtifactManifest, error)
	GetArtifactStore(context.Context, *storage.ArtifactManifest) (*features.ArtifactStore, error)
}

// IListingSource is the scraper. Rows are avro encoded against the listings
// table and images are keyed by the listing id.
type IListingSource interface {
	Listings(ctx context.Context) ([][]byte, error)
	ListingImage(ctx context.Context, id string) (image.Image, error)
}

// IImageNormalizer turns a listing photo into the square image the model
// expects.
type IImageNormalizer interface {
	Normalize(img image.Image) (image.Image, error)
}

// IPriceModel consumes one finalized feature row plus a normalized image.
type IPriceModel interface {
	TabularWidth() int
	Predict(ctx context.Context, row []float64, img image.Image) (float64, error)
}
