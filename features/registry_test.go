package features

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/assert"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

func registryConfig() Config {
	return Config{
		SelectCols: []string{"condition", "model", "price"},
		OneHot:     &OneHotStep{Cols: []string{"condition", "model"}},
		Scale:      &ScaleStep{Cols: []string{"price"}},
	}
}

func TestRegistryFitAndPublish(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	registry, err := NewRegistry(testLogger(), newTestPipeline(), registryConfig())
	if !assert.Nil(t, err) {
		return
	}

	row := listingsRecord(mem, []listing{{condition: "새 상품", model: "yoyo", price: 1}})
	defer row.Release()

	_, err = registry.Transform(ctx, row)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, ok := registry.Current()
	assert.False(t, ok)

	train := hundredListings(mem)
	defer train.Release()

	committed := make([]*ArtifactStore, 0)
	out, store, err := registry.Fit(ctx, train, func(ctx context.Context, store *ArtifactStore) error {
		committed = append(committed, store)
		return nil
	})
	if !assert.Nil(t, err) {
		return
	}
	defer out.Release()
	assert.Len(t, committed, 1)

	current, ok := registry.Current()
	assert.True(t, ok)
	assert.Same(t, store, current)

	transformed, err := registry.Transform(ctx, row)
	if !assert.Nil(t, err) {
		return
	}
	defer transformed.Release()
	assert.Equal(t, store.OutputColumns(), arrowops.ColumnNames(transformed))
}

func TestRegistryFailedCommitKeepsPreviousStore(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	registry, err := NewRegistry(testLogger(), newTestPipeline(), registryConfig())
	if !assert.Nil(t, err) {
		return
	}

	train := hundredListings(mem)
	defer train.Release()
	out, first, err := registry.Fit(ctx, train, nil)
	if !assert.Nil(t, err) {
		return
	}
	out.Release()

	errCommit := errors.New("object storage unavailable")
	_, _, err = registry.Fit(ctx, train, func(ctx context.Context, store *ArtifactStore) error {
		return errCommit
	})
	assert.ErrorIs(t, err, errCommit)

	current, _ := registry.Current()
	assert.Same(t, first, current)

	// a failing fit leaves the store alone too
	constant := pricesRecord(mem, 5, 5, 5)
	defer constant.Release()
	_, _, err = registry.Fit(ctx, constant, nil)
	assert.ErrorIs(t, err, ErrNumericDegeneracy)
	current, _ = registry.Current()
	assert.Same(t, first, current)
}

func TestRegistryPublish(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	train := hundredListings(mem)
	defer train.Release()
	out, store, err := newTestPipeline().Fit(ctx, train, registryConfig())
	if !assert.Nil(t, err) {
		return
	}
	out.Release()

	registry, err := NewRegistry(testLogger(), newTestPipeline(), registryConfig())
	if !assert.Nil(t, err) {
		return
	}
	assert.Nil(t, registry.Publish(store))

	otherCfg := registryConfig()
	otherCfg.Scale.Method = ScaleMinMax
	other, err := NewRegistry(testLogger(), newTestPipeline(), otherCfg)
	if !assert.Nil(t, err) {
		return
	}
	assert.ErrorIs(t, other.Publish(store), ErrConfiguration)
	assert.ErrorIs(t, other.Publish(nil), ErrArtifactNotFound)
}

func TestRegistryTransformBatches(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	registry, err := NewRegistry(testLogger(), newTestPipeline(), registryConfig())
	if !assert.Nil(t, err) {
		return
	}
	train := hundredListings(mem)
	defer train.Release()
	out, store, err := registry.Fit(ctx, train, nil)
	if !assert.Nil(t, err) {
		return
	}
	out.Release()

	batches := []arrow.Record{
		pricesRecord(mem, 1, 2, 3),
		pricesRecord(mem, 4),
		listingsRecord(mem, []listing{{condition: "사용감 많음", model: "joie", price: 5}}),
	}
	defer func() {
		for _, batch := range batches {
			batch.Release()
		}
	}()

	results, err := registry.TransformBatches(ctx, batches)
	if !assert.Nil(t, err) {
		return
	}
	assert.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, batches[i].NumRows(), result.NumRows())
		assert.Equal(t, store.OutputColumns(), arrowops.ColumnNames(result))
		result.Release()
	}

	broken, err := arrowops.TakeColumns(batches[0], []string{"price"})
	assert.Nil(t, err)
	defer broken.Release()
	_, err = registry.TransformBatches(ctx, []arrow.Record{batches[1], broken})
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRegistryConcurrentTransformsDuringFit(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewGoAllocator()

	registry, err := NewRegistry(testLogger(), newTestPipeline(), registryConfig())
	if !assert.Nil(t, err) {
		return
	}
	train := hundredListings(mem)
	defer train.Release()
	out, _, err := registry.Fit(ctx, train, nil)
	if !assert.Nil(t, err) {
		return
	}
	out.Release()

	row := listingsRecord(mem, []listing{{condition: "새 상품", model: "yoyo", price: 300000}})
	defer row.Release()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, _, err := registry.Fit(ctx, train, nil)
			if assert.Nil(t, err) {
				out.Release()
			}
		}()
	}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, _ := registry.Current()
			result, err := registry.Transform(ctx, row)
			if assert.Nil(t, err) {
				assert.Equal(t, store.OutputWidth(), int(result.NumCols()))
				result.Release()
			}
		}()
	}
	wg.Wait()
}
