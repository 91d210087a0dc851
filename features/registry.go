package features

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"golang.org/x/sync/errgroup"
)

// Registry serves one pipeline config. Fits are serialized and publish a
// new store with a single pointer swap; transforms read whichever store is
// current when they start and never block on a fit.
type Registry struct {
	logger      *slog.Logger
	pipeline    *Pipeline
	cfg         Config
	fingerprint string

	fitMu   sync.Mutex
	current atomic.Pointer[ArtifactStore]
}

func NewRegistry(logger *slog.Logger, pipeline *Pipeline, cfg Config) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}
	return &Registry{
		logger:      logger,
		pipeline:    pipeline,
		cfg:         cfg,
		fingerprint: fingerprint,
	}, nil
}

func (obj *Registry) Config() Config {
	return obj.cfg.clone()
}

func (obj *Registry) ConfigFingerprint() string {
	return obj.fingerprint
}

// Fit runs a fit and, once commit accepts the new store, publishes it.
// When the fit or commit fails the previously published store stays
// current. commit may be nil.
func (obj *Registry) Fit(ctx context.Context, rec arrow.Record, commit func(context.Context, *ArtifactStore) error) (arrow.Record, *ArtifactStore, error) {
	obj.fitMu.Lock()
	defer obj.fitMu.Unlock()

	out, store, err := obj.pipeline.Fit(ctx, rec, obj.cfg)
	if err != nil {
		return nil, nil, err
	}
	if commit != nil {
		if err := commit(ctx, store); err != nil {
			out.Release()
			return nil, nil, errs.Wrap(err, fmt.Errorf("unable to commit artifact store"))
		}
	}

	obj.current.Store(store)
	obj.logger.Info("published artifact store",
		slog.String("configFingerprint", store.ConfigFingerprint()),
		slog.Int("outputWidth", store.OutputWidth()),
	)
	return out, store, nil
}

// Publish makes a previously fit store current, typically one loaded from
// storage.
func (obj *Registry) Publish(store *ArtifactStore) error {
	if store == nil {
		return errs.NewStackError(fmt.Errorf("%w| cannot publish a nil store", ErrArtifactNotFound))
	}
	if store.ConfigFingerprint() != obj.fingerprint {
		return errs.NewStackError(fmt.Errorf("%w| store was fit with config %s, registry serves %s", ErrConfiguration, store.ConfigFingerprint(), obj.fingerprint))
	}
	if err := store.Validate(); err != nil {
		return err
	}
	if err := store.checkRequired(obj.cfg); err != nil {
		return err
	}

	obj.current.Store(store)
	return nil
}

func (obj *Registry) Current() (*ArtifactStore, bool) {
	store := obj.current.Load()
	return store, store != nil
}

func (obj *Registry) Transform(ctx context.Context, rec arrow.Record) (arrow.Record, error) {
	store := obj.current.Load()
	if store == nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| no artifact store has been published", ErrArtifactNotFound))
	}
	return obj.pipeline.Transform(ctx, rec, obj.cfg, store)
}

// TransformBatches transforms independent batches concurrently against one
// store snapshot. Results keep the input order.
func (obj *Registry) TransformBatches(ctx context.Context, recs []arrow.Record) ([]arrow.Record, error) {
	store := obj.current.Load()
	if store == nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| no artifact store has been published", ErrArtifactNotFound))
	}

	results := make([]arrow.Record, len(recs))
	g, gCtx := errgroup.WithContext(ctx)
	for i, rec := range recs {
		g.Go(func() error {
			out, err := obj.pipeline.Transform(gCtx, rec, obj.cfg, store)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, out := range results {
			if out != nil {
				out.Release()
			}
		}
		return nil, err
	}
	return results, nil
}
