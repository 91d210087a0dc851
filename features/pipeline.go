package features

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/alekLukanen/errs"
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"

	arrowops "github.com/alekLukanen/StrollerPricer/arrowOps"
)

// Pipeline runs the configured steps in the fixed order
// select, impute, outlier, label encode, one-hot, scale, final.
type Pipeline struct {
	logger *slog.Logger
	mem    memory.Allocator
}

func NewPipeline(logger *slog.Logger, mem memory.Allocator) *Pipeline {
	return &Pipeline{
		logger: logger,
		mem:    mem,
	}
}

// Fit learns the artifacts of cfg from rec and returns the transformed
// record with a new store. On error no store is returned.
func (obj *Pipeline) Fit(ctx context.Context, rec arrow.Record, cfg Config) (arrow.Record, *ArtifactStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cfg = cfg.WithDefaults()
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, nil, err
	}

	building := newArtifactStore(fingerprint)
	sc := &stepContext{ctx: ctx, mem: obj.mem, logger: obj.logger}

	out, err := obj.run(sc, rec, cfg, func(s step, current arrow.Record) (arrow.Record, error) {
		return s.fit(sc, current, building)
	})
	if err != nil {
		return nil, nil, err
	}

	building.outputColumns = arrowops.ColumnNames(out)
	if err := building.Validate(); err != nil {
		out.Release()
		return nil, nil, err
	}

	obj.logger.Info("fit pipeline",
		slog.Int64("rowsIn", rec.NumRows()),
		slog.Int64("rowsOut", out.NumRows()),
		slog.Int("outputWidth", building.OutputWidth()),
		slog.String("configFingerprint", fingerprint),
	)
	return out, building, nil
}

// Transform applies store to rec without learning anything. The output
// columns always equal store.OutputColumns().
func (obj *Pipeline) Transform(ctx context.Context, rec arrow.Record, cfg Config, store *ArtifactStore) (arrow.Record, error) {
	if store == nil {
		return nil, errs.NewStackError(fmt.Errorf("%w| transform requires a fitted artifact store", ErrArtifactNotFound))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, err
	}
	if fingerprint != store.configFingerprint {
		return nil, errs.NewStackError(fmt.Errorf("%w| artifact store was fit with config %s, current config is %s", ErrConfiguration, store.configFingerprint, fingerprint))
	}
	if err := store.checkRequired(cfg); err != nil {
		return nil, err
	}

	sc := &stepContext{ctx: ctx, mem: obj.mem, logger: obj.logger}
	out, err := obj.run(sc, rec, cfg, func(s step, current arrow.Record) (arrow.Record, error) {
		return s.transform(sc, current, store)
	})
	if err != nil {
		return nil, err
	}
	defer out.Release()

	if names := arrowops.ColumnNames(out); !slices.Equal(names, store.outputColumns) {
		obj.logger.Debug("aligning transform output to the fitted columns",
			slog.Any("columns", names),
			slog.Any("outputColumns", store.outputColumns),
		)
	}
	for _, col := range store.outputColumns {
		if !out.Schema().HasField(col) {
			return nil, newColumnError(ErrSchema, "output", col, "fitted output column missing from transform output")
		}
	}
	return arrowops.TakeColumns(out, store.outputColumns)
}

func (obj *Pipeline) run(sc *stepContext, rec arrow.Record, cfg Config, apply func(step, arrow.Record) (arrow.Record, error)) (arrow.Record, error) {
	current := rec
	current.Retain()

	for _, s := range cfg.steps() {
		if err := sc.ctx.Err(); err != nil {
			current.Release()
			return nil, errs.NewStackError(err)
		}

		next, err := apply(s, current)
		current.Release()
		if err != nil {
			return nil, fmt.Errorf("%s step failed: %w", s.Name(), err)
		}
		current = next

		obj.logger.Debug("ran pipeline step",
			slog.String("step", s.Name()),
			slog.Int64("rows", current.NumRows()),
			slog.Int64("columns", current.NumCols()),
		)
	}
	return current, nil
}
