package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/go-redsync/redsync/v4"
	redsyncredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

type ILock interface {
	TryLockContext(context.Context) error
	UnlockContext(context.Context) (bool, error)
	Name() string
}

type IKeyStorage interface {
	ClaimFitLock(context.Context, string, time.Duration) (ILock, error)
	ReleaseLock(context.Context, ILock) (bool, error)

	NextVersion(context.Context, string) (int, error)
	GetCurrentVersion(context.Context, string) (int, error)
	SetCurrentVersion(context.Context, string, int) error

	GetLastFitTime(context.Context, string) (time.Time, error)
	SetLastFitTime(context.Context, string, time.Time) error
}

type KeyStorageOptions struct {
	Address   string
	Password  string
	KeyPrefix string
}

type KeyStorage struct {
	logger *slog.Logger
	client *goredislib.Client
	pool   redsyncredis.Pool
	sync   *redsync.Redsync

	KeyPrefix string
}

func NewKeyStorage(
	ctx context.Context,
	logger *slog.Logger,
	options KeyStorageOptions,
) (*KeyStorage, error) {
	client := goredislib.NewClient(&goredislib.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       0,
	})

	redisPool := goredis.NewPool(client)
	mutexSync := redsync.New(redisPool)

	keyStorage := KeyStorage{
		logger:    logger,
		client:    client,
		pool:      redisPool,
		sync:      mutexSync,
		KeyPrefix: options.KeyPrefix,
	}
	return &keyStorage, nil
}

func (obj *KeyStorage) Close() error {
	return obj.client.Close()
}

func (obj *KeyStorage) Key(key string) string {
	return fmt.Sprintf("%s-%s", obj.KeyPrefix, key)
}

func (obj *KeyStorage) DerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	derivedCtx, cancelFunc := context.WithTimeout(ctx, time.Second*15)
	return derivedCtx, cancelFunc
}

func (obj *KeyStorage) AcquireLock(ctx context.Context, key string, duration time.Duration) (ILock, error) {
	mutex := obj.sync.NewMutex(obj.Key(key), redsync.WithExpiry(duration))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, err
	}
	return mutex, nil
}

func (obj *KeyStorage) ReleaseLock(ctx context.Context, lock ILock) (bool, error) {
	ok, err := lock.UnlockContext(ctx)
	return ok, err
}

// ClaimFitLock makes one process at a time the writer for a pipeline. The
// lock expires on its own if the holder dies mid fit.
func (obj *KeyStorage) ClaimFitLock(ctx context.Context, pipelineName string, duration time.Duration) (ILock, error) {
	key := fmt.Sprintf("pipeline-state/fit-lock/%s", pipelineName)
	lock, err := obj.AcquireLock(ctx, key, duration)
	if err != nil {
		return nil, errs.Wrap(err, fmt.Errorf("unable to claim fit lock for pipeline %s", pipelineName))
	}
	return lock, nil
}

// NextVersion reserves a version number for a new fit. Reserved numbers
// are never reused even when the fit fails.
func (obj *KeyStorage) NextVersion(ctx context.Context, pipelineName string) (int, error) {
	key := fmt.Sprintf("pipeline-state/version-seq/%s", pipelineName)
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()
	result := obj.client.Incr(ctx, obj.Key(key))
	if result.Err() != nil {
		return 0, errs.NewStackError(result.Err())
	}
	return int(result.Val()), nil
}

func (obj *KeyStorage) GetCurrentVersion(ctx context.Context, pipelineName string) (int, error) {
	key := fmt.Sprintf("pipeline-state/current-version/%s", pipelineName)
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	result := obj.client.Get(ctx, obj.Key(key))
	if errors.Is(result.Err(), goredislib.Nil) {
		return 0, errs.NewStackError(fmt.Errorf("%w| pipeline %s", ErrVersionNotSet, pipelineName))
	} else if result.Err() != nil {
		return 0, errs.NewStackError(result.Err())
	}
	version, err := strconv.Atoi(result.Val())
	if err != nil {
		return 0, errs.NewStackError(err)
	}
	return version, nil
}

func (obj *KeyStorage) SetCurrentVersion(ctx context.Context, pipelineName string, version int) error {
	key := fmt.Sprintf("pipeline-state/current-version/%s", pipelineName)
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()
	if err := obj.client.Set(ctx, obj.Key(key), version, 0).Err(); err != nil {
		return errs.NewStackError(err)
	}
	return nil
}

func (obj *KeyStorage) GetLastFitTime(ctx context.Context, pipelineName string) (time.Time, error) {
	key := fmt.Sprintf("pipeline-state/last-fit-ts/%s", pipelineName)
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()

	result := obj.client.Get(ctx, obj.Key(key))
	if errors.Is(result.Err(), goredislib.Nil) {
		return time.Time{}, nil
	} else if result.Err() != nil {
		return time.Time{}, errs.NewStackError(result.Err())
	}
	ts, err := strconv.ParseInt(result.Val(), 10, 64)
	if err != nil {
		return time.Time{}, errs.NewStackError(err)
	}
	return time.UnixMilli(ts).UTC(), nil
}

func (obj *KeyStorage) SetLastFitTime(ctx context.Context, pipelineName string, ts time.Time) error {
	key := fmt.Sprintf("pipeline-state/last-fit-ts/%s", pipelineName)
	ctx, cancelFunc := obj.DerCtx(ctx)
	defer cancelFunc()
	if err := obj.client.Set(ctx, obj.Key(key), ts.UTC().UnixMilli(), 0).Err(); err != nil {
		return errs.NewStackError(err)
	}
	return nil
}
