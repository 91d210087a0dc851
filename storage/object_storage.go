package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alekLukanen/errs"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sethvargo/go-retry"
)

const (
	ObjectStorageAuthTypeStatic = "static"

	defaultMaxRetries = 4
	defaultRetryBase  = 250 * time.Millisecond
)

type IObjectStorage interface {
	Upload(ctx context.Context, bucket, key string, data []byte) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

type ObjectStorageOptions struct {
	Endpoint     string
	Region       string
	AuthKey      string
	AuthSecret   string
	UsePathStyle bool
	AuthType     string

	// zero values fall back to the package defaults
	MaxRetries uint64
	RetryBase  time.Duration
}

func NewObjectStorageOptionsFromStaticCredentials(
	endpoint string,
	region string,
	authKey string,
	authSecret string,
	usePathStyle bool,
) *ObjectStorageOptions {
	return &ObjectStorageOptions{
		Endpoint:     endpoint,
		Region:       region,
		AuthKey:      authKey,
		AuthSecret:   authSecret,
		UsePathStyle: usePathStyle,
		AuthType:     ObjectStorageAuthTypeStatic,
	}
}

type ObjectStorage struct {
	logger *slog.Logger

	client *s3.Client

	maxRetries uint64
	retryBase  time.Duration
}

func NewObjectStorage(
	ctx context.Context,
	logger *slog.Logger,
	options ObjectStorageOptions,
) (*ObjectStorage, error) {

	configFuncs := make([]func(*config.LoadOptions) error, 0)
	configFuncs = append(configFuncs, config.WithRegion(options.Region))

	if options.AuthType == ObjectStorageAuthTypeStatic {
		creds := credentials.NewStaticCredentialsProvider(options.AuthKey, options.AuthSecret, "")
		configFuncs = append(configFuncs, config.WithCredentialsProvider(creds))
	}

	s3Config, err := config.LoadDefaultConfig(
		ctx,
		configFuncs...,
	)
	if err != nil {
		return nil, errs.NewStackError(err)
	}

	newSession := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		if options.Endpoint != "" {
			o.BaseEndpoint = aws.String(options.Endpoint)
		}
		o.UsePathStyle = options.UsePathStyle
	})

	maxRetries := options.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryBase := options.RetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}

	return &ObjectStorage{
		logger:     logger,
		client:     newSession,
		maxRetries: maxRetries,
		retryBase:  retryBase,
	}, nil
}

func (obj *ObjectStorage) Upload(ctx context.Context, bucket, key string, body []byte) error {
	obj.logger.Info(
		"uploading object", slog.String("bucket", bucket), slog.String("key", key), slog.Int("numBytes", len(body)),
	)

	uploader := manager.NewUploader(obj.client)
	return obj.withRetry(ctx, func(ctx context.Context) error {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
			Body:   bytes.NewReader(body),
		})
		return err
	})
}

func (obj *ObjectStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	obj.logger.Info("downloading object", slog.String("bucket", bucket), slog.String("key", key))

	downloader := manager.NewDownloader(obj.client)
	var data []byte
	err := obj.withRetry(ctx, func(ctx context.Context) error {
		buf := manager.NewWriteAtBuffer([]byte{})
		_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		})
		if err != nil {
			return err
		}
		data = buf.Bytes()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (obj *ObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	obj.logger.Info("deleting object", slog.String("bucket", bucket), slog.String("key", key))

	return obj.withRetry(ctx, func(ctx context.Context) error {
		_, err := obj.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: &bucket,
			Key:    &key,
		})
		return err
	})
}

func (obj *ObjectStorage) ListObjects(ctx context.Context, bucket string, prefix string) ([]string, error) {
	obj.logger.Info("listing objects", slog.String("bucket", bucket), slog.String("prefix", prefix))

	keys := make([]string, 0)
	paginator := s3.NewListObjectsV2Paginator(obj.client, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		var page *s3.ListObjectsV2Output
		err := obj.withRetry(ctx, func(ctx context.Context) error {
			var pageErr error
			page, pageErr = paginator.NextPage(ctx)
			return pageErr
		})
		if err != nil {
			return nil, err
		}
		for _, item := range page.Contents {
			keys = append(keys, aws.ToString(item.Key))
		}
	}
	return keys, nil
}

// withRetry retries transient failures with a fibonacci backoff. Missing
// objects and cancelled contexts are returned immediately.
func (obj *ObjectStorage) withRetry(ctx context.Context, task func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(obj.maxRetries, retry.NewFibonacci(obj.retryBase))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := task(ctx)
		if err == nil {
			return nil
		}
		if isNotFound(err) {
			return fmt.Errorf("%w| %v", ErrObjectNotFound, err)
		}
		if !shouldRetry(err) {
			return err
		}
		obj.logger.Warn("object storage request failed, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		return retry.RetryableError(err)
	})
	if err != nil {
		return errs.NewStackError(err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
