// Package storage moves chat attachments into the blob store.
package storage

import (
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/config"
	"FlashGrade/internal/shared/metrics"
	"FlashGrade/internal/shared/retry"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioStore is an S3-compatible FileStore.
type MinioStore struct {
	client  *minio.Client
	region  string
	policy  retry.Policy
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var _ ports.FileStore = (*MinioStore)(nil)

// NewMinioStore creates a store for the configured endpoint.
func NewMinioStore(cfg config.StorageConfig, policy retry.Policy, m *metrics.Metrics, baseLogger *zerolog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &MinioStore{
		client:  client,
		region:  cfg.Region,
		policy:  policy,
		metrics: m,
		log:     baseLogger.With().Str("component", "file_store").Logger(),
	}, nil
}

// EnsureBuckets creates the missing buckets.
func (s *MinioStore) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		s.log.Info().Str("bucket", bucket).Msg("Bucket created")
	}
	return nil
}

// Put uploads body and returns "bucket/key". The body is read into memory
// first so a retried upload sends the same bytes.
func (s *MinioStore) Put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	if size >= 0 && size != int64(len(data)) {
		s.log.Warn().Int64("declared", size).Int("actual", len(data)).Str("key", key).Msg("Upload size mismatch, using actual size")
	}

	start := time.Now()
	err = retry.Do(ctx, s.policy, func() error {
		_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
		return classify(err)
	}, func(err error, wait time.Duration) {
		s.log.Warn().Err(err).Str("key", key).Dur("wait", wait).Msg("Upload failed, retrying")
	})

	if s.metrics != nil {
		s.metrics.OutboundLatency.WithLabelValues("storage").Observe(time.Since(start).Seconds())
		s.metrics.OutboundRequests.WithLabelValues("storage", statusLabel(err)).Inc()
	}
	if err != nil {
		s.log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("Failed to store file")
		return "", fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}

	s.log.Info().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("File stored")
	return bucket + "/" + key, nil
}

// classify makes rejected requests permanent. Throttling and server
// errors stay retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	code := minio.ToErrorResponse(err).StatusCode
	if code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	return err
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := minio.ToErrorResponse(err).StatusCode; code != 0 {
		return strconv.Itoa(code)
	}
	return "error"
}
