package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

// R2Config carries S3-compatible connection settings.
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
}

// R2Store uploads artifacts to Cloudflare R2 (or any S3-compatible API).
type R2Store struct {
	client     *minio.Client
	bucket     string
	prefix     string
	bucketOnce sync.Once
	bucketErr  error
	logger     *slog.Logger
}

// NewR2Store constructs the storage adapter.
func NewR2Store(cfg R2Config, logger *slog.Logger) (*R2Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("r2 bucket is required")
	}
	useSSL := !strings.HasPrefix(strings.ToLower(strings.TrimSpace(cfg.Endpoint)), "http://")
	client, err := minio.New(sanitizeEndpoint(cfg.Endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       useSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With("component", "artifacts.r2"),
	}, nil
}

func (s *R2Store) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err == nil && exists {
			return
		}
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			s.bucketErr = err
		}
	})
	return s.bucketErr
}

// Put uploads data under the cleaned key.
func (s *R2Store) Put(ctx context.Context, key string, data []byte, mimeType string) (bot.Artifact, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return bot.Artifact{}, err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return bot.Artifact{}, fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
	}
	objectKey := clean
	if s.prefix != "" {
		objectKey = s.prefix + "/" + clean
	}
	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: len(data) < 5*1024*1024, // small uploads as single part
	})
	if err != nil {
		return bot.Artifact{}, fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return bot.Artifact{
		Key:      clean,
		Path:     "s3://" + s.bucket + "/" + objectKey,
		Size:     info.Size,
		MimeType: mimeType,
		ETag:     info.ETag,
	}, nil
}

var _ bot.ArtifactStore = (*R2Store)(nil)

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
