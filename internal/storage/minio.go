package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/domperidog/docshare/internal/document"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// MinIOStorage archives document snapshots in a MinIO bucket.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := newMinIOStorage(mc, cfg.Bucket)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

func newMinIOStorage(mc *minio.Client, bucket string) *MinIOStorage {
	return &MinIOStorage{client: mc, bucket: bucket, now: time.Now}
}

// ArchiveKey is the object key of a snapshot of d taken at t.
func ArchiveKey(d *document.Document, t time.Time) string {
	return fmt.Sprintf("documents/%s/%s-%d.json", d.Author, d.ID, t.UTC().UnixNano())
}

// ArchiveDocument stores a JSON snapshot of d.
func (s *MinIOStorage) ArchiveDocument(ctx context.Context, d *document.Document) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	key := ArchiveKey(d, s.now())
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{"author": d.Author},
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}

// Ready reports whether the archive bucket is reachable.
func (s *MinIOStorage) Ready(ctx context.Context) bool {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	return err == nil && ok
}
