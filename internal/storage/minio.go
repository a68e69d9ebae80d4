package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/theognis1002/linkmark/internal/config"
)

// maxSnapshotSize bounds reads; a snapshot is never larger than a fetched
// page plus highlight markup.
const maxSnapshotSize = 16 * 1024 * 1024

// Snapshots stores rendered, highlighted pages in one bucket.
type Snapshots struct {
	client *minio.Client
	bucket string
}

func NewSnapshots(ctx context.Context, cfg config.MinIOConfig) (*Snapshots, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}

	s := &Snapshots{client: client, bucket: bucket}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Snapshots) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

const contentHashMeta = "content-hash"

// ContentHash is the hex SHA-256 of data.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// PutSnapshot uploads html under SnapshotKey(pageURL) and returns the key.
// The upload is skipped when the stored object already has the same content.
func (s *Snapshots) PutSnapshot(ctx context.Context, pageURL string, html []byte) (string, error) {
	key := SnapshotKey(pageURL)
	hash := ContentHash(html)

	if info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		if userMeta(info.UserMetadata, contentHashMeta) == hash {
			return key, nil
		}
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(html), int64(len(html)), minio.PutObjectOptions{
		ContentType: "text/html; charset=utf-8",
		UserMetadata: map[string]string{
			"page-url":      pageURL,
			contentHashMeta: hash,
		},
	})
	if err != nil {
		return "", fmt.Errorf("putting snapshot %s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}

func userMeta(meta map[string]string, name string) string {
	for k, v := range meta {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (s *Snapshots) GetSnapshot(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting snapshot %s/%s: %w", s.bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}
