package services

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"equipment-analytics-api/config"
)

// Archiver keeps a copy of every accepted upload.
type Archiver interface {
	Archive(ctx context.Context, owner uint, datasetID uint64, filename string, data []byte) error
	Remove(ctx context.Context, owner uint, datasetID uint64) error
}

// ObjectArchive stores uploads in an S3-compatible bucket under
// uploads/<owner>/<dataset>/<filename>.
type ObjectArchive struct {
	client *minio.Client
	bucket string
}

func NewObjectArchive(ctx context.Context, cfg config.StorageConfig) (*ObjectArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ObjectArchive{client: client, bucket: cfg.Bucket}, nil
}

func archivePrefix(owner uint, datasetID uint64) string {
	return fmt.Sprintf("uploads/%d/%d/", owner, datasetID)
}

func archiveKey(owner uint, datasetID uint64, filename string) string {
	name := path.Base(filename)
	if name == "." || name == "/" || name == "" {
		name = "upload.csv"
	}
	return archivePrefix(owner, datasetID) + name
}

func (a *ObjectArchive) Archive(ctx context.Context, owner uint, datasetID uint64, filename string, data []byte) error {
	_, err := a.client.PutObject(
		ctx,
		a.bucket,
		archiveKey(owner, datasetID, filename),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: "text/csv",
		},
	)
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (a *ObjectArchive) Remove(ctx context.Context, owner uint, datasetID uint64) error {
	objects := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    archivePrefix(owner, datasetID),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("s3 list objects: %w", obj.Err)
		}
		if err := a.client.RemoveObject(ctx, a.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("s3 remove object: %w", err)
		}
	}
	return nil
}
