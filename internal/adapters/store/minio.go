// Package store uploads extracted artifacts to an S3-compatible object
// store. Archiving is optional and disabled by default; when disabled this
// package is never constructed.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/slipway-ci/slipway/internal/config"
)

// ErrArchive indicates an artifact upload failure. Like every other stage
// failure it aborts the run; there is no retry.
var ErrArchive = errors.New("artifact archive failed")

// Archiver implements ports.ArchiveService against a MinIO/S3 endpoint.
type Archiver struct {
	client *minio.Client
	bucket string
	region string
}

// NewArchiver creates a client for the configured endpoint and ensures the
// artifact bucket exists.
func NewArchiver(ctx context.Context, cfg config.Archive) (*Archiver, error) {
	accessKey, secretKey := cfg.Credentials()

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}

	a := &Archiver{client: client, bucket: cfg.Bucket, region: cfg.Region}
	if err := a.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Store uploads the file at localPath under objectName, overwriting any
// object from a previous run of the same branch.
func (a *Archiver) Store(ctx context.Context, localPath, objectName string) error {
	slog.Info("archiving artifact", "bucket", a.bucket, "object", objectName)

	_, err := a.client.FPutObject(ctx, a.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %v", ErrArchive, objectName, err)
	}
	return nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("%w: bucket exists: %v", ErrArchive, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("%w: make bucket %s: %v", ErrArchive, a.bucket, err)
	}
	return nil
}
