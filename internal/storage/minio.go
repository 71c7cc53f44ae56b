package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements ObjectStorage using the MinIO client.
// Listing cursors are the last key of the previous page (StartAfter semantics).
type MinIOStorage struct {
	client *minio.Client
	bucket string
	// initErr is returned by every call when the client could not be built.
	initErr error
}

// NewMinIOStorage creates a new MinIO storage client.
// Without an endpoint the store is still returned and fails on first use.
func NewMinIOStorage(cfg *S3Config) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return &MinIOStorage{bucket: cfg.Bucket, initErr: ErrNotConfigured}, nil
	}

	host, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStorage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// The bucket stays private; reads go through presigned URLs.
func (s *MinIOStorage) EnsureBucket(ctx context.Context) error {
	if s.initErr != nil {
		return s.initErr
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// PresignPut returns a presigned PUT URL for key
func (s *MinIOStorage) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.initErr != nil {
		return "", s.initErr
	}
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign put %q: %w", key, err)
	}
	return u.String(), nil
}

// PresignGet returns a presigned GET URL for key
func (s *MinIOStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.initErr != nil {
		return "", s.initErr
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign get %q: %w", key, err)
	}
	return u.String(), nil
}

// List returns one page of objects.
// One extra object is read to find out whether another page exists.
func (s *MinIOStorage) List(ctx context.Context, opts ListOptions) (*ListPage, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}

	objectsCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  true,
		StartAfter: opts.Cursor,
		MaxKeys:    limit,
	})

	page := &ListPage{
		Objects: make([]ObjectInfo, 0, limit),
	}
	for obj := range objectsCh {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if len(page.Objects) == limit {
			page.NextCursor = page.Objects[limit-1].Key
			break
		}
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return page, nil
}

// Delete deletes an object from MinIO
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if s.initErr != nil {
		return s.initErr
	}
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// DeleteMany removes keys through the multi-object delete API.
// Keys that are not reported as failed count as deleted, in input order.
func (s *MinIOStorage) DeleteMany(ctx context.Context, keys []string) (*DeleteManyResult, error) {
	if s.initErr != nil {
		return nil, s.initErr
	}
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	result := &DeleteManyResult{
		Deleted: make([]string, 0, len(keys)),
	}
	failed := make(map[string]bool)
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err == nil {
			continue
		}
		failed[rerr.ObjectName] = true
		result.Failed = append(result.Failed, DeleteFailure{
			Key:     rerr.ObjectName,
			Code:    minio.ToErrorResponse(rerr.Err).Code,
			Message: rerr.Err.Error(),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to delete objects: %w", err)
	}

	for _, key := range keys {
		if !failed[key] {
			result.Deleted = append(result.Deleted, key)
		}
	}

	return result, nil
}
