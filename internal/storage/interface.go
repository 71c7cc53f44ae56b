package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by store calls when no endpoint was configured.
var ErrNotConfigured = errors.New("storage endpoint is not configured")

// ObjectStorage defines the object store operations the media service needs.
// Object bytes never pass through it: uploads and downloads go through presigned URLs.
type ObjectStorage interface {
	// PresignPut returns a URL that allows one PUT to key until expiry elapses.
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)

	// PresignGet returns a URL that allows GET of key until expiry elapses.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)

	// List returns one page of objects.
	List(ctx context.Context, opts ListOptions) (*ListPage, error)

	// Delete removes a single object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes keys in one bulk call and reports per-key failures.
	// A returned error means the call itself failed.
	DeleteMany(ctx context.Context, keys []string) (*DeleteManyResult, error)

	// EnsureBucket creates the bucket if it doesn't exist
	EnsureBucket(ctx context.Context) error
}

// ListOptions scopes a listing call.
type ListOptions struct {
	Prefix string
	Cursor string // opaque, from a previous ListPage.NextCursor
	Limit  int
}

// ObjectInfo is the metadata of one listed object.
// Zero Size or LastModified means the store did not report it.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListPage is one page of a listing. NextCursor is empty on the last page.
type ListPage struct {
	Objects    []ObjectInfo
	NextCursor string
}

// DeleteFailure describes a key the store refused to delete.
type DeleteFailure struct {
	Key     string
	Code    string
	Message string
}

// DeleteManyResult partitions a bulk delete.
type DeleteManyResult struct {
	Deleted []string
	Failed  []DeleteFailure
}
