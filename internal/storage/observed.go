package storage

import (
	"context"
	"time"
)

// Observer receives the outcome of every store call.
type Observer interface {
	ObserveStorage(op string, err error, dur time.Duration)
}

// Store operation names reported to an Observer.
const (
	OpPresignPut   = "presign_put"
	OpPresignGet   = "presign_get"
	OpList         = "list"
	OpDelete       = "delete"
	OpDeleteMany   = "delete_many"
	OpEnsureBucket = "ensure_bucket"
)

type observedStorage struct {
	next ObjectStorage
	obs  Observer
}

// WithObserver wraps s so every call is reported to obs. A nil obs returns s unchanged.
func WithObserver(s ObjectStorage, obs Observer) ObjectStorage {
	if obs == nil {
		return s
	}
	return &observedStorage{next: s, obs: obs}
}

func (o *observedStorage) observe(op string, start time.Time, err error) {
	o.obs.ObserveStorage(op, err, time.Since(start))
}

func (o *observedStorage) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	start := time.Now()
	u, err := o.next.PresignPut(ctx, key, expiry)
	o.observe(OpPresignPut, start, err)
	return u, err
}

func (o *observedStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	start := time.Now()
	u, err := o.next.PresignGet(ctx, key, expiry)
	o.observe(OpPresignGet, start, err)
	return u, err
}

func (o *observedStorage) List(ctx context.Context, opts ListOptions) (*ListPage, error) {
	start := time.Now()
	page, err := o.next.List(ctx, opts)
	o.observe(OpList, start, err)
	return page, err
}

func (o *observedStorage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := o.next.Delete(ctx, key)
	o.observe(OpDelete, start, err)
	return err
}

func (o *observedStorage) DeleteMany(ctx context.Context, keys []string) (*DeleteManyResult, error) {
	start := time.Now()
	res, err := o.next.DeleteMany(ctx, keys)
	o.observe(OpDeleteMany, start, err)
	return res, err
}

func (o *observedStorage) EnsureBucket(ctx context.Context) error {
	start := time.Now()
	err := o.next.EnsureBucket(ctx)
	o.observe(OpEnsureBucket, start, err)
	return err
}
