package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/mediagate/internal/storage"
	"github.com/timmy/mediagate/internal/storage/storagetest"
)

type recordingObserver struct {
	ops  []string
	errs []error
}

func (r *recordingObserver) ObserveStorage(op string, err error, _ time.Duration) {
	r.ops = append(r.ops, op)
	r.errs = append(r.errs, err)
}

func TestWithObserverReportsEveryCall(t *testing.T) {
	mem := storagetest.NewMemoryStorage("http://store.test")
	obs := &recordingObserver{}
	s := storage.WithObserver(mem, obs)
	ctx := context.Background()

	_, err := s.PresignPut(ctx, "a", time.Minute)
	require.NoError(t, err)
	_, err = s.PresignGet(ctx, "a", time.Minute)
	require.NoError(t, err)
	_, err = s.List(ctx, storage.ListOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.DeleteMany(ctx, []string{"a"})
	require.NoError(t, err)
	require.NoError(t, s.EnsureBucket(ctx))

	assert.Equal(t, []string{
		storage.OpPresignPut,
		storage.OpPresignGet,
		storage.OpList,
		storage.OpDelete,
		storage.OpDeleteMany,
		storage.OpEnsureBucket,
	}, obs.ops)
}

func TestWithObserverPassesErrors(t *testing.T) {
	mem := storagetest.NewMemoryStorage("http://store.test")
	mem.ListErr = errors.New("boom")
	obs := &recordingObserver{}

	_, err := storage.WithObserver(mem, obs).List(context.Background(), storage.ListOptions{})
	require.Error(t, err)
	assert.Equal(t, mem.ListErr, obs.errs[0])
}

func TestWithObserverNil(t *testing.T) {
	mem := storagetest.NewMemoryStorage("http://store.test")
	assert.Same(t, mem, storage.WithObserver(mem, nil))
}
