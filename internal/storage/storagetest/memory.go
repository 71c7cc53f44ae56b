// Package storagetest provides an in-memory storage.ObjectStorage for tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/timmy/mediagate/internal/storage"
)

// Query parameters carried by presigned URLs issued by MemoryStorage.
const (
	ParamMethod  = "X-Method"
	ParamExpires = "X-Expires"
)

type object struct {
	data         []byte
	lastModified time.Time
}

// MemoryStorage keeps objects in a map and issues presigned URLs that its own
// Handler honours. Listing is lexical by key; cursors are the last returned key.
type MemoryStorage struct {
	// BaseURL prefixes presigned URLs, e.g. an httptest server URL.
	BaseURL string
	Bucket  string
	// Now is the clock used for expiry checks and lastModified.
	Now func() time.Time

	// Error injection.
	PresignErr error
	ListErr    error
	DeleteErr  error
	FailKeys   map[string]error // per-key failures reported by DeleteMany

	mu      sync.RWMutex
	objects map[string]object
	calls   map[string]int
}

// NewMemoryStorage creates an empty store whose URLs start with baseURL.
func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Bucket:   "media",
		Now:      time.Now,
		FailKeys: make(map[string]error),
		objects:  make(map[string]object),
		calls:    make(map[string]int),
	}
}

// Put stores data at key directly, bypassing presigned URLs.
func (m *MemoryStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = object{data: stored, lastModified: m.Now().UTC()}
}

// Get returns a copy of the bytes stored at key.
func (m *MemoryStorage) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	result := make([]byte, len(obj.data))
	copy(result, obj.data)
	return result, true
}

// Calls returns how many times op was invoked.
func (m *MemoryStorage) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// TotalCalls returns the number of store calls of any kind.
func (m *MemoryStorage) TotalCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MemoryStorage) record(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *MemoryStorage) presign(method, key string, expiry time.Duration) string {
	u := url.URL{Path: "/" + m.Bucket + "/" + key}
	q := url.Values{}
	q.Set(ParamMethod, method)
	q.Set(ParamExpires, strconv.FormatInt(m.Now().Add(expiry).Unix(), 10))
	return m.BaseURL + u.EscapedPath() + "?" + q.Encode()
}

func (m *MemoryStorage) PresignPut(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.record(storage.OpPresignPut)
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	return m.presign(http.MethodPut, key, expiry), nil
}

func (m *MemoryStorage) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.record(storage.OpPresignGet)
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	return m.presign(http.MethodGet, key, expiry), nil
}

func (m *MemoryStorage) List(_ context.Context, opts storage.ListOptions) (*storage.ListPage, error) {
	m.record(storage.OpList)
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.Cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &storage.ListPage{}
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
		page.NextCursor = keys[len(keys)-1]
	}
	for _, k := range keys {
		obj := m.objects[k]
		page.Objects = append(page.Objects, storage.ObjectInfo{
			Key:          k,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	return page, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.record(storage.OpDelete)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) DeleteMany(_ context.Context, keys []string) (*storage.DeleteManyResult, error) {
	m.record(storage.OpDeleteMany)
	if m.DeleteErr != nil {
		return nil, m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := &storage.DeleteManyResult{Deleted: []string{}}
	for _, k := range keys {
		if err, ok := m.FailKeys[k]; ok {
			result.Failed = append(result.Failed, storage.DeleteFailure{Key: k, Code: "InternalError", Message: err.Error()})
			continue
		}
		delete(m.objects, k)
		result.Deleted = append(result.Deleted, k)
	}
	return result, nil
}

func (m *MemoryStorage) EnsureBucket(context.Context) error {
	m.record(storage.OpEnsureBucket)
	return nil
}

// Handler serves PUT and GET requests against presigned URLs.
// Like S3, it refuses PUTs without a Content-Length.
func (m *MemoryStorage) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.authorize(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}

		switch r.Method {
		case http.MethodPut:
			if r.ContentLength < 0 {
				http.Error(w, "MissingContentLength", http.StatusLengthRequired)
				return
			}
			data, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			m.Put(key, data)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := m.Get(key)
			if !ok {
				http.Error(w, "NoSuchKey", http.StatusNotFound)
				return
			}
			_, _ = w.Write(data)
		}
	})
}

func (m *MemoryStorage) authorize(r *http.Request) (string, error) {
	q := r.URL.Query()
	if q.Get(ParamMethod) != r.Method {
		return "", fmt.Errorf("signature does not allow %s", r.Method)
	}
	exp, err := strconv.ParseInt(q.Get(ParamExpires), 10, 64)
	if err != nil {
		return "", errors.New("missing expiry")
	}
	if m.Now().Unix() > exp {
		return "", errors.New("request has expired")
	}

	prefix := "/" + m.Bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		return "", errors.New("unknown bucket")
	}
	return strings.TrimPrefix(r.URL.Path, prefix), nil
}

var _ storage.ObjectStorage = (*MemoryStorage)(nil)
