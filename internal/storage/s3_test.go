package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3(t *testing.T, endpoint string) *S3Storage {
	t.Helper()
	s, err := NewS3Storage(&S3Config{
		Type:        StorageTypeS3Compatible,
		Endpoint:    endpoint,
		AccessKey:   "AKIDEXAMPLE",
		SecretKey:   "secret",
		Bucket:      "media",
		PathStyle:   true,
		MaxAttempts: 1,
	})
	require.NoError(t, err)
	return s
}

func TestS3PresignPut(t *testing.T) {
	s := newTestS3(t, "http://localhost:9000")

	raw, err := s.PresignPut(context.Background(), "avatars/abc.jpg", 5*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/media/avatars/abc.jpg", u.Path)
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestS3PresignGet(t *testing.T) {
	s := newTestS3(t, "localhost:9000")

	raw, err := s.PresignGet(context.Background(), "products/a.jpg", 24*time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme, "use_ssl is false and no scheme was given")
	assert.Equal(t, "/media/products/a.jpg", u.Path)
	assert.Equal(t, "86400", u.Query().Get("X-Amz-Expires"))
}

const listResponse = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>media</Name>
  <Prefix>avatars/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>2</MaxKeys>
  <IsTruncated>true</IsTruncated>
  <NextContinuationToken>next-token</NextContinuationToken>
  <Contents>
    <Key>avatars/a.jpg</Key>
    <LastModified>2024-01-02T03:04:05.000Z</LastModified>
    <Size>10</Size>
  </Contents>
  <Contents>
    <Key>avatars/b.jpg</Key>
    <LastModified>2024-01-03T03:04:05.000Z</LastModified>
    <Size>20</Size>
  </Contents>
</ListBucketResult>`

func TestS3List(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(listResponse))
	}))
	defer srv.Close()

	s := newTestS3(t, srv.URL)
	page, err := s.List(context.Background(), ListOptions{Prefix: "avatars/", Cursor: "prev", Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, "2", gotQuery.Get("list-type"))
	assert.Equal(t, "avatars/", gotQuery.Get("prefix"))
	assert.Equal(t, "prev", gotQuery.Get("continuation-token"))
	assert.Equal(t, "2", gotQuery.Get("max-keys"))

	require.Len(t, page.Objects, 2)
	assert.Equal(t, "avatars/a.jpg", page.Objects[0].Key)
	assert.Equal(t, int64(20), page.Objects[1].Size)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), page.Objects[0].LastModified.UTC())
	assert.Equal(t, "next-token", page.NextCursor)
}

func TestS3ListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer srv.Close()

	s := newTestS3(t, srv.URL)
	_, err := s.List(context.Background(), ListOptions{Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list objects")
}

const deleteResponse = `<?xml version="1.0" encoding="UTF-8"?>
<DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Deleted><Key>x</Key></Deleted>
  <Deleted><Key>z</Key></Deleted>
  <Error><Key>y</Key><Code>AccessDenied</Code><Message>Access Denied</Message></Error>
</DeleteResult>`

func TestS3DeleteMany(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["delete"]; !ok || r.Method != http.MethodPost {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.String()
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(deleteResponse))
	}))
	defer srv.Close()

	s := newTestS3(t, srv.URL)
	res, err := s.DeleteMany(context.Background(), []string{"x", "y", "z"})
	require.NoError(t, err)

	assert.Contains(t, body, "<Key>y</Key>")
	assert.Equal(t, []string{"x", "z"}, res.Deleted)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, DeleteFailure{Key: "y", Code: "AccessDenied", Message: "Access Denied"}, res.Failed[0])
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"localhost:9000", false, "http://localhost:9000"},
		{"localhost:9000", true, "https://localhost:9000"},
		{"https://abc.r2.cloudflarestorage.com/", false, "https://abc.r2.cloudflarestorage.com"},
		{"http://minio:9000/some/path", true, "http://minio:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, endpointURL(tt.endpoint, tt.useSSL))
		})
	}
}

func TestDetectStorageType(t *testing.T) {
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType("s3.eu-west-1.amazonaws.com"))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("http://localhost:9000"))
}

func TestNewStorageSelectsBackend(t *testing.T) {
	s, err := NewStorage(&S3Config{Type: StorageTypeMinIO, Endpoint: "localhost:9000", Bucket: "media"})
	require.NoError(t, err)
	assert.IsType(t, &MinIOStorage{}, s)

	cfg := &S3Config{Endpoint: "https://acct.r2.cloudflarestorage.com", Bucket: "media"}
	s, err = NewStorage(cfg)
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)
	assert.Equal(t, StorageTypeR2, cfg.Type)
}

func TestMinIOWithoutEndpointFailsOnUse(t *testing.T) {
	s, err := NewStorage(&S3Config{Type: StorageTypeMinIO, Bucket: "media"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.PresignPut(ctx, "uploads/a.jpg", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.PresignGet(ctx, "uploads/a.jpg", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.List(ctx, ListOptions{Limit: 10})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, s.Delete(ctx, "uploads/a.jpg"), ErrNotConfigured)
	_, err = s.DeleteMany(ctx, []string{"uploads/a.jpg"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, s.EnsureBucket(ctx), ErrNotConfigured)
}
