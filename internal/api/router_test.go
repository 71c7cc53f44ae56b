package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/mediagate/internal/metrics"
	"github.com/timmy/mediagate/internal/service"
	"github.com/timmy/mediagate/internal/storage"
	"github.com/timmy/mediagate/internal/storage/storagetest"
)

type testServer struct {
	router http.Handler
	mem    *storagetest.MemoryStorage
}

func newTestServer(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()
	mem := storagetest.NewMemoryStorage("http://store.test")
	m := metrics.New()
	svc := service.NewMediaService(storage.WithObserver(mem, m), service.MediaConfig{})
	cfg.Mode = "test"
	return &testServer{router: SetupRouter(svc, m, nil, cfg), mem: mem}
}

func (s *testServer) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, RouterConfig{Version: "v1.2.3"})

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.Zero(t, s.mem.TotalCalls())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetUploadURL(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	before := time.Now()
	rec := s.do(t, http.MethodPost, "/api/media/getUploadUrl", `{"extension":"jpg","mediaType":"avatars"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	key := body["key"].(string)
	assert.True(t, strings.HasPrefix(key, "avatars/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.Contains(t, body["uploadUrl"], "X-Method=PUT")

	expiresAt, err := time.Parse(time.RFC3339, body["expiresAt"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(300*time.Second), expiresAt, 5*time.Second)
}

func TestGetUploadURL_Validation(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	testCases := []struct {
		name string
		body string
	}{
		{"unknown media type", `{"extension":"jpg","mediaType":"documents"}`},
		{"missing extension", `{"mediaType":"avatars"}`},
		{"extension not a string", `{"extension":3,"mediaType":"avatars"}`},
		{"malformed json", `{"extension":`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/media/getUploadUrl", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["message"])
		})
	}

	rec := s.do(t, http.MethodPost, "/api/media/getUploadUrl", `{"extension":"jpg","mediaType":"documents"}`)
	assert.Equal(t, []interface{}{"avatars", "thumbnails", "uploads", "videos"}, decode(t, rec)["validOptions"])
	assert.Zero(t, s.mem.TotalCalls())
}

func TestGetUploadURL_InternalError(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	s.mem.PresignErr = errors.New("no credentials")

	rec := s.do(t, http.MethodPost, "/api/media/getUploadUrl", `{"extension":"jpg","mediaType":"avatars"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, "no credentials", body["details"])
}

func TestGetSignedURLs(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodPost, "/api/media/getSignedUrls", `{"keys":["a.jpg","b.png"],"path":"products"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	urls := decode(t, rec)["urls"].(map[string]interface{})
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "a.jpg")
	assert.Contains(t, urls, "b.png")
	assert.NotEqual(t, urls["a.jpg"], urls["b.png"])
}

func TestGetSignedURLs_InvalidKeys(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	for _, body := range []string{`{"keys":[]}`, `{}`, `{"keys":"a.jpg"}`} {
		rec := s.do(t, http.MethodPost, "/api/media/getSignedUrls", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, s.mem.TotalCalls())
}

func TestList(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	for i := 0; i < 1001; i++ {
		s.mem.Put(fmt.Sprintf("uploads/%04d.bin", i), []byte("x"))
	}

	testCases := []struct {
		query     string
		wantCount int
	}{
		{"", 100},
		{"?limit=0", 100},
		{"?limit=abc", 100},
		{"?limit=5000", 1000},
		{"?limit=10&prefix=uploads/", 10},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/media/list"+tc.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode(t, rec)
			assert.Len(t, body["items"], tc.wantCount)
			assert.Equal(t, float64(tc.wantCount), body["totalCount"])
			assert.NotEmpty(t, body["nextCursor"])
		})
	}
}

func TestList_LastPageHasNoCursor(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	s.mem.Put("videos/a.mp4", []byte("abc"))

	rec := s.do(t, http.MethodGet, "/api/media/list?prefix=videos/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.NotContains(t, body, "nextCursor")
	item := body["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "videos/a.mp4", item["key"])
	assert.Equal(t, float64(3), item["size"])
	assert.NotEmpty(t, item["lastModified"])
}

func TestList_StoreError(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	s.mem.ListErr = errors.New("bucket not found")

	rec := s.do(t, http.MethodGet, "/api/media/list", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "bucket not found", decode(t, rec)["details"])
}

func TestDelete_Single(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	s.mem.Put("avatars/a.jpg", []byte("a"))

	for i := 0; i < 2; i++ {
		rec := s.do(t, http.MethodDelete, "/api/media/delete?key=avatars/a.jpg", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "avatars/a.jpg", body["key"])
	}

	rec := s.do(t, http.MethodDelete, "/api/media/delete", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete_Batch(t *testing.T) {
	s := newTestServer(t, RouterConfig{})
	s.mem.Put("x", []byte("x"))
	s.mem.Put("z", []byte("z"))
	s.mem.FailKeys["y"] = errors.New("NoSuchKey")

	rec := s.do(t, http.MethodPost, "/api/media/delete", `{"keys":["x","y","z"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{"x", "z"}, body["deleted"])
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "y", errs[0].(map[string]interface{})["key"])
	assert.NotEmpty(t, errs[0].(map[string]interface{})["message"])
}

func TestDelete_BatchValidation(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	keys := make([]string, 1001)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	tooMany, err := json.Marshal(map[string][]string{"keys": keys})
	require.NoError(t, err)

	for _, body := range []string{`{"keys":[]}`, `{}`, `{"keys":"x"}`, string(tooMany)} {
		rec := s.do(t, http.MethodPost, "/api/media/delete", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Zero(t, s.mem.TotalCalls(), "no store call before validation passes")
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	testCases := []struct {
		path    string
		methods []string
	}{
		{"/api/media/getUploadUrl", []string{"POST"}},
		{"/api/media/getSignedUrls", []string{"POST"}},
		{"/api/media/list", []string{"GET"}},
		{"/api/media/delete", []string{"DELETE", "POST"}},
	}

	preflightHeaders := []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
		"Access-Control-Max-Age",
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			bare := s.do(t, http.MethodOptions, tc.path, "")
			assert.Equal(t, http.StatusOK, bare.Code)
			assert.Equal(t, "*", bare.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "86400", bare.Header().Get("Access-Control-Max-Age"))
			assert.Equal(t, "GET,POST,DELETE,OPTIONS", bare.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type,Authorization", bare.Header().Get("Access-Control-Allow-Headers"))

			cross := s.do(t, http.MethodOptions, tc.path, "",
				"Origin", "http://app.test",
				"Access-Control-Request-Method", tc.methods[0],
				"Access-Control-Request-Headers", "Content-Type")
			assert.Equal(t, http.StatusOK, cross.Code)
			for _, h := range preflightHeaders {
				assert.Equal(t, bare.Header().Get(h), cross.Header().Get(h), h)
			}
			for _, m := range tc.methods {
				assert.Contains(t, cross.Header().Get("Access-Control-Allow-Methods"), m)
			}
		})
	}
	assert.Zero(t, s.mem.TotalCalls())
}

func TestCORSOnActualRequest(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	rec := s.do(t, http.MethodGet, "/api/media/list", "", "Origin", "https://anywhere.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestBearerAuth(t *testing.T) {
	s := newTestServer(t, RouterConfig{JWTSecret: "s3cret"})

	rec := s.do(t, http.MethodGet, "/api/media/list", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/media/list", "", "Authorization", "Bearer "+signToken(t, "wrong", "u1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/media/list", "", "Authorization", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/media/list", "", "Authorization", "Bearer "+signToken(t, "s3cret", "u1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodOptions, "/api/media/list", "")
	assert.Equal(t, http.StatusOK, rec.Code, "preflight is not authenticated")

	rec = s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, RouterConfig{})

	s.do(t, http.MethodGet, "/api/media/list", "")
	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `mediagate_http_requests_total{code="200",method="GET",route="/api/media/list"} 1`)
	assert.Contains(t, body, `mediagate_storage_ops_total{op="list",result="ok"} 1`)
}
