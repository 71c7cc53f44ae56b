// Package mediaclient is a Go client for the mediagate HTTP API.
//
// Object bytes never pass through the API: Upload and Download talk to the
// object store directly through presigned URLs.
package mediaclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mediagate/internal/domain"
)

type (
	UploadGrant       = domain.UploadGrant
	MediaListing      = domain.MediaListing
	MediaItem         = domain.MediaItem
	DeleteResult      = domain.DeleteResult
	BatchDeleteResult = domain.BatchDeleteResult
	KeyError          = domain.KeyError
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode   int      `json:"-"`
	Message      string   `json:"message"`
	Details      string   `json:"details,omitempty"`
	ValidOptions []string `json:"validOptions,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("mediagate: status %d: %s", e.StatusCode, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if len(e.ValidOptions) > 0 {
		msg += "; valid options: " + strings.Join(e.ValidOptions, ", ")
	}
	return msg
}

// Config holds client settings.
type Config struct {
	BaseURL    string
	Token      string // sent as a Bearer token when set
	Timeout    time.Duration
	RetryCount int // retries on transport errors and 5xx answers
}

// Client calls the mediagate API.
type Client struct {
	api   *resty.Client
	store *resty.Client
}

// New creates a client for the API at cfg.BaseURL.
func New(cfg Config) *Client {
	api := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		api.SetAuthToken(cfg.Token)
	}
	if cfg.RetryCount > 0 {
		api.SetRetryCount(cfg.RetryCount).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}

	// Presigned URLs carry their own signature and must not get an Authorization header.
	store := resty.New().SetPreRequestHook(applyContentLength)

	if cfg.Timeout > 0 {
		api.SetTimeout(cfg.Timeout)
		store.SetTimeout(cfg.Timeout)
	}

	return &Client{api: api, store: store}
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, result interface{}) error {
	apiErr := &APIError{}
	req := c.api.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	for k, v := range query {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = resp.Status()
		}
		return apiErr
	}
	return nil
}

// GetUploadURL asks for a presigned PUT URL. customFilename may be empty.
func (c *Client) GetUploadURL(ctx context.Context, extension, mediaType, customFilename string) (*UploadGrant, error) {
	body := map[string]string{
		"extension": extension,
		"mediaType": mediaType,
	}
	if customFilename != "" {
		body["customFilename"] = customFilename
	}

	var grant UploadGrant
	if err := c.do(ctx, http.MethodPost, "/api/media/getUploadUrl", nil, body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetSignedURLs returns a presigned GET URL per key, keyed as given.
func (c *Client) GetSignedURLs(ctx context.Context, keys []string, path string) (map[string]string, error) {
	body := map[string]interface{}{"keys": keys}
	if path != "" {
		body["path"] = path
	}

	var resp struct {
		URLs map[string]string `json:"urls"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/media/getSignedUrls", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.URLs, nil
}

// ListOptions selects a page. Zero values use the server defaults.
type ListOptions struct {
	Prefix string
	Cursor string
	Limit  int
}

// List returns one page of objects.
func (c *Client) List(ctx context.Context, opts ListOptions) (*MediaListing, error) {
	query := map[string]string{
		"prefix": opts.Prefix,
		"cursor": opts.Cursor,
	}
	if opts.Limit > 0 {
		query["limit"] = strconv.Itoa(opts.Limit)
	}

	var listing MediaListing
	if err := c.do(ctx, http.MethodGet, "/api/media/list", query, nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListAll follows cursors until the listing is exhausted, calling fn per page.
func (c *Client) ListAll(ctx context.Context, opts ListOptions, fn func(*MediaListing) error) error {
	for {
		page, err := c.List(ctx, opts)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.NextCursor == "" {
			return nil
		}
		opts.Cursor = page.NextCursor
	}
}

// Delete removes a single key.
func (c *Client) Delete(ctx context.Context, key string) (*DeleteResult, error) {
	var res DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/api/media/delete", map[string]string{"key": key}, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteBatch removes up to 1000 keys in one call.
func (c *Client) DeleteBatch(ctx context.Context, keys []string) (*BatchDeleteResult, error) {
	var res BatchDeleteResult
	body := map[string][]string{"keys": keys}
	if err := c.do(ctx, http.MethodPost, "/api/media/delete", nil, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Upload PUTs body to a presigned upload URL.
// S3 and R2 reject chunked uploads, so the request always carries a Content-Length:
// files and in-memory readers stream with their known size, other readers are buffered.
func (c *Client) Upload(ctx context.Context, uploadURL string, body io.Reader, contentType string) error {
	req := c.store.R().
		SetContext(ctx).
		SetBody(body)
	if n, ok := bodySize(body); ok {
		req.SetHeader("Content-Length", strconv.FormatInt(n, 10))
	} else {
		req.SetContentLength(true)
	}
	if contentType != "" {
		req.SetHeader("Content-Type", contentType)
	}

	resp, err := req.Put(uploadURL)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upload rejected: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Download fetches an object through a presigned GET URL.
func (c *Client) Download(ctx context.Context, signedURL string) ([]byte, error) {
	resp, err := c.store.R().
		SetContext(ctx).
		Get(signedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download rejected: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return resp.Body(), nil
}

// bodySize reports how many bytes body will yield, when that is known without reading it.
func bodySize(body io.Reader) (int64, bool) {
	switch b := body.(type) {
	case interface{ Len() int }:
		return int64(b.Len()), true
	case *os.File:
		info, err := b.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return 0, false
		}
		pos, err := b.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, false
		}
		return info.Size() - pos, true
	}
	return 0, false
}

// applyContentLength moves a Content-Length header onto the outgoing request,
// which net/http otherwise ignores in favour of chunked encoding for plain readers.
func applyContentLength(_ *resty.Client, r *http.Request) error {
	v := r.Header.Get("Content-Length")
	if v == "" {
		return nil
	}
	r.Header.Del("Content-Length")
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid content length %q: %w", v, err)
	}
	r.ContentLength = n
	if n == 0 {
		r.Body = http.NoBody
	}
	return nil
}

// UploadFile issues an upload URL and PUTs body to it, returning the grant.
func (c *Client) UploadFile(ctx context.Context, extension, mediaType, customFilename string, body io.Reader, contentType string) (*UploadGrant, error) {
	grant, err := c.GetUploadURL(ctx, extension, mediaType, customFilename)
	if err != nil {
		return nil, err
	}
	if err := c.Upload(ctx, grant.UploadURL, body, contentType); err != nil {
		return nil, err
	}
	return grant, nil
}
