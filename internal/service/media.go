package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/mediagate/internal/domain"
	"github.com/timmy/mediagate/internal/logger"
	"github.com/timmy/mediagate/internal/storage"
)

const (
	DefaultUploadURLExpiry   = 5 * time.Minute
	DefaultDownloadURLExpiry = 24 * time.Hour
	DefaultListLimit         = 100
	MaxListLimit             = 1000
	MaxDeleteBatch           = 1000

	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

// MediaConfig holds configuration for the media service.
// Zero values fall back to the package defaults. ListMaxLimit and
// DeleteBatchMax can be lowered but never raised past 1000.
type MediaConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
	ListDefaultLimit  int
	ListMaxLimit      int
	DeleteBatchMax    int
}

func (c MediaConfig) withDefaults() MediaConfig {
	if c.UploadURLExpiry <= 0 {
		c.UploadURLExpiry = DefaultUploadURLExpiry
	}
	if c.DownloadURLExpiry <= 0 {
		c.DownloadURLExpiry = DefaultDownloadURLExpiry
	}
	if c.ListDefaultLimit <= 0 {
		c.ListDefaultLimit = DefaultListLimit
	}
	if c.ListMaxLimit <= 0 || c.ListMaxLimit > MaxListLimit {
		c.ListMaxLimit = MaxListLimit
	}
	if c.ListDefaultLimit > c.ListMaxLimit {
		c.ListDefaultLimit = c.ListMaxLimit
	}
	if c.DeleteBatchMax <= 0 || c.DeleteBatchMax > MaxDeleteBatch {
		c.DeleteBatchMax = MaxDeleteBatch
	}
	return c
}

// MediaService issues presigned URLs and lists or deletes media objects.
// It holds no per-request state and is safe for concurrent use.
type MediaService struct {
	storage storage.ObjectStorage
	cfg     MediaConfig

	now   func() time.Time
	newID func() string
}

// Option customizes a MediaService.
type Option func(*MediaService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MediaService) { s.now = now }
}

// WithIDGenerator replaces the generator for upload filenames.
func WithIDGenerator(gen func() string) Option {
	return func(s *MediaService) { s.newID = gen }
}

// NewMediaService creates a media service backed by objectStorage.
func NewMediaService(objectStorage storage.ObjectStorage, cfg MediaConfig, opts ...Option) *MediaService {
	s := &MediaService{
		storage: objectStorage,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		newID:   newFilename,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// opContext tags ctx's logger with the media component, the operation name and extra fields.
func opContext(ctx context.Context, op string, fields logger.Fields) context.Context {
	ctx = logger.SetOperation(ctx, op)
	if fields == nil {
		fields = logger.Fields{}
	}
	fields[logger.FieldComponent] = "media"
	return logger.WithFields(ctx, fields)
}

// newFilename returns a time-ordered UUID, falling back to a random one.
func newFilename() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// UploadRequest asks for a presigned PUT URL.
type UploadRequest struct {
	Extension      string `json:"extension"`
	MediaType      string `json:"mediaType"`
	CustomFilename string `json:"customFilename,omitempty"`
}

// SignedURLsRequest asks for presigned GET URLs. Path, when set, is joined in front of every key.
type SignedURLsRequest struct {
	Keys []string `json:"keys"`
	Path string   `json:"path,omitempty"`
}

// ListRequest selects one page of objects. Limit <= 0 means the default.
type ListRequest struct {
	Prefix string
	Cursor string
	Limit  int
}

// DeleteBatchRequest names the keys to remove in one bulk call.
type DeleteBatchRequest struct {
	Keys []string `json:"keys"`
}

// IssueUploadURL validates req and returns a grant for a single PUT to a fresh key.
func (s *MediaService) IssueUploadURL(ctx context.Context, req *UploadRequest) (*domain.UploadGrant, error) {
	ext := strings.TrimPrefix(req.Extension, ".")
	if ext == "" {
		return nil, Validation("extension is required")
	}

	mediaType := domain.MediaType(req.MediaType)
	prefix, ok := mediaType.Prefix()
	if !ok {
		return nil, Validation("invalid mediaType", domain.MediaTypes()...)
	}

	filename := req.CustomFilename
	if filename == "" {
		filename = s.newID()
	}
	key := prefix + "/" + filename + "." + ext

	ctx = opContext(ctx, "upload_url", logger.Fields{
		logger.FieldMediaType: string(mediaType),
		logger.FieldKey:       key,
	})

	issuedAt := s.now()
	uploadURL, err := s.storage.PresignPut(ctx, key, s.cfg.UploadURLExpiry)
	if err != nil {
		logger.CtxError(ctx, "Failed to presign upload: %v", err)
		return nil, Internal("Failed to generate upload URL", err)
	}

	logger.CtxInfo(ctx, "Issued upload URL")
	return &domain.UploadGrant{
		UploadURL: uploadURL,
		Key:       key,
		ExpiresAt: issuedAt.Add(s.cfg.UploadURLExpiry).UTC(),
	}, nil
}

// ResolveSignedURLs presigns a GET URL for every non-empty key, in input order.
// The result is keyed by the caller's key, not the joined storage key.
// Any signing failure fails the whole batch.
func (s *MediaService) ResolveSignedURLs(ctx context.Context, req *SignedURLsRequest) (*domain.SignedURLs, error) {
	if len(req.Keys) == 0 {
		return nil, Validation("keys must be a non-empty array")
	}

	ctx = opContext(ctx, "signed_urls", logger.Fields{logger.FieldPrefix: req.Path})
	start := time.Now()

	urls := make(map[string]string, len(req.Keys))
	for _, key := range req.Keys {
		if key == "" {
			continue
		}
		fullKey := key
		if req.Path != "" {
			fullKey = req.Path + "/" + key
		}

		signed, err := s.storage.PresignGet(ctx, fullKey, s.cfg.DownloadURLExpiry)
		if err != nil {
			logger.CtxError(ctx, "Failed to presign download: key=%s, error=%v", fullKey, err)
			return nil, Internal("Failed to generate signed URLs", err)
		}
		urls[key] = signed
	}

	logger.With(nil).
		WithCount(len(urls)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Signed download URLs")
	return &domain.SignedURLs{URLs: urls}, nil
}

// EffectiveLimit clamps a requested page size to the configured bounds.
func (s *MediaService) EffectiveLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.ListDefaultLimit
	}
	if limit > s.cfg.ListMaxLimit {
		return s.cfg.ListMaxLimit
	}
	return limit
}

// List returns one page of objects in store order.
func (s *MediaService) List(ctx context.Context, req *ListRequest) (*domain.MediaListing, error) {
	limit := s.EffectiveLimit(req.Limit)

	ctx = opContext(ctx, "list", logger.Fields{logger.FieldPrefix: req.Prefix})

	page, err := s.storage.List(ctx, storage.ListOptions{
		Prefix: req.Prefix,
		Cursor: req.Cursor,
		Limit:  limit,
	})
	if err != nil {
		logger.CtxError(ctx, "Failed to list objects: %v", err)
		return nil, Internal("Failed to list media", err)
	}

	items := make([]domain.MediaItem, 0, len(page.Objects))
	for _, obj := range page.Objects {
		item := domain.MediaItem{Key: obj.Key, Size: obj.Size}
		if !obj.LastModified.IsZero() {
			item.LastModified = obj.LastModified.UTC().Format(isoMillis)
		}
		items = append(items, item)
	}

	logger.CtxDebug(ctx, "Listed %d objects (limit=%d, more=%t)", len(items), limit, page.NextCursor != "")
	return &domain.MediaListing{
		Items:      items,
		TotalCount: len(items),
		NextCursor: page.NextCursor,
	}, nil
}

// Delete removes a single key. Removing a missing key succeeds.
func (s *MediaService) Delete(ctx context.Context, key string) (*domain.DeleteResult, error) {
	if key == "" {
		return nil, Validation("key is required")
	}

	ctx = opContext(ctx, "delete", logger.Fields{logger.FieldKey: key})

	if err := s.storage.Delete(ctx, key); err != nil {
		logger.CtxError(ctx, "Failed to delete object: %v", err)
		return nil, Internal("Failed to delete media", err)
	}

	logger.CtxInfo(ctx, "Deleted object")
	return &domain.DeleteResult{Success: true, Key: key}, nil
}

// DeleteBatch removes keys with one bulk store call.
// Per-key failures are reported in the result, not as an error.
func (s *MediaService) DeleteBatch(ctx context.Context, req *DeleteBatchRequest) (*domain.BatchDeleteResult, error) {
	if len(req.Keys) == 0 {
		return nil, Validation("keys must be a non-empty array")
	}
	if len(req.Keys) > s.cfg.DeleteBatchMax {
		return nil, Validation(fmt.Sprintf("too many keys: at most %d per request", s.cfg.DeleteBatchMax))
	}

	ctx = opContext(ctx, "delete_batch", nil)

	res, err := s.storage.DeleteMany(ctx, req.Keys)
	if err != nil {
		logger.CtxError(ctx, "Failed to delete objects: count=%d, error=%v", len(req.Keys), err)
		return nil, Internal("Failed to delete media", err)
	}

	result := &domain.BatchDeleteResult{
		Success: true,
		Deleted: make([]string, 0, len(res.Deleted)),
		Errors:  make([]domain.KeyError, 0, len(res.Failed)),
	}
	result.Deleted = append(result.Deleted, res.Deleted...)
	for _, f := range res.Failed {
		msg := f.Message
		if msg == "" {
			msg = f.Code
		}
		result.Errors = append(result.Errors, domain.KeyError{Key: f.Key, Message: msg})
	}

	entry := logger.With(nil).WithCount(len(result.Deleted))
	if len(result.Errors) > 0 {
		entry.Warn(ctx, "Batch delete finished with %d failed keys", len(result.Errors))
	} else {
		entry.Info(ctx, "Batch delete finished")
	}
	return result, nil
}
