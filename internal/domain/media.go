package domain

import (
	"sort"
	"time"
)

// MediaType selects the storage prefix a new object is written under.
// The set is closed: MediaTypeAvatars, MediaTypeVideos, MediaTypeThumbnails and MediaTypeUploads.
type MediaType string

const (
	MediaTypeAvatars    MediaType = "avatars"
	MediaTypeVideos     MediaType = "videos"
	MediaTypeThumbnails MediaType = "thumbnails"
	MediaTypeUploads    MediaType = "uploads"
)

var mediaPrefixes = map[MediaType]string{
	MediaTypeAvatars:    "avatars",
	MediaTypeVideos:     "videos",
	MediaTypeThumbnails: "thumbnails",
	MediaTypeUploads:    "uploads",
}

// Prefix returns the storage folder for the media type and whether the type is known.
func (t MediaType) Prefix() (string, bool) {
	p, ok := mediaPrefixes[t]
	return p, ok
}

// MediaTypes returns every known media type in lexical order.
func MediaTypes() []string {
	types := make([]string, 0, len(mediaPrefixes))
	for t := range mediaPrefixes {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return types
}

// UploadGrant allows a single PUT to Key until ExpiresAt.
type UploadGrant struct {
	UploadURL string    `json:"uploadUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignedURLs maps each caller-supplied key to a presigned GET URL.
type SignedURLs struct {
	URLs map[string]string `json:"urls"`
}

// MediaItem is one listed object. LastModified is ISO-8601 or empty when unknown.
type MediaItem struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// MediaListing is a single page of listed objects.
type MediaListing struct {
	Items      []MediaItem `json:"items"`
	TotalCount int         `json:"totalCount"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// DeleteResult acknowledges a single-key delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}

// KeyError reports why one key of a batch delete failed.
type KeyError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// BatchDeleteResult partitions a batch delete into deleted keys and per-key errors.
type BatchDeleteResult struct {
	Success bool       `json:"success"`
	Deleted []string   `json:"deleted"`
	Errors  []KeyError `json:"errors"`
}
