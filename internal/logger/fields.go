package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Context fields, carried by every line logged on a tagged context.
const (
	FieldRequestID = "request_id"
	FieldComponent = "component" // api, media, storage
	FieldOperation = "operation" // upload_url, signed_urls, list, delete, delete_batch
	FieldUserID    = "user_id"   // bearer token subject

	FieldKey       = "key"
	FieldMediaType = "media_type"
	FieldPrefix    = "prefix"
)

// Entry fields, used for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size" // response bytes
	FieldStatus     = "status"
)
