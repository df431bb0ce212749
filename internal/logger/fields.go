package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried on the context logger through a call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the analysis run ID
	FieldRunID = "run_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldModel is the embedding model in use
	FieldModel = "model"

	// FieldURL is the page being analyzed
	FieldURL = "url"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldTokens     = "tokens"
	FieldCacheHits  = "cache_hits"
	FieldBatch      = "batch"
	FieldStatus     = "status"
	FieldSize       = "size"
)
