package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the import run ID
	FieldRunID = "run_id"

	// FieldTrigger is what started the import run (manual, scheduled)
	FieldTrigger = "trigger"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSKU is the feed product identity
	FieldSKU = "sku"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldOutcome marks entries rendered with the SUCCESS level in the import log
	FieldOutcome = "outcome"
)

// OutcomeSuccess is the FieldOutcome value of a successful operation.
const OutcomeSuccess = "success"
