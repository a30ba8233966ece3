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

	// FieldJobID is the sync job ID
	FieldJobID = "job_id"

	// FieldConnectionID is the store connection ID
	FieldConnectionID = "connection_id"

	// FieldWorkspaceID is the workspace ID
	FieldWorkspaceID = "workspace_id"

	// FieldMarketplace is the marketplace type (shopify, vtex)
	FieldMarketplace = "marketplace"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldUserID is the user ID that triggered the operation
	FieldUserID = "user_id"
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

	// FieldPage is the current page number of a paged fetch
	FieldPage = "page"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
