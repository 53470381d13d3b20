package logging

// Shared structured logging field names. Components use these constants
// so the same fact always appears under the same key.
const (
	FieldComponent = "component"
	FieldEvent     = "event_type"
	FieldPath      = "path"
	FieldRoot      = "root"
	FieldSize      = "size_bytes"
	FieldState     = "state"
	FieldDuration  = "duration"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldRunID     = "run_id"
	FieldCount     = "count"
)
