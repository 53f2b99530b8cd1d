package logging

// Standardized attribute keys. Components use these instead of ad hoc key
// strings so log consumers can filter reliably.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldFolder    = "folder"
	FieldDevice    = "device"
	FieldSession   = "session_id"
	FieldState     = "state"
)
