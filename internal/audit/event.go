package audit

import "time"

// Kind identifies what kind of occurrence an event records.
type Kind string

const (
	KindAuthSuccess      Kind = "auth_success"
	KindAuthFailure      Kind = "auth_failure"
	KindModelAccess      Kind = "model_access"
	KindWriteOperation   Kind = "write_operation"
	KindError            Kind = "error"
	KindRateLimit        Kind = "rate_limit"
	KindPermissionDenied Kind = "permission_denied"
)

// maxTextLength caps free-text fields before persistence.
const maxTextLength = 10000

const truncationMarker = "... [truncated]"

// Event is one immutable record of something the gateway observed or
// decided. Events are created once and deleted only by the retention
// sweep.
type Event struct {
	ID           int64         `json:"id,omitempty"`
	Kind         Kind          `json:"event_type"`
	UserID       string        `json:"user_id,omitempty"`
	APIKeyUsed   bool          `json:"api_key_used,omitempty"`
	IPAddress    string        `json:"ip_address,omitempty"`
	Endpoint     string        `json:"endpoint,omitempty"`
	HTTPMethod   string        `json:"http_method,omitempty"`
	Model        string        `json:"model_name,omitempty"`
	Operation    string        `json:"operation,omitempty"`
	RecordIDs    string        `json:"record_ids,omitempty"`
	RequestData  string        `json:"request_data,omitempty"`
	ResponseData string        `json:"response_data,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	UserAgent    string        `json:"user_agent,omitempty"`
	Duration     time.Duration `json:"duration_ms,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// truncate enforces the text cap with a trailing marker.
func truncate(s string) string {
	if len(s) <= maxTextLength {
		return s
	}
	return s[:maxTextLength] + truncationMarker
}

// bounded returns a copy of the event with all free-text fields capped.
func (e Event) bounded() Event {
	e.RequestData = truncate(e.RequestData)
	e.ResponseData = truncate(e.ResponseData)
	e.ErrorMessage = truncate(e.ErrorMessage)
	e.UserAgent = truncate(e.UserAgent)
	return e
}
