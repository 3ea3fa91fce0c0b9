package gateway

import "fmt"

// Kind classifies a rejection independently of the transport that
// eventually reports it. Transports map kinds to HTTP statuses or
// XML-RPC fault codes at their own boundary.
type Kind string

const (
	KindBadRequest         Kind = "bad_request"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
	KindServiceUnavailable Kind = "service_unavailable"
)

// Error is the gateway's abstract rejection. It never carries
// transport detail; HTTPStatus and WireCode are derived views.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus maps the error kind to its HTTP status equivalent.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindBadRequest:
		return 400
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindRateLimited:
		return 429
	case KindServiceUnavailable:
		return 503
	default:
		return 500
	}
}

// WireCode returns the REST envelope error code ("E400", "E503", ...).
func (e *Error) WireCode() string {
	return fmt.Sprintf("E%d", e.HTTPStatus())
}

func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrGatewayDisabled is returned for every call while the global
	// switch is off, regardless of credentials.
	ErrGatewayDisabled = &Error{Kind: KindServiceUnavailable, Message: "Gateway is disabled globally."}

	// ErrInvalidAPIKey is returned when key enforcement is on and the
	// credential does not resolve to an active principal.
	ErrInvalidAPIKey = &Error{Kind: KindUnauthorized, Message: "Invalid or missing API key."}

	// ErrRateLimited is returned when the sliding-window limit is hit.
	ErrRateLimited = &Error{Kind: KindRateLimited, Message: "Too many requests. Please try again later."}
)
