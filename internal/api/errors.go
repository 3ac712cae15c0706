package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure. Kinds are transport-independent:
// callers branch on Kind, never on HTTP status codes.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindAuth                Kind = "auth"
	KindPermissionDenied    Kind = "permission_denied"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindNetwork             Kind = "network"
	KindRealtimeUnavailable Kind = "realtime_unavailable"
)

// Error is a typed gateway failure.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for validation failures.
	Field string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errf builds a typed error with a formatted message.
func Errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// FieldErr builds a validation error naming the offending field.
func FieldErr(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not a
// gateway error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// kindForStatus maps an HTTP status to an error kind. 401 means the
// credential itself is bad (session invalidation); 403 means the actor
// lacks rights for this particular operation and must not end the
// session.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindPermissionDenied
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindNetwork
	default:
		return KindUnknown
	}
}
