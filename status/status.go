// Package status defines the failure taxonomy shared by repos, services
// and controllers. Failures are values carrying a stable machine code
// and a human-readable message so callers can branch without string
// matching.
package status

import "fmt"

type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeForbidden          Code = "FORBIDDEN"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeConflict           Code = "CONFLICT"
	CodeGone               Code = "GONE"
	CodeInvalidRole        Code = "INVALID_ROLE"
	CodeLastAdminViolation Code = "LAST_ADMIN_VIOLATION"
	CodeInternal           Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }
func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }
func Validation(message string) *Error   { return New(CodeValidation, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }
func Gone(message string) *Error         { return New(CodeGone, message) }
func InvalidRole(message string) *Error  { return New(CodeInvalidRole, message) }
func LastAdmin(message string) *Error    { return New(CodeLastAdminViolation, message) }

// Internal wraps a transient store failure behind a generic message. The
// cause is for logs only and is never shown to the caller.
func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal failure"}
}

// CodeOf extracts the machine code from any error. Unknown errors map to
// CodeInternal so transient store failures surface as a generic failure.
func CodeOf(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
