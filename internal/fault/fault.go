// Package fault defines the typed, user-facing error carried out of the
// booking and payment services.  Handlers translate a Fault into its HTTP
// status and message; anything that is not a Fault is an internal error
// and must not leak its text to clients.
package fault

import (
    "errors"
    "fmt"
    "net/http"
)

// Fault is a rule violation with a user-facing message.  Status carries
// the HTTP status the violation maps to: 400 for malformed input and
// ineligibility, 401/403 for identity problems, 404 for missing entities
// and 409 for timing conflicts such as overlaps and pending payments.
type Fault struct {
    Status  int
    Message string
}

// Error implements the error interface; the text is safe to show users.
func (f *Fault) Error() string { return f.Message }

// New returns a Fault with the given status and message.
func New(status int, message string) *Fault {
    return &Fault{Status: status, Message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(status int, format string, args ...any) *Fault {
    return &Fault{Status: status, Message: fmt.Sprintf(format, args...)}
}

// StatusOf returns the HTTP status for err: the Fault's own status when
// err is (or wraps) a Fault, 500 otherwise.
func StatusOf(err error) int {
    var f *Fault
    if errors.As(err, &f) {
        return f.Status
    }
    return http.StatusInternalServerError
}

// MessageOf returns the user-facing message for err, or a generic one for
// internal errors.
func MessageOf(err error) string {
    var f *Fault
    if errors.As(err, &f) {
        return f.Message
    }
    return "internal server error"
}
