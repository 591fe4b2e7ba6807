package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrValidation marks a missing or invalid input field.
	ErrValidation = errors.New("validation failed")

	// ErrAuthFailed is returned for any bad login attempt. The message is
	// deliberately the same for unknown users and wrong passwords.
	ErrAuthFailed = errors.New("invalid credentials")

	// ErrUnauthorized wraps every bearer token rejection.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpired indicates a token whose exp claim has passed.
	ErrExpired = errors.New("token expired")

	// ErrUserNotFound indicates a verified token whose subject no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotFound indicates a missing resource other than the principal.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation such as a taken username.
	ErrConflict = errors.New("already exists")

	// ErrUpstream indicates the payment gateway failed or answered garbage.
	ErrUpstream = errors.New("upstream error")

	// ErrMisconfiguration indicates a required secret or setting is missing.
	ErrMisconfiguration = errors.New("server misconfiguration")
)

// UpstreamError carries the gateway response for diagnosis.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("payment gateway error: %s", e.Detail)
	}
	return fmt.Sprintf("payment gateway error: status=%d: %s", e.Status, e.Detail)
}

// Unwrap lets errors.Is match ErrUpstream.
func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// Validation builds an ErrValidation with a client facing message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Status maps an error onto the HTTP status code clients observe.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthFailed), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client facing text for err. Unclassified errors
// collapse to "internal error" so internals never reach the response.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "Token expired"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken):
		return "Invalid token"
	case errors.Is(err, ErrAuthFailed):
		return "Invalid credentials"
	case errors.Is(err, ErrUserNotFound):
		return "User not found"
	case errors.Is(err, ErrUpstream):
		return "Payment gateway error"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrMisconfiguration):
		return lastSegment(err.Error())
	default:
		return "internal error"
	}
}

func lastSegment(msg string) string {
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
