package curseforge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingAPIKey      = errors.New("curseforge: api key required")
	ErrBadRequest         = errors.New("curseforge: bad request")
	ErrUnauthorized       = errors.New("curseforge: api key rejected")
	ErrNotFound           = errors.New("curseforge: not found")
	ErrInternalServer     = errors.New("curseforge: internal server error")
	ErrServiceUnavailable = errors.New("curseforge: service unavailable")
	// ErrUnbound is returned by navigation methods on a resource that was not
	// fetched through a Client, e.g. one decoded from JSON by the caller.
	ErrUnbound = errors.New("curseforge: resource not bound to a client")
)

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Code   int
	Method string
	Path   string
	// Body is the first few hundred bytes of the response, for diagnostics.
	Body string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("curseforge: %s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if b := strings.TrimSpace(e.Body); b != "" {
		msg += ": " + b
	}
	return msg
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.Code == http.StatusBadRequest
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrInternalServer:
		return e.Code == http.StatusInternalServerError
	case ErrServiceUnavailable:
		return e.Code == http.StatusServiceUnavailable
	}
	return false
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
