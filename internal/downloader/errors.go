package downloader

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchKind classifies why a fetch failed. Every kind is terminal for the
// attempt; the fetcher never retries internally.
type FetchKind int

const (
	// KindTransport covers connection, DNS, TLS and mid-body read failures.
	KindTransport FetchKind = iota + 1
	// KindTooManyRedirects means the redirect chain exceeded the bound.
	KindTooManyRedirects
	// KindUnexpectedStatus means a non-200, non-redirect response (or a
	// redirect without a usable Location).
	KindUnexpectedStatus
)

func (k FetchKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTooManyRedirects:
		return "too many redirects"
	case KindUnexpectedStatus:
		return "unexpected status"
	default:
		return "unknown"
	}
}

var (
	ErrTransport        = errors.New("transport failure")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrInsufficientSpace is wrapped in a DownloadError with Op "space".
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// ErrInvalidURL is returned before any request when the URL is not absolute http(s).
	ErrInvalidURL = errors.New("url must be absolute http or https")
	// ErrNoDownloadURL is returned when a file has no download URL to fetch.
	ErrNoDownloadURL = errors.New("file has no download url")
)

// FetchError is the failure of one fetch. URL is sanitized for display.
type FetchError struct {
	Kind FetchKind
	URL  string
	// Code is the HTTP status for KindUnexpectedStatus.
	Code int
	// Hops is the number of redirects followed before failing.
	Hops int
	Err  error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindUnexpectedStatus:
		msg := fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case KindTooManyRedirects:
		return fmt.Sprintf("fetch %s: too many redirects (%d followed)", e.URL, e.Hops)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets callers match a kind with errors.Is(err, ErrTooManyRedirects).
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrTooManyRedirects:
		return e.Kind == KindTooManyRedirects
	case ErrUnexpectedStatus:
		return e.Kind == KindUnexpectedStatus
	}
	return false
}

// StatusCode extracts the HTTP status carried by an UnexpectedStatus error.
func StatusCode(err error) (int, bool) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind == KindUnexpectedStatus {
		return fe.Code, true
	}
	return 0, false
}

// DownloadError is the failure of one Download. Op names the failed step;
// "fetch" wraps a *FetchError and "verify" an *integrity.VerificationError.
type DownloadError struct {
	Op   string // space|fetch|verify|create|write|sync|close|rename
	URL  string
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s %s: %v", e.URL, e.Op, e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
