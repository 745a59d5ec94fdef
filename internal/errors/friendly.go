package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strings"
)

const docsConfig = "https://docs.curseforge.com/rest-api/#authentication"

// UserFriendlyError provides actionable error messages for end users
type UserFriendlyError struct {
	Message    string // User-facing message explaining what went wrong
	Suggestion string // Actionable steps to fix the issue
	DocsLink   string // Optional link to documentation
	Details    error  // Original error for debugging/logs
}

func (e *UserFriendlyError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString("How to fix:\n")
		sb.WriteString(e.Suggestion)
	}

	if e.DocsLink != "" {
		sb.WriteString("\n\n")
		sb.WriteString("Documentation: ")
		sb.WriteString(e.DocsLink)
	}

	return sb.String()
}

func (e *UserFriendlyError) Unwrap() error {
	return e.Details
}

// NewFriendlyError creates a user-friendly error
func NewFriendlyError(message, suggestion string) *UserFriendlyError {
	return &UserFriendlyError{
		Message:    message,
		Suggestion: suggestion,
	}
}

// WithDetails adds the underlying error details
func (e *UserFriendlyError) WithDetails(err error) *UserFriendlyError {
	e.Details = err
	return e
}

// WithDocs adds a documentation link
func (e *UserFriendlyError) WithDocs(link string) *UserFriendlyError {
	e.DocsLink = link
	return e
}

// NetworkError classifies transport failures into a short message and a hint.
func NetworkError(err error) *UserFriendlyError {
	msg := "Network error occurred"
	suggestion := "Check your internet connection and try again"

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case err == nil:
	case stderrors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		msg = "Connection timed out"
		suggestion = "The server is slow or unreachable. Raise network.timeout_seconds or try again later."
	case stderrors.Is(err, context.Canceled):
		msg = "Operation cancelled"
		suggestion = ""
	case stderrors.As(err, &dnsErr):
		msg = "Cannot resolve hostname - DNS lookup failed"
		suggestion = "1. Check your internet connection\n2. Verify DNS settings"
	case stderrors.As(err, &opErr) && opErr.Op == "dial":
		msg = "Server refused connection"
		suggestion = "The server may be down or blocking requests. Try again later."
	case strings.Contains(err.Error(), "x509") || strings.Contains(err.Error(), "certificate"):
		msg = "SSL/TLS certificate verification failed"
		suggestion = "You may be behind an intercepting proxy; install its CA certificate in the system trust store."
	}

	return &UserFriendlyError{
		Message:    msg,
		Suggestion: suggestion,
		Details:    err,
	}
}

// AuthError explains a rejected or missing API key.
func AuthError(keyEnv string, statusCode int, err error) *UserFriendlyError {
	msg := "CurseForge API key missing"
	if statusCode != 0 {
		msg = fmt.Sprintf("CurseForge API rejected the request (%d)", statusCode)
	}
	return &UserFriendlyError{
		Message: msg,
		Suggestion: fmt.Sprintf("1. Create a key at https://console.curseforge.com/#/api-keys\n"+
			"2. export %s=...\n"+
			"3. Or set api.key in the config file", keyEnv),
		DocsLink: docsConfig,
		Details:  err,
	}
}

// ConfigError returns configuration-related errors
func ConfigError(field, issue string) *UserFriendlyError {
	return &UserFriendlyError{
		Message:    fmt.Sprintf("Configuration error in field '%s': %s", field, issue),
		Suggestion: "Run 'cfcore config validate' to check your configuration",
	}
}

// DatabaseError returns database-related errors with recovery suggestions
func DatabaseError(err error) *UserFriendlyError {
	msg := "Database error"
	suggestion := "Remove state.db under general.data_root to start a fresh download ledger"

	if err != nil && strings.Contains(err.Error(), "locked") {
		msg = "Database is locked by another process"
		suggestion = "Close other cfcore instances and try again"
	}

	return &UserFriendlyError{
		Message:    msg,
		Suggestion: suggestion,
		Details:    err,
	}
}

// PathError returns file/directory path related errors
func PathError(path string, err error) *UserFriendlyError {
	msg := fmt.Sprintf("Path error: %s", path)
	suggestion := "Check that the path exists and you have permission to access it"

	switch {
	case stderrors.Is(err, os.ErrPermission):
		msg = fmt.Sprintf("Permission denied: %s", path)
		suggestion = fmt.Sprintf("Ensure you have write permission:\n  chmod u+w %s", path)
	case stderrors.Is(err, os.ErrNotExist):
		msg = fmt.Sprintf("Directory does not exist: %s", path)
		suggestion = fmt.Sprintf("Create the directory:\n  mkdir -p %s", path)
	}

	return &UserFriendlyError{
		Message:    msg,
		Suggestion: suggestion,
		Details:    err,
	}
}
