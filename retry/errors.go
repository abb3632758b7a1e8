package retry

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/Fayeblade1488/venicebridge"
)

// statusCoder is an interface for errors that carry an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// IsTransient determines if an error is transient and should be retried.
// It first checks if the error implements venicebridge.CategorizedError for
// explicit categorization. If not, it falls back to heuristic detection:
// - Rate limits (HTTP 429)
// - Server errors (HTTP 5xx)
// - Network timeouts
// - Connection refused/reset
// - DNS failures
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// First, check if error implements CategorizedError for explicit categorization
	var ce venicebridge.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == venicebridge.ErrorTransient
	}

	// Fall back to heuristic detection for uncategorized errors

	var sc statusCoder
	if errors.As(err, &sc) {
		if IsTransientStatusCode(sc.StatusCode()) {
			return true
		}
	}

	if isTransientNetworkError(err) {
		return true
	}

	return false
}

// IsTransientStatusCode checks if an HTTP status code indicates a transient error.
func IsTransientStatusCode(code int) bool {
	// 429 = Rate Limited
	if code == 429 {
		return true
	}
	// 5xx = Server Errors
	if code >= 500 && code < 600 {
		return true
	}
	return false
}

// isTransientNetworkError checks for network-level errors that are transient.
func isTransientNetworkError(err error) bool {
	// Timeouts
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection refused / reset
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	// DNS failures
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// URL errors wrap the underlying cause
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		return isTransientNetworkError(urlErr.Err)
	}

	// Last resort: string matching for errors that lose their type
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"temporary failure",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}
