package gateway

import (
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// Kind classifies a failed exchange with the backend.
type Kind string

const (
	KindEndpointNotFound   Kind = "endpoint_not_found"
	KindNetworkUnreachable Kind = "network_unreachable"
	KindCorsBlocked        Kind = "cors_blocked"
	KindHTTP               Kind = "http_error"
	KindUnknown            Kind = "unknown"
)

// Error is the classified failure of a single Send.
type Error struct {
	Kind Kind
	// Status is set for KindEndpointNotFound and KindHTTP.
	Status int
	// Message carries the original failure text for KindUnknown.
	Message string
	// BaseURL is quoted in remediation hints.
	BaseURL string
	Err     error
}

func (e *Error) Error() string {
	return e.Hint()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Hint is the plain-language, actionable text shown to the user.
func (e *Error) Hint() string {
	switch e.Kind {
	case KindEndpointNotFound:
		return "Endpoint " + ChatEndpoint + " tidak ditemukan. Pastikan backend berjalan di " + e.BaseURL
	case KindNetworkUnreachable:
		return "Tidak dapat terhubung ke backend. Pastikan server backend berjalan di " + e.BaseURL + "\n" +
			"Jalankan: npm start di folder backend"
	case KindCorsBlocked:
		return "CORS error. Backend sudah menggunakan cors(), tapi pastikan tidak ada firewall/proxy yang memblokir."
	case KindHTTP:
		return fmt.Sprintf("Server backend mengembalikan kesalahan (HTTP %d). Silakan coba beberapa saat lagi.", e.Status)
	default:
		return "Maaf, terjadi kesalahan saat menghubungi server: " + e.Message
	}
}

var unreachablePatterns = []string{
	"Failed to fetch",
	"Network request failed",
	"ECONNREFUSED",
	"connection refused",
	"no such host",
}

// Classify maps an arbitrary failure onto the error taxonomy. Errors that
// are already classified are returned unchanged.
func Classify(err error, baseURL string) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	msg := err.Error()
	switch {
	case isUnreachable(err, msg):
		return &Error{Kind: KindNetworkUnreachable, BaseURL: baseURL, Err: err}
	case strings.Contains(msg, "CORS"):
		return &Error{Kind: KindCorsBlocked, BaseURL: baseURL, Err: err}
	default:
		return &Error{Kind: KindUnknown, Message: msg, BaseURL: baseURL, Err: err}
	}
}

func isUnreachable(err error, msg string) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	for _, pattern := range unreachablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// HintFor returns the user-facing text for any error a replier produced.
func HintFor(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err, "").Hint()
}
