// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns failed source downloads into short troubleshooting
// hints.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// StatusError is a response outside the 2xx range.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d (%s)", e.Code, http.StatusText(e.Code))
}

// Hint returns a one-line suggestion for a failed download, or "" when the
// failure is not recognised.
func Hint(err error) string {
	if err == nil {
		return ""
	}

	var status *StatusError
	if errors.As(err, &status) {
		host := ExtractHostFromURL(status.URL)
		switch {
		case status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden:
			return fmt.Sprintf("%s refused access; store a token with 'goexec token set %s'", host, host)
		case status.Code == http.StatusNotFound:
			return fmt.Sprintf("check the URL; private files on %s also answer 404 without a token", host)
		case status.Code == http.StatusTooManyRequests:
			return "rate limited; set a token to raise the limit or try again later"
		case status.Code >= 500:
			return fmt.Sprintf("%s had a server error; try again in a few minutes", host)
		}
		return ""
	}

	switch {
	case isTimeoutError(err):
		return "the server took too long to respond; check your connection and try again"
	case isDNSError(err):
		return "the host name could not be resolved; check the URL and your DNS settings"
	case isConnectionRefusedError(err):
		return "the server is not accepting connections; check the host and port"
	case isSSLError(err):
		return "secure connection failed; check your system clock and proxy settings"
	}
	return ""
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Hostname()
}
