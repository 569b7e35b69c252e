// Package netutil classifies transport errors from the Telegram API client.
package netutil

import (
	"errors"
	"net"
	"syscall"
)

// ShouldRetry reports whether err is a transient network failure: a timeout,
// a refused or reset connection, or a failed dial.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
