// Package testutil holds polling helpers for tests of background workers.
package testutil

import (
	"context"
	"testing"
	"time"
)

// WaitFor polls condition every interval until it returns true or timeout
// expires. It reports whether the condition was met.
func WaitFor(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// Eventually fails the test with msg when condition does not hold within timeout.
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string, args ...any) {
	t.Helper()
	if !WaitFor(t, timeout, 10*time.Millisecond, condition) {
		t.Fatalf(msg, args...)
	}
}

