// Package testutil provides shared helpers for lungcheck tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefaultTestTimeout bounds waits on background goroutines in tests.
const DefaultTestTimeout = 5 * time.Second

// WaitForChannel waits for a signal on ch or fails after timeout.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, "timeout waiting for channel", msg)
	}
}

// WaitForResult waits for one value on ch or fails after timeout. It is meant for
// the error channel of a goroutine running a blocking Serve or Run call.
func WaitForResult[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.Fail(t, "timeout waiting for result", msg)
	}
	var zero T
	return zero
}
