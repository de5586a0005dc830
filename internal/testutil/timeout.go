package testutil

import (
	"context"
	"testing"
	"time"
)

// DefaultTestBuffer is the buffer time subtracted from the test deadline
// to leave room for cleanup before the test times out.
const DefaultTestBuffer = 2 * time.Second

// ContextWithTestDeadline creates a context that respects the test's deadline,
// minus DefaultTestBuffer. Without a test deadline it uses fallback.
func ContextWithTestDeadline(t *testing.T, fallback time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	if deadline, ok := t.Deadline(); ok {
		adjusted := deadline.Add(-DefaultTestBuffer)
		if time.Until(adjusted) > 0 && time.Until(adjusted) < fallback {
			return context.WithDeadline(context.Background(), adjusted)
		}
	}
	return context.WithTimeout(context.Background(), fallback)
}

// ShortOperationContext is a 5 second context for quick operations such as
// a feed fetch against an httptest server.
func ShortOperationContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadline(t, 5*time.Second)
}
