// Package feed fetches the task feed document from a URL or a local file
// and watches file feeds for changes.
package feed

import (
	"context"
	"fmt"

	"github.com/thruflo/taskdeck/internal/task"
)

// Source fetches the current feed document.
type Source interface {
	Fetch(ctx context.Context) (*task.Feed, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*task.Feed, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context) (*task.Feed, error) {
	return f(ctx)
}

// StatusError reports a non-2xx response from the feed URL.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %s", e.Status)
}
