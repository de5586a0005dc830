package feed

import (
	"context"
	"fmt"
	"os"

	"github.com/thruflo/taskdeck/internal/task"
)

// FileSource reads the feed from a local JSON file on every fetch.
type FileSource struct {
	path string
}

// NewFileSource creates a source for the feed file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the feed file path.
func (s *FileSource) Path() string {
	return s.path
}

// Fetch reads and decodes the feed file.
func (s *FileSource) Fetch(ctx context.Context) (*task.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed: %w", err)
	}
	defer f.Close()

	return task.Decode(f)
}
