package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidFeed is wrapped by every feed validation failure.
var ErrInvalidFeed = errors.New("invalid task feed")

// Feed is the published task document.
type Feed struct {
	PublishedAt string `json:"publishedAt"`
	Tasks       []Task `json:"tasks"`
}

// Decode parses and validates a feed document. The body must hold exactly
// one JSON object; a missing tasks array decodes to an empty collection.
func Decode(r io.Reader) (*Feed, error) {
	dec := json.NewDecoder(r)
	var feed *Feed
	if err := dec.Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}
	if feed == nil {
		return nil, fmt.Errorf("%w: document is null", ErrInvalidFeed)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after document", ErrInvalidFeed)
	}
	if feed.Tasks == nil {
		feed.Tasks = []Task{}
	}
	if err := feed.Validate(); err != nil {
		return nil, err
	}
	return feed, nil
}

// Validate checks every enum-valued field against its closed value set.
func (f *Feed) Validate() error {
	for i, t := range f.Tasks {
		if err := t.validate(); err != nil {
			return fmt.Errorf("%w: tasks[%d]: %v", ErrInvalidFeed, i, err)
		}
	}
	return nil
}

func (t Task) validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%s: unknown status %q", t.ID, t.Status)
	}
	if t.Phase != "" && !t.Phase.Valid() {
		return fmt.Errorf("%s: unknown phase %q", t.ID, t.Phase)
	}
	if t.NextAgent != "" && !validNextAgent(t.NextAgent) {
		return fmt.Errorf("%s: unknown next agent %q", t.ID, t.NextAgent)
	}
	for a := range t.Stats.AgentTurns {
		if !a.Valid() {
			return fmt.Errorf("%s: unknown agent %q in agent turns", t.ID, a)
		}
	}
	for i, m := range t.Chat {
		if m.From != "" && !m.From.Valid() {
			return fmt.Errorf("%s: chat[%d]: unknown sender %q", t.ID, i, m.From)
		}
		if m.To != "" && !m.To.Valid() {
			return fmt.Errorf("%s: chat[%d]: unknown recipient %q", t.ID, i, m.To)
		}
	}
	for i, h := range t.Handoffs {
		if !h.From.Valid() || !h.To.Valid() {
			return fmt.Errorf("%s: handoffs[%d]: unknown agent %q -> %q", t.ID, i, h.From, h.To)
		}
		if h.Phase != "" && !h.Phase.Valid() {
			return fmt.Errorf("%s: handoffs[%d]: unknown phase %q", t.ID, i, h.Phase)
		}
	}
	return nil
}

func validNextAgent(a Agent) bool {
	for _, n := range NextAgents {
		if a == n {
			return true
		}
	}
	return false
}
