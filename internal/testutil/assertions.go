package testutil

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thruflo/taskdeck/internal/task"
)

// AssertTaskIDs asserts that tasks carry exactly the expected ids, in order.
func AssertTaskIDs(t *testing.T, expected []string, tasks []task.Task) {
	t.Helper()

	ids := make([]string, len(tasks))
	for i, tk := range tasks {
		ids[i] = tk.ID
	}
	if expected == nil {
		expected = []string{}
	}
	assert.Equal(t, expected, ids, "task id order mismatch")
}

// AssertEscaped asserts that raw only appears in rendered output in its
// HTML-escaped form.
func AssertEscaped(t *testing.T, rendered, raw string) {
	t.Helper()

	if strings.ContainsAny(raw, "<>&") {
		assert.NotContains(t, rendered, raw, "raw markup leaked into output")
	}
	assert.Contains(t, rendered, html.EscapeString(raw), "escaped text missing from output")
}
