// Package testutil provides shared test utilities for taskdeck.
//
// # Fixtures
//
// The fixtures.go file provides sample data for testing:
//
//   - SampleTasks() - a small mixed collection of open and closed tasks
//   - SampleFeed() - SampleTasks wrapped in a feed document
//   - SampleFeedJSON(t) - the same feed encoded as JSON
//   - IntPtr(n) - pointer helper for optional stats
//
// # Environment Helpers
//
// The env.go file provides test environment setup:
//
//   - WriteTestFile(t, base, path, content) - writes a file in a test dir
//   - WriteFeedFile(t, dir, feed) - writes a feed document as tasks.json
//   - MustMarshalJSON(t, v) - marshals to JSON or fails the test
//
// # Assertions
//
// The assertions.go file provides custom test assertions:
//
//   - AssertTaskIDs(t, expected, tasks) - compares task ids in order
//   - AssertEscaped(t, html, raw) - raw text only appears escaped
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    tasks := testutil.SampleTasks()
//	    got := query.Filter(tasks, query.DefaultFilters())
//	    testutil.AssertTaskIDs(t, []string{"T-101", "T-102"}, got[:2])
//	}
package testutil
