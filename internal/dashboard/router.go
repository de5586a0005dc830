package dashboard

import (
	"net/url"
	"strings"
)

const taskFragmentPrefix = "/task/"

// Route maps a location fragment to a page. "#/task/<id>" selects the
// detail page for the percent-decoded id; an id that does not decode is
// used as written. Every other fragment selects the overview.
func Route(fragment string) (Page, string) {
	path := strings.TrimPrefix(fragment, "#")
	rawID, ok := strings.CutPrefix(path, taskFragmentPrefix)
	if !ok || rawID == "" {
		return PageOverview, ""
	}
	id, err := url.PathUnescape(rawID)
	if err != nil {
		id = rawID
	}
	return PageDetail, id
}

// TaskFragment returns the fragment that routes to the task with id.
func TaskFragment(id string) string {
	return "#" + taskFragmentPrefix + url.PathEscape(id)
}

// applyRoute routes fragment into s. Entering a detail page resets the
// active tab.
func (s *Store) applyRoute(fragment string) {
	s.Fragment = fragment
	page, id := Route(fragment)
	s.Page = page
	s.TaskID = id
	if page == PageDetail {
		s.Tab = TabChat
	}
}
