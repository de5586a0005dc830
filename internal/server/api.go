package server

import (
	"errors"
	"net/http"

	"github.com/thruflo/taskdeck/internal/dashboard"
	"github.com/thruflo/taskdeck/internal/query"
)

// viewResponse is the committed view plus the state a client needs to keep
// its address bar and controls in step.
type viewResponse struct {
	HTML     string `json:"html"`
	Fragment string `json:"fragment"`
	Page     string `json:"page"`
	TaskID   string `json:"taskId,omitempty"`
	Tab      string `json:"tab"`
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) writeView(w http.ResponseWriter, sess *session) {
	view, state := sess.dash.Snapshot()
	writeJSON(w, http.StatusOK, viewResponse{
		HTML:     string(view),
		Fragment: state.Fragment,
		Page:     string(state.Page),
		TaskID:   state.TaskID,
		Tab:      string(state.Tab),
		Loading:  state.Loading,
		Error:    state.Error,
	})
}

// writeEventError maps a rejected event to a response. Events carrying an
// unknown enum value are client errors; the view is left untouched.
func (s *Server) writeEventError(w http.ResponseWriter, sess *session, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidFilter),
		errors.Is(err, query.ErrInvalidSortKey),
		errors.Is(err, dashboard.ErrInvalidTab):
		sess.logger.Debug("event rejected", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		sess.logger.Error("event failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// handleView handles GET /api/view.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *session) {
	s.writeView(w, sess)
}

// handleNavigate handles POST /api/navigate with form field fragment.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	sess.dash.Navigate(r.FormValue("fragment"))
	s.writeView(w, sess)
}

// handleFilter handles POST /api/filter with form fields key and value.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := sess.dash.SetFilter(query.FilterKey(r.FormValue("key")), r.FormValue("value")); err != nil {
		s.writeEventError(w, sess, err)
		return
	}
	s.writeView(w, sess)
}

// handleSort handles POST /api/sort with form field key.
func (s *Server) handleSort(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := sess.dash.SetSort(r.FormValue("key")); err != nil {
		s.writeEventError(w, sess, err)
		return
	}
	s.writeView(w, sess)
}

// handleTab handles POST /api/tab with form field tab.
func (s *Server) handleTab(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := sess.dash.SetTab(r.FormValue("tab")); err != nil {
		s.writeEventError(w, sess, err)
		return
	}
	s.writeView(w, sess)
}

// handleReload handles POST /api/reload. It responds once the load has
// completed; a failed load is reported in the view, not the status code.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request, sess *session) {
	_ = sess.dash.Load(r.Context())
	s.writeView(w, sess)
}

// handleSignOut handles POST /api/signout. The token stops working at once
// and the session's websocket clients are disconnected.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request, sess *session) {
	s.tokens.Revoke(sess.token)
	s.closeSessions([]string{sess.token})
	w.WriteHeader(http.StatusNoContent)
}

// handleWS handles GET /api/ws, pushing each committed view to the client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, sess *session) {
	sess.hub.serveWS(w, r, sess.logger)
}
