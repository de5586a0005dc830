package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/thruflo/taskdeck/internal/dashboard"
	"github.com/thruflo/taskdeck/internal/logging"
)

// session is one signed-in browser: its own dashboard and the websocket
// clients following it.
type session struct {
	id     string
	token  string
	dash   *dashboard.Dashboard
	hub    *hub
	logger *logging.Logger
	stop   func()
}

// sessions maps bearer tokens to sessions.
type sessions struct {
	mu   sync.RWMutex
	byID map[string]*session
}

func newSessions() *sessions {
	return &sessions{byID: make(map[string]*session)}
}

// openSession creates the session for token and starts its first load in the
// background.
func (s *Server) openSession(ctx context.Context, token string) *session {
	id := uuid.NewString()
	logger := s.logger.With("session", id)

	sess := &session{
		id:     id,
		token:  token,
		dash:   s.newDashboard(logger),
		hub:    newHub(),
		logger: logger,
	}
	sess.stop = sess.dash.Follow(sess.hub.publish)

	s.sessions.mu.Lock()
	s.sessions.byID[token] = sess
	s.sessions.mu.Unlock()

	logger.Info("session opened")
	go func() {
		_ = sess.dash.Load(ctx)
	}()
	return sess
}

func (s *Server) session(token string) (*session, bool) {
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()
	sess, ok := s.sessions.byID[token]
	return sess, ok
}

// closeSessions drops the sessions for tokens and disconnects their clients.
func (s *Server) closeSessions(tokens []string) {
	s.sessions.mu.Lock()
	var closed []*session
	for _, token := range tokens {
		if sess, ok := s.sessions.byID[token]; ok {
			delete(s.sessions.byID, token)
			closed = append(closed, sess)
		}
	}
	s.sessions.mu.Unlock()

	for _, sess := range closed {
		sess.stop()
		sess.hub.close()
		sess.logger.Info("session closed")
	}
}

func (s *Server) allSessions() []*session {
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()
	all := make([]*session, 0, len(s.sessions.byID))
	for _, sess := range s.sessions.byID {
		all = append(all, sess)
	}
	return all
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()
	return len(s.sessions.byID)
}

// ReloadAll reloads the feed in every open session and waits for the loads
// to finish. Failures are shown in each session's view.
func (s *Server) ReloadAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, sess := range s.allSessions() {
		wg.Add(1)
		go func(sess *session) {
			defer wg.Done()
			_ = sess.dash.Load(ctx)
		}(sess)
	}
	wg.Wait()
}
