package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thruflo/taskdeck/internal/auth"
	"github.com/thruflo/taskdeck/internal/dashboard"
	"github.com/thruflo/taskdeck/internal/logging"
	"github.com/thruflo/taskdeck/web"
)

// cleanupInterval is how often expired tokens and rate limit entries are
// swept.
const cleanupInterval = time.Minute

// Server represents the web server for remote access to the dashboard.
type Server struct {
	port         int
	passwordHash string
	newDashboard func(*logging.Logger) *dashboard.Dashboard
	assets       fs.FS
	highlightCSS []byte
	logger       *logging.Logger

	tokens   *auth.Tokens
	limiter  *rateLimiter
	sessions *sessions

	// ctx outlives requests; session loads run under it
	ctx    context.Context
	cancel context.CancelFunc

	// HTTP server
	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	started  bool
}

// Config holds server configuration options.
type Config struct {
	Port         int
	PasswordHash string

	// NewDashboard builds the engine for a new session. The logger is
	// already tagged with the session id.
	NewDashboard func(logger *logging.Logger) *dashboard.Dashboard

	// Assets is the browser shell. Default: the embedded web assets.
	Assets fs.FS
	// HighlightCSS is served as /static/highlight.css.
	HighlightCSS []byte

	RateLimit RateLimitConfig
	// TokenTTL defaults to auth.DefaultTokenTTL.
	TokenTTL time.Duration
	Logger   *logging.Logger
}

// NewServer creates a new Server instance.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.PasswordHash == "" {
		return nil, errors.New("password hash is required")
	}
	if cfg.NewDashboard == nil {
		return nil, errors.New("dashboard factory is required")
	}

	assets := cfg.Assets
	if assets == nil {
		assets = web.GetAssets("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	limiter := newRateLimiter(cfg.RateLimit)
	limiter.logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		port:         cfg.Port,
		passwordHash: cfg.PasswordHash,
		newDashboard: cfg.NewDashboard,
		assets:       assets,
		highlightCSS: cfg.HighlightCSS,
		logger:       logger,
		tokens:       auth.NewTokens(cfg.TokenTTL, nil),
		limiter:      limiter,
		sessions:     newSessions(),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return mux
}

// Start starts the HTTP server.
// The server runs until Stop is called; ctx bounds the background sweeps.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: websocket connections are long-lived
		IdleTimeout: 120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go s.tokens.RunCleanup(ctx, cleanupInterval, s.closeSessions)
	go s.cleanupRateLimiter(ctx)

	s.logger.Info("server listening", "addr", listener.Addr().String())

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server and cancels in-flight session loads.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()

	if !s.started || s.server == nil {
		return nil
	}

	// Hijacked websocket connections are not tracked by Shutdown
	s.closeSessions(s.sessionTokens())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on.
// Useful when port 0 is used to get an available port.
// Returns empty string if not started.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) sessionTokens() []string {
	s.sessions.mu.RLock()
	defer s.sessions.mu.RUnlock()
	tokens := make([]string, 0, len(s.sessions.byID))
	for token := range s.sessions.byID {
		tokens = append(tokens, token)
	}
	return tokens
}

func (s *Server) cleanupRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.cleanup()
		}
	}
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Public endpoints
	mux.HandleFunc("/auth", s.handleAuth)
	mux.HandleFunc("/static/", s.handleStatic)
	mux.HandleFunc("/", s.handleStatic)

	// Protected endpoints
	mux.HandleFunc("/api/view", s.withSession(http.MethodGet, s.handleView))
	mux.HandleFunc("/api/navigate", s.withSession(http.MethodPost, s.handleNavigate))
	mux.HandleFunc("/api/filter", s.withSession(http.MethodPost, s.handleFilter))
	mux.HandleFunc("/api/sort", s.withSession(http.MethodPost, s.handleSort))
	mux.HandleFunc("/api/tab", s.withSession(http.MethodPost, s.handleTab))
	mux.HandleFunc("/api/reload", s.withSession(http.MethodPost, s.handleReload))
	mux.HandleFunc("/api/ws", s.withSession(http.MethodGet, s.handleWS))
	mux.HandleFunc("/api/signout", s.withSession(http.MethodPost, s.handleSignOut))
}

// requestToken reads the bearer token from the Authorization header, or
// from the token query parameter for websocket upgrades, which browsers
// cannot send headers with.
func requestToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return "", errors.New("invalid authorization format")
		}
		return strings.TrimPrefix(authHeader, bearerPrefix), nil
	}
	if token := r.URL.Query().Get("token"); token != "" && websocketRequest(r) {
		return token, nil
	}
	return "", errors.New("authorization required")
}

func websocketRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// withSession wraps a handler with method checking and authentication,
// passing it the caller's session.
func (s *Server) withSession(method string, handler func(http.ResponseWriter, *http.Request, *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token, err := requestToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		sess, ok := s.session(token)
		if !ok || !s.tokens.Valid(token) {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		handler(w, r, sess)
	}
}

// VerifyPassword checks if the provided password matches the stored hash.
func (s *Server) VerifyPassword(password string) (bool, error) {
	return auth.VerifyPassword(password, s.passwordHash)
}

// handleAuth handles POST /auth for password authentication. A successful
// sign-in opens a new session.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ip := extractIP(r)
	if result := s.limiter.check(ip); !result.Allowed {
		s.logger.Warn("auth rejected", "ip", ip, "reason", result.Reason, "attempts", result.Attempts, "retry_after", result.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
		http.Error(w, result.Reason, http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	if password == "" {
		http.Error(w, "password required", http.StatusBadRequest)
		return
	}

	valid, err := s.VerifyPassword(password)
	if err != nil {
		s.logger.Error("password verification failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !valid {
		s.limiter.recordFailure(ip)
		http.Error(w, "invalid password", http.StatusUnauthorized)
		return
	}
	s.limiter.recordSuccess(ip)

	token, err := s.tokens.Issue()
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.openSession(s.ctx, token)

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// retryAfterSeconds rounds d up to whole seconds, minimum one.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
