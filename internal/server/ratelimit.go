package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/thruflo/taskdeck/internal/logging"
)

// RateLimitConfig holds rate limiting configuration for POST /auth.
type RateLimitConfig struct {
	MaxAttempts int           // Maximum attempts per window (default: 5)
	Window      time.Duration // Time window for rate limiting (default: 1 minute)
	BlockAfter  int           // Block after this many failed attempts (default: 10)
	BlockTime   time.Duration // Base block duration (default: 5 minutes, doubles each block)
}

// DefaultRateLimitConfig returns the default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 5,
		Window:      time.Minute,
		BlockAfter:  10,
		BlockTime:   5 * time.Minute,
	}
}

// maxBlock caps the exponential block duration.
const maxBlock = 24 * time.Hour

// rateLimiter implements a sliding window rate limiter with exponential backoff.
type rateLimiter struct {
	mu     sync.Mutex
	config RateLimitConfig
	logger *logging.Logger

	// attempts tracks timestamps of attempts per IP
	attempts map[string][]time.Time

	// failures tracks consecutive failed attempts per IP
	failures map[string]int

	// blocked maps IPs to the time their block expires
	blocked map[string]time.Time
}

// newRateLimiter creates a new rate limiter with the given configuration.
func newRateLimiter(config RateLimitConfig) *rateLimiter {
	def := DefaultRateLimitConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.BlockAfter <= 0 {
		config.BlockAfter = def.BlockAfter
	}
	if config.BlockTime <= 0 {
		config.BlockTime = def.BlockTime
	}

	return &rateLimiter{
		config:   config,
		logger:   logging.Default(),
		attempts: make(map[string][]time.Time),
		failures: make(map[string]int),
		blocked:  make(map[string]time.Time),
	}
}

// checkResult represents the result of a rate limit check.
type checkResult struct {
	Allowed    bool
	RetryAfter time.Duration // How long until the client can retry
	IsBlocked  bool          // True if blocked due to too many failures
	Reason     string        // Human-readable reason for rejection
	Attempts   int           // Attempts in the current window, or failures when blocked
}

// check checks if the IP is allowed to make a request and records the
// attempt when it is.
func (rl *rateLimiter) check(ip string) checkResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	if blockExpiry, isBlocked := rl.blocked[ip]; isBlocked {
		if now.Before(blockExpiry) {
			return checkResult{
				RetryAfter: blockExpiry.Sub(now),
				IsBlocked:  true,
				Reason:     "too many failed attempts",
				Attempts:   rl.failures[ip],
			}
		}
		delete(rl.blocked, ip)
	}

	rl.attempts[ip] = pruneBefore(rl.attempts[ip], now.Add(-rl.config.Window))

	current := len(rl.attempts[ip])
	if current >= rl.config.MaxAttempts {
		// The oldest attempt in the window is the next to expire
		retryAfter := rl.attempts[ip][0].Add(rl.config.Window).Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return checkResult{
			RetryAfter: retryAfter,
			Reason:     "rate limit exceeded",
			Attempts:   current,
		}
	}

	rl.attempts[ip] = append(rl.attempts[ip], now)
	return checkResult{Allowed: true, Attempts: current + 1}
}

// recordSuccess records a successful authentication, resetting the failure counter.
func (rl *rateLimiter) recordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.failures, ip)
	delete(rl.blocked, ip)
}

// recordFailure records a failed authentication attempt. Every BlockAfter
// consecutive failures block the IP, each block twice as long as the last.
func (rl *rateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.failures[ip]++
	failCount := rl.failures[ip]
	if failCount < rl.config.BlockAfter {
		return
	}

	blocks := (failCount - rl.config.BlockAfter) / rl.config.BlockAfter
	blockDuration := rl.config.BlockTime
	for i := 0; i < blocks && blockDuration < maxBlock; i++ {
		blockDuration *= 2
	}
	if blockDuration > maxBlock {
		blockDuration = maxBlock
	}

	rl.blocked[ip] = time.Now().Add(blockDuration)
	rl.logger.Warn("auth blocked", "ip", ip, "failures", failCount, "duration", blockDuration)
}

// cleanup removes expired entries from the rate limiter.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.config.Window)

	for ip, timestamps := range rl.attempts {
		valid := pruneBefore(timestamps, windowStart)
		if len(valid) == 0 {
			delete(rl.attempts, ip)
		} else {
			rl.attempts[ip] = valid
		}
	}

	for ip, expiry := range rl.blocked {
		if now.After(expiry) {
			delete(rl.blocked, ip)
		}
	}

	// Failure counts survive only while the IP is blocked or still active
	for ip := range rl.failures {
		_, isBlocked := rl.blocked[ip]
		_, hasAttempts := rl.attempts[ip]
		if !isBlocked && !hasAttempts {
			delete(rl.failures, ip)
		}
	}
}

func pruneBefore(timestamps []time.Time, start time.Time) []time.Time {
	valid := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(start) {
			valid = append(valid, ts)
		}
	}
	return valid
}

// extractIP extracts the client IP from the request.
// It checks X-Forwarded-For and X-Real-IP headers first (for reverse proxy scenarios),
// then falls back to the remote address.
func extractIP(r *http.Request) string {
	// X-Forwarded-For can be "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(client)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
