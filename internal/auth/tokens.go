package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultTokenTTL is how long issued tokens are valid.
const DefaultTokenTTL = 24 * time.Hour

// Tokens issues and validates expiring bearer tokens.
type Tokens struct {
	mu     sync.RWMutex
	tokens map[string]time.Time // token -> expiry time
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token store. A non-positive ttl uses DefaultTokenTTL;
// a nil now uses time.Now.
func NewTokens(ttl time.Duration, now func() time.Time) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Tokens{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		now:    now,
	}
}

// Issue creates a new token.
func (t *Tokens) Issue() (string, error) {
	// 256 bits
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(b)

	t.mu.Lock()
	t.tokens[token] = t.now().Add(t.ttl)
	t.mu.Unlock()

	return token, nil
}

// Valid reports whether token was issued and has not expired.
func (t *Tokens) Valid(token string) bool {
	if token == "" {
		return false
	}

	t.mu.RLock()
	expiry, exists := t.tokens[token]
	t.mu.RUnlock()

	return exists && t.now().Before(expiry)
}

// Revoke removes a token.
func (t *Tokens) Revoke(token string) {
	t.mu.Lock()
	delete(t.tokens, token)
	t.mu.Unlock()
}

// Len returns the number of stored tokens, expired or not.
func (t *Tokens) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tokens)
}

// Cleanup removes expired tokens and returns them.
func (t *Tokens) Cleanup() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var expired []string
	for token, expiry := range t.tokens {
		if !now.Before(expiry) {
			delete(t.tokens, token)
			expired = append(expired, token)
		}
	}
	return expired
}

// RunCleanup calls Cleanup every interval until ctx is cancelled, passing
// each batch of expired tokens to onExpire (which may be nil).
func (t *Tokens) RunCleanup(ctx context.Context, interval time.Duration, onExpire func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := t.Cleanup()
			if len(expired) > 0 && onExpire != nil {
				onExpire(expired)
			}
		}
	}
}
