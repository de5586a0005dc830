package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTokens_IssueAndValidate(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(0, nil)
	token, err := tokens.Issue()
	require.NoError(t, err)

	assert.Len(t, token, 64)
	assert.True(t, tokens.Valid(token))
	assert.False(t, tokens.Valid(""))
	assert.False(t, tokens.Valid("not-a-token"))

	other, err := tokens.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
	assert.Equal(t, 2, tokens.Len())
}

func TestTokens_Expiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokens(time.Hour, clock.Now)

	token, err := tokens.Issue()
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	assert.True(t, tokens.Valid(token))

	clock.Advance(time.Minute)
	assert.False(t, tokens.Valid(token))
}

func TestTokens_Revoke(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(time.Hour, nil)
	token, err := tokens.Issue()
	require.NoError(t, err)

	tokens.Revoke(token)
	assert.False(t, tokens.Valid(token))
	assert.Equal(t, 0, tokens.Len())
}

func TestTokens_Cleanup(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokens(time.Hour, clock.Now)

	old, err := tokens.Issue()
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	fresh, err := tokens.Issue()
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	expired := tokens.Cleanup()

	assert.Equal(t, []string{old}, expired)
	assert.Equal(t, 1, tokens.Len())
	assert.True(t, tokens.Valid(fresh))
}

func TestTokens_RunCleanup(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)}
	tokens := NewTokens(time.Minute, clock.Now)
	token, err := tokens.Issue()
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	got := make(chan []string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tokens.RunCleanup(ctx, 5*time.Millisecond, func(expired []string) {
		select {
		case got <- expired:
		default:
		}
	})

	select {
	case expired := <-got:
		assert.Equal(t, []string{token}, expired)
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup did not run")
	}
}
