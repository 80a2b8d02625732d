package keystore

import (
	"sync"
	"time"
)

// TokenCache holds one bearer token in process memory until it expires.
// Tokens are never written to disk.
type TokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Get returns the cached token if it has not expired.
func (c *TokenCache) Get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

// Set stores token for ttl, less a five second refresh margin.
func (c *TokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	buffer := 5 * time.Second
	if ttl > buffer {
		ttl -= buffer
	}
	c.expiresAt = time.Now().Add(ttl)
}

// Clear drops the cached token.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.expiresAt = time.Time{}
}

// TTL is the remaining lifetime of the token, or 0.
func (c *TokenCache) TTL() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == "" {
		return 0
	}
	return max(time.Until(c.expiresAt), 0)
}
