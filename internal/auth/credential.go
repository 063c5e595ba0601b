// Package auth holds the bearer credential used by the API client.
//
// The credential is an explicit object threaded through client
// construction rather than ambient process state. An unauthorized
// response invalidates it, which removes the cache file and forces the
// user back through login.
package auth

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNoCredential is returned when no token is cached and an
// authenticated call is attempted.
var ErrNoCredential = errors.New("auth: no credential; run 'trustaudit login'")

// Credential is a bearer token backed by a cache file.
type Credential struct {
	mu    sync.Mutex
	token string
	path  string
}

// NewCredential creates a credential backed by the given cache file.
// The token, if the file exists, is loaded lazily on first use.
func NewCredential(path string) *Credential {
	return &Credential{path: path}
}

// NewStaticCredential creates a credential from a literal token with no
// backing file. Invalidate only clears the in-memory token.
func NewStaticCredential(token string) *Credential {
	return &Credential{token: token}
}

// Token returns the current bearer token, loading it from the cache file
// if needed. Returns ErrNoCredential when none is available.
func (c *Credential) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	if c.path == "" {
		return "", ErrNoCredential
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", ErrNoCredential
	}
	c.token = strings.TrimSpace(string(data))
	if c.token == "" {
		return "", ErrNoCredential
	}
	return c.token, nil
}

// Save stores a freshly issued token in memory and in the cache file.
func (c *Credential) Save(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if c.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.path, []byte(token), 0o600)
}

// Invalidate discards the token and removes the cache file. Called when
// the server answers unauthorized; safe to call repeatedly.
func (c *Credential) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	if c.path != "" {
		_ = os.Remove(c.path)
	}
}

// Authorize attaches the bearer header to req. Returns ErrNoCredential
// when no token is cached.
func (c *Credential) Authorize(req *http.Request) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}
