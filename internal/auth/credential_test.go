package auth

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCredential_SaveLoadInvalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	c := NewCredential(path)

	_, err := c.Token()
	require.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, c.Save("tok-123"))

	// A fresh credential reads the cache file back.
	c2 := NewCredential(path)
	tok, err := c2.Token()
	require.NoError(t, err)
	require.Equal(t, "tok-123", tok)

	c2.Invalidate()
	_, err = c2.Token()
	require.ErrorIs(t, err, ErrNoCredential)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "cache file should be removed")
}

func TestCredential_Authorize(t *testing.T) {
	c := NewStaticCredential("abc")
	req, err := http.NewRequest(http.MethodGet, "http://example.com", nil)
	require.NoError(t, err)
	require.NoError(t, c.Authorize(req))
	require.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestCredential_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("tok-xyz\n"), 0o600))
	c := NewCredential(path)
	tok, err := c.Token()
	require.NoError(t, err)
	require.Equal(t, "tok-xyz", tok)
}
