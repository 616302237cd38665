package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPhoto(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpeg-bytes"))
	}))
	t.Cleanup(ts.Close)

	data, err := fetchPhoto(context.Background(), func(fileID string) (string, error) {
		require.Equal(t, "file-1", fileID)
		return ts.URL + "/photo.jpg", nil
	}, "file-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestFetchPhoto_ResolveError(t *testing.T) {
	_, err := fetchPhoto(context.Background(), func(fileID string) (string, error) {
		return "", errors.New("file not found")
	}, "file-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file-1")
}

func TestFetchPhoto_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	_, err := fetchPhoto(context.Background(), func(fileID string) (string, error) {
		return ts.URL + "/photo.jpg", nil
	}, "file-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/hunt rolex gmt")
	assert.Equal(t, "/hunt", cmd)
	assert.Equal(t, []string{"rolex", "gmt"}, args)

	cmd, args = parseCommand("/hunts")
	assert.Equal(t, "/hunts", cmd)
	assert.Empty(t, args)
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Rolex S...", truncate("Rolex Submariner", 10))
	// Cuts never split a multi-byte character.
	assert.Equal(t, "Ыab...", truncate("Ыabcdef", 6))
}
