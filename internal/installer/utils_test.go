package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader_Fetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	d := NewDownloader("test-agent", 5*time.Second)
	ctx := context.Background()

	t.Run("downloads to dest", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "nested", "file.bin")
		require.NoError(t, d.Fetch(ctx, srv.URL+"/file.bin", dest))

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
		assert.NoFileExists(t, dest+".part")
	})

	t.Run("existing file is left alone", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "file.bin")
		require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

		before := hits.Load()
		require.NoError(t, d.Fetch(ctx, srv.URL+"/file.bin", dest))
		assert.Equal(t, before, hits.Load())

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "old", string(data))
	})

	t.Run("http error leaves nothing behind", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "file.bin")
		err := d.Fetch(ctx, srv.URL+"/missing", dest)
		require.Error(t, err)

		var dlErr *DownloadError
		require.True(t, errors.As(err, &dlErr))
		assert.Equal(t, srv.URL+"/missing", dlErr.URL)
		assert.NoFileExists(t, dest)
		assert.NoFileExists(t, dest+".part")
	})
}

func TestRelocate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	dst := filepath.Join(dir, "a", "b", "dst.txt")
	require.NoError(t, relocate(src, dst))

	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestCopyFile_PreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o700))

	require.NoError(t, copyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
}
