package docwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/wbsplan/internal/logger"
)

func TestHash(t *testing.T) {
	a := Hash([]byte("plan"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Hash([]byte("plan")))
	assert.NotEqual(t, a, Hash([]byte("plan!")))
}

func TestWatcher_ReportsExternalEditsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WBS.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := New(logger.Discard())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	changed := make(chan string, 8)
	require.NoError(t, w.Watch(path, "exec-1", func(p string) { changed <- p }))

	// Own write: announced first and replaced atomically, so no drift.
	w.Expect(path, []byte("v2"))
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	select {
	case p := <-changed:
		t.Fatalf("unexpected drift for own write: %s", p)
	case <-time.After(300 * time.Millisecond):
	}

	// External write.
	require.NoError(t, os.WriteFile(path, []byte("edited by hand"), 0o644))
	select {
	case p := <-changed:
		assert.Equal(t, filepath.Clean(path), p)
	case <-time.After(3 * time.Second):
		t.Fatal("expected drift notification")
	}
}

func TestWatcher_Unwatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "WBS.md")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := New(logger.Discard())
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	changed := make(chan string, 8)
	require.NoError(t, w.Watch(path, "a", func(p string) { changed <- p }))
	w.Unwatch(path, "a")
	w.Unwatch(path, "a")

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	select {
	case <-changed:
		t.Fatal("handler called after Unwatch")
	case <-time.After(300 * time.Millisecond):
	}
}
