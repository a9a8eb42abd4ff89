package ml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestModelWatcherSeesReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	changed := make(chan string, 4)

	watcher := &ModelWatcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnChange: func(p string) { changed <- p },
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600))
	require.NoError(t, writeFileAtomic(path, []byte("{}")))

	select {
	case p := <-changed:
		require.Equal(t, path, p)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestModelWatcherCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "nested", "model.json")
	changed := make(chan string, 4)

	watcher := &ModelWatcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		OnChange: func(p string) { changed <- p },
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	require.Eventually(t, func() bool {
		info, err := os.Stat(filepath.Dir(path))
		return err == nil && info.IsDir()
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, writeFileAtomic(path, []byte("{}")))

	select {
	case p := <-changed:
		require.Equal(t, path, p)
	case err := <-done:
		t.Fatalf("watcher stopped: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	require.NoError(t, <-done)
}
