package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_reloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.csv")
	if err := os.WriteFile(path, []byte("class,dinov2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan string, 4)
	w := NewWatcher(path, func(p string) { reloaded <- p }, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("class,dinov2\na,[1 0]\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-reloaded:
		if filepath.Clean(p) != filepath.Clean(path) {
			t.Errorf("reloaded path %q, want %q", p, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not invoked after store write")
	}
}

func TestWatcher_ignoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.csv")
	if err := os.WriteFile(path, []byte("class\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan string, 4)
	w := NewWatcher(path, func(p string) { reloaded <- p }, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case p := <-reloaded:
		t.Fatalf("unexpected reload for %q", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_startTwiceAndStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.csv")
	w := NewWatcher(path, func(string) {})
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}
	w.Stop()
	w.Stop()
}
