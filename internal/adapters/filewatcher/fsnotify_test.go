package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"campusfaq/internal/domain/ports"
)

func TestFSNotifyWatcher_DetectsCreate(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFSNotifyWatcher([]string{".txt"})
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx, dir)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	path := filepath.Join(dir, "new.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Path != path {
			t.Errorf("unexpected path: %s", ev.Path)
		}
		if ev.Operation != ports.FileCreated && ev.Operation != ports.FileModified {
			t.Errorf("unexpected operation: %v", ev.Operation)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for file event")
	}
}

func TestFSNotifyWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()

	w, err := NewFSNotifyWatcher([]string{".txt"})
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := w.Watch(ctx, dir)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	select {
	case ev := <-events:
		t.Errorf("unexpected event for unwatched extension: %+v", ev)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_StopsOnContextCancel(t *testing.T) {
	w, err := NewFSNotifyWatcher(nil)
	if err != nil {
		t.Fatalf("creating watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Watch(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected channel to close without events")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event channel not closed after cancel")
	}
}
