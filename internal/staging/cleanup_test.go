package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coursegen/internal/logging"
)

func mkdirAged(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if age > 0 {
		at := time.Now().Add(-age)
		if err := os.Chtimes(dir, at, at); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldJobDirectories(t *testing.T) {
	root := t.TempDir()
	oldDir := mkdirAged(t, root, "job-old", 2*time.Hour)
	recentDir := mkdirAged(t, root, "job-recent", 0)
	oldFile := filepath.Join(root, "notes.txt")
	if err := os.WriteFile(oldFile, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	for _, keep := range []string{recentDir, oldFile} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should still exist", keep)
		}
	}
}

func TestCleanStaleStopsWhenCancelled(t *testing.T) {
	root := t.TempDir()
	mkdirAged(t, root, "job-old", 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if result := CleanStale(ctx, root, time.Hour, nil); len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed after cancel, got %v", result.Removed)
	}
}

func TestCleanOrphanedKeepsActiveJobs(t *testing.T) {
	root := t.TempDir()
	active := mkdirAged(t, root, "job-active", 0)
	orphan := mkdirAged(t, root, "job-done", 0)

	result := CleanOrphaned(context.Background(), root, map[string]struct{}{"job-active": {}}, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("expected %s removed, got %v", orphan, result.Removed)
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatal("active job directory should still exist")
	}
}

func TestCleanPartialPublications(t *testing.T) {
	root := t.TempDir()
	partial := mkdirAged(t, root, ".course-1.partial-1234", 0)
	published := mkdirAged(t, root, "course-2", 0)

	result := CleanPartialPublications(context.Background(), root, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != partial {
		t.Fatalf("expected %s removed, got %v", partial, result.Removed)
	}
	if _, err := os.Stat(published); err != nil {
		t.Fatal("published course should still exist")
	}

	// Stale sweeps of the output directory never touch publications in flight.
	again := mkdirAged(t, root, ".course-3.partial-99", 2*time.Hour)
	CleanStale(context.Background(), root, time.Hour, logging.NewNop())
	if _, err := os.Stat(again); err != nil {
		t.Fatal("stale cleanup must skip partial publications")
	}
}

func TestRemoveJobDir(t *testing.T) {
	root := t.TempDir()
	dir := mkdirAged(t, root, "job-1", 0)
	if err := RemoveJobDir(root, "job-1"); err != nil {
		t.Fatalf("RemoveJobDir returned error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("job directory should be gone")
	}
	if err := RemoveJobDir(root, "../escape"); err != nil {
		t.Fatalf("expected traversal to be ignored, got %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatal("root must survive")
	}
}

func TestListDirectories(t *testing.T) {
	root := t.TempDir()
	dir := mkdirAged(t, root, "job-1", 0)
	if err := os.WriteFile(filepath.Join(dir, "lesson-000.mp4"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories returned error: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "job-1" || dirs[0].Size != 100 {
		t.Fatalf("unexpected directories %+v", dirs)
	}

	for _, path := range []string{"", "/nonexistent/path/12345"} {
		if dirs, err := ListDirectories(path); err != nil || dirs != nil {
			t.Fatalf("expected nil result for %q, got %v %v", path, dirs, err)
		}
	}
}
