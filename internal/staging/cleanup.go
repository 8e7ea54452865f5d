package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coursegen/internal/logging"
)

// CleanResult contains the outcome of a cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes job work directories older than maxAge.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	cutoff := time.Now().Add(-maxAge)
	return sweep(ctx, workDir, logger, "stale", func(entry os.DirEntry, info os.FileInfo) bool {
		return !isPartial(entry.Name()) && info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes job work directories whose name is not in keep.
// keep holds sanitized job ids of jobs that are still active.
func CleanOrphaned(ctx context.Context, workDir string, keep map[string]struct{}, logger *slog.Logger) CleanResult {
	return sweep(ctx, workDir, logger, "orphaned", func(entry os.DirEntry, _ os.FileInfo) bool {
		if isPartial(entry.Name()) {
			return false
		}
		_, active := keep[entry.Name()]
		return !active
	})
}

// CleanPartialPublications removes staged course directories left behind by
// an interrupted publish.
func CleanPartialPublications(ctx context.Context, outputDir string, logger *slog.Logger) CleanResult {
	return sweep(ctx, outputDir, logger, "partial", func(entry os.DirEntry, _ os.FileInfo) bool {
		return isPartial(entry.Name())
	})
}

// RemoveJobDir deletes the work directory of one job.
func RemoveJobDir(workDir, name string) error {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(workDir) == "" || name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil
	}
	return os.RemoveAll(filepath.Join(workDir, name))
}

func isPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".partial-")
}

func sweep(ctx context.Context, root string, logger *slog.Logger, reason string, match func(os.DirEntry, os.FileInfo) bool) CleanResult {
	result := CleanResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !match(entry, info) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove "+reason+" directory",
				logging.String("path", dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info("removed "+reason+" directory",
			logging.String("path", dirPath),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}

	return result
}

// ListDirectories returns all job directories in the work directory with
// their metadata.
func ListDirectories(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a work directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best effort
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
