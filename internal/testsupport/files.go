package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, and any missing parents, holding size filler
// bytes. Sizes below one are raised to one so the file is never empty.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'B'}, max(size, 1)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteScript installs an executable /bin/sh script dir/name with body and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// StubFFmpeg answers -version and otherwise writes placeholder bytes to its
// last argument, which is where ffmpeg invocations put the output file.
const StubFFmpeg = `case "$1" in
-version) echo "ffmpeg version 7.1-stub"; exit 0 ;;
esac
for last; do :; done
printf 'stub media' > "$last"
`

// StubFFprobe reports every probed file as 2.5 seconds long.
const StubFFprobe = `case "$1" in
-version) echo "ffprobe version 7.1-stub"; exit 0 ;;
esac
echo '{"format":{"duration":"2.500000"},"streams":[]}'
`
