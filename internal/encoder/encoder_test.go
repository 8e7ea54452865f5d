package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coursegen/internal/services"
)

func TestRunPassesArgumentsAndVerifiesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp4")
	var gotName string
	var gotArgs []string
	r := NewExecRunner("", 0)
	r.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return nil, os.WriteFile(args[len(args)-1], []byte("data"), 0o644)
	})

	if err := r.Run(context.Background(), []string{"-i", "in.wav"}, out); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if gotName != "ffmpeg" {
		t.Fatalf("expected default binary ffmpeg, got %q", gotName)
	}
	want := "-y -hide_banner -loglevel error -i in.wav " + out
	if strings.Join(gotArgs, " ") != want {
		t.Fatalf("unexpected args %q", strings.Join(gotArgs, " "))
	}
}

func TestRunFailureModes(t *testing.T) {
	tests := []struct {
		name   string
		run    func(ctx context.Context, name string, args ...string) ([]byte, error)
		marker error
	}{
		{
			name: "non-zero exit",
			run: func(context.Context, string, ...string) ([]byte, error) {
				return []byte("Invalid argument"), errors.New("exit status 1")
			},
			marker: services.ErrExternalTool,
		},
		{
			name: "no output",
			run: func(context.Context, string, ...string) ([]byte, error) {
				return nil, nil
			},
			marker: services.ErrExternalTool,
		},
		{
			name: "empty output",
			run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
				return nil, os.WriteFile(args[len(args)-1], nil, 0o644)
			},
			marker: services.ErrExternalTool,
		},
		{
			name: "timeout",
			run: func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			marker: services.ErrTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewExecRunner("ffmpeg", 20*time.Millisecond)
			r.WithCommandRunner(tt.run)
			err := r.Run(context.Background(), nil, filepath.Join(t.TempDir(), "out.mp4"))
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewExecRunner("ffmpeg", 0)
	r.WithCommandRunner(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, ctx.Err()
	})
	err := r.Run(ctx, nil, filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancellation marker, got %v", err)
	}
}

func TestRunRequiresOutputPath(t *testing.T) {
	if err := NewExecRunner("ffmpeg", 0).Run(context.Background(), nil, " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTailKeepsEnd(t *testing.T) {
	if got := tail([]byte("  abcdef \n"), 3); got != "def" {
		t.Fatalf("unexpected tail %q", got)
	}
}
