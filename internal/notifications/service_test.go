package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursegen/internal/config"
	"coursegen/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyJobFailed(context.Background(), "Course", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, tags, priority, body string
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name   string
		send   func(notifications.Service) error
		expect captured
	}{
		{
			name: "started",
			send: func(s notifications.Service) error {
				return s.NotifyJobStarted(context.Background(), "Go Basics", 1)
			},
			expect: captured{"Course generation started", "coursegen,job,started", "low", `Generating "Go Basics": 1 lesson`},
		},
		{
			name: "completed",
			send: func(s notifications.Service) error {
				return s.NotifyJobCompleted(context.Background(), "Go Basics", 3, 0, 90*time.Second)
			},
			expect: captured{"Course ready", "coursegen,job,completed", "high", `Course ready: "Go Basics" with 3 lessons in 1m30s`},
		},
		{
			name: "completed with skips",
			send: func(s notifications.Service) error {
				return s.NotifyJobCompleted(context.Background(), "Go Basics", 2, 1, time.Second)
			},
			expect: captured{"Course ready (with skipped lessons)", "coursegen,job,completed", "high", `Course ready: "Go Basics" with 2 lessons in 1s; 1 skipped`},
		},
		{
			name: "failed",
			send: func(s notifications.Service) error {
				return s.NotifyJobFailed(context.Background(), "Go Basics", "speech synthesis timed out")
			},
			expect: captured{"Course generation failed", "coursegen,error,alert", "high", `Course generation failed for "Go Basics": speech synthesis timed out`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				got = captured{r.Header.Get("Title"), r.Header.Get("Tags"), r.Header.Get("Priority"), string(body)}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			if err := tt.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("send returned error: %v", err)
			}
			if got != tt.expect {
				t.Fatalf("got %+v want %+v", got, tt.expect)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
