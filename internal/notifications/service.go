package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coursegen/internal/config"
)

const userAgent = "coursegen/0.1.0"

// Service is what the generator reports job lifecycle events to.
type Service interface {
	NotifyJobStarted(ctx context.Context, title string, lessons int) error
	NotifyJobCompleted(ctx context.Context, title string, lessons, skipped int, duration time.Duration) error
	NotifyJobFailed(ctx context.Context, title, summary string) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy publisher for the configured topic URL, or a
// service that drops everything when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := 10 * time.Second
	if s := cfg.Notifications.RequestTimeout; s > 0 {
		timeout = time.Duration(s) * time.Second
	}
	return &ntfyService{topicURL: topic, client: &http.Client{Timeout: timeout}}
}

// message is one ntfy publication. The body is plain text; everything else
// travels in headers.
type message struct {
	heading  string
	body     string
	tags     []string
	priority string
}

func (m message) apply(h http.Header) {
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	if m.heading != "" {
		h.Set("Title", m.heading)
	}
	if len(m.tags) > 0 {
		h.Set("Tags", strings.Join(m.tags, ","))
	}
	if m.priority != "" {
		h.Set("Priority", m.priority)
	}
}

func lessonCount(n int) string {
	if n == 1 {
		return "1 lesson"
	}
	return fmt.Sprintf("%d lessons", n)
}

func startedMessage(title string, lessons int) message {
	return message{
		heading:  "Course generation started",
		body:     fmt.Sprintf("Generating %q: %s", strings.TrimSpace(title), lessonCount(lessons)),
		tags:     []string{"coursegen", "job", "started"},
		priority: "low",
	}
}

func completedMessage(title string, lessons, skipped int, elapsed time.Duration) message {
	m := message{
		heading:  "Course ready",
		body:     fmt.Sprintf("Course ready: %q with %s in %s", strings.TrimSpace(title), lessonCount(lessons), max(elapsed.Round(time.Second), 0)),
		tags:     []string{"coursegen", "job", "completed"},
		priority: "high",
	}
	if skipped > 0 {
		m.heading += " (with skipped lessons)"
		m.body += fmt.Sprintf("; %d skipped", skipped)
	}
	return m
}

func failedMessage(title, summary string) message {
	body := "Course generation failed"
	if title = strings.TrimSpace(title); title != "" {
		body += fmt.Sprintf(" for %q", title)
	}
	if summary = strings.TrimSpace(summary); summary == "" {
		summary = "unknown"
	}
	return message{
		heading:  "Course generation failed",
		body:     body + ": " + summary,
		tags:     []string{"coursegen", "error", "alert"},
		priority: "high",
	}
}

type ntfyService struct {
	topicURL string
	client   *http.Client
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, title string, lessons int) error {
	return n.publish(ctx, startedMessage(title, lessons))
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title string, lessons, skipped int, duration time.Duration) error {
	return n.publish(ctx, completedMessage(title, lessons, skipped, duration))
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, title, summary string) error {
	return n.publish(ctx, failedMessage(title, summary))
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.publish(ctx, message{
		heading:  "coursegen test",
		body:     "Notification system test",
		tags:     []string{"coursegen", "test"},
		priority: "low",
	})
}

func (n *ntfyService) publish(ctx context.Context, m message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(m.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	m.apply(req.Header)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string, int) error { return nil }

func (noopService) NotifyJobCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}

func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
