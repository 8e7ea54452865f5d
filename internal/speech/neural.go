package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"coursegen/internal/course"
	"coursegen/internal/services"
)

const (
	defaultNeuralTimeout = 60 * time.Second
	maxErrorBody         = 512
)

// NeuralConfig captures the settings required to talk to a TTS service.
type NeuralConfig struct {
	Endpoint string
	APIKey   string
}

// Neural calls a remote text-to-speech service that answers a JSON request
// with raw audio bytes.
type Neural struct {
	cfg        NeuralConfig
	httpClient *http.Client
}

// NeuralOption customizes the client.
type NeuralOption func(*Neural)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) NeuralOption {
	return func(n *Neural) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// NewNeural constructs a client for the configured endpoint.
func NewNeural(cfg NeuralConfig, opts ...NeuralOption) *Neural {
	n := &Neural{
		cfg: NeuralConfig{
			Endpoint: strings.TrimSpace(cfg.Endpoint),
			APIKey:   strings.TrimSpace(cfg.APIKey),
		},
		httpClient: &http.Client{Timeout: defaultNeuralTimeout},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type neuralRequest struct {
	Text        string  `json:"text"`
	Voice       string  `json:"voice,omitempty"`
	Language    string  `json:"language"`
	Quality     string  `json:"quality"`
	Temperature float64 `json:"temperature"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("tts request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// temperature trades expressiveness for stability; high quality narration is
// rendered more conservatively.
func temperature(q course.Quality) float64 {
	if q == course.QualityHigh {
		return 0.5
	}
	return 0.7
}

// Synthesize implements Synthesizer.
func (n *Neural) Synthesize(ctx context.Context, req Request) error {
	if n == nil || n.cfg.Endpoint == "" {
		return services.Wrap(services.ErrConfiguration, "speech", "neural", "endpoint not configured", nil)
	}
	payload, err := json.Marshal(neuralRequest{
		Text:        req.Text,
		Voice:       req.Voice,
		Language:    req.Language,
		Quality:     string(req.Quality),
		Temperature: temperature(req.Quality),
	})
	if err != nil {
		return services.Wrap(services.ErrValidation, "speech", "neural", "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "speech", "neural", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")
	if n.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	}

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return services.Wrap(services.ErrTimeout, "speech", "neural", "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "speech", "neural", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
		return services.Wrap(classifyStatus(resp.StatusCode), "speech", "neural", "", statusErr)
	}

	out, err := os.OpenFile(req.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(services.ErrTransient, "speech", "neural", "open output", err)
	}
	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return services.Wrap(services.ErrTransient, "speech", "neural", "read audio", copyErr)
	}
	if closeErr != nil {
		return services.Wrap(services.ErrTransient, "speech", "neural", "write audio", closeErr)
	}
	if written == 0 {
		return services.Wrap(services.ErrExternalTool, "speech", "neural", "empty audio response", nil)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return services.ErrTransient
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return services.ErrConfiguration
	case code == http.StatusNotFound:
		return services.ErrNotFound
	case code == http.StatusRequestTimeout:
		return services.ErrTimeout
	default:
		return services.ErrValidation
	}
}
