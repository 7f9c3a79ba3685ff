// Package notifications pushes translation lifecycle notifications to an
// ntfy topic when one is configured.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"glossa/internal/config"
)

const userAgent = "Glossa/0.1.0"

// Service defines the notification surface exposed to the relay.
type Service interface {
	NotifyTranslationCompleted(ctx context.Context, filename, outputPath string) error
	NotifyTranslationFailed(ctx context.Context, filename, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyTranslationCompleted(ctx context.Context, filename, outputPath string) error {
	filename = strings.TrimSpace(filename)
	outputPath = strings.TrimSpace(outputPath)
	message := fmt.Sprintf("Translation complete: %s", filename)
	if outputPath != "" {
		message = fmt.Sprintf("%s\nSaved to: %s", message, outputPath)
	}
	data := payload{
		title:   "Glossa - Complete",
		message: message,
		tags:    []string{"glossa", "translate", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTranslationFailed(ctx context.Context, filename, message string) error {
	filename = strings.TrimSpace(filename)
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	data := payload{
		title:    "Glossa - Failed",
		message:  fmt.Sprintf("Translation failed: %s\n%s", filename, message),
		tags:     []string{"glossa", "translate", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Glossa - Test",
		message:  "Notification system test",
		tags:     []string{"glossa", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTranslationCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyTranslationFailed(context.Context, string, string) error    { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
