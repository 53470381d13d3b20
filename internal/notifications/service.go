package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"txrmwatch/internal/config"
	"txrmwatch/internal/events"
)

const userAgent = "Txrmwatch-Go/0.1.0"

// Service defines the notification surface exposed to the monitor.
type Service interface {
	NotifyProcessingSucceeded(ctx context.Context, path string) error
	NotifyProcessingFailed(ctx context.Context, path string, cause error) error
	NotifyScanSummary(ctx context.Context, discovered, tracked int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		success:  cfg.Notifications.Success,
		failure:  cfg.Notifications.Failure,
		scan:     cfg.Notifications.Scan,
	}
}

var titleCaser = cases.Title(language.English)

// EventTitle renders an event kind as a notification title, so
// "processing-failure" becomes "Processing Failure".
func EventTitle(kind events.Kind) string {
	return titleCaser.String(strings.ReplaceAll(string(kind), "-", " "))
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
	success  bool
	failure  bool
	scan     bool
}

func (n *ntfyService) NotifyProcessingSucceeded(ctx context.Context, path string) error {
	if !n.success {
		return nil
	}
	data := payload{
		title:   "Txrmwatch - " + EventTitle(events.KindProcessingSuccess),
		message: fmt.Sprintf("Metadata extracted: %s", filepath.Base(path)),
		tags:    []string{"txrmwatch", "metadata", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProcessingFailed(ctx context.Context, path string, cause error) error {
	if !n.failure {
		return nil
	}
	detail := "unknown"
	if cause != nil {
		detail = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Txrmwatch - " + EventTitle(events.KindProcessingFailure),
		message:  fmt.Sprintf("Extraction failed: %s\n%s", filepath.Base(path), detail),
		tags:     []string{"txrmwatch", "metadata", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScanSummary(ctx context.Context, discovered, tracked int) error {
	if !n.scan || discovered == 0 {
		return nil
	}
	data := payload{
		title:   "Txrmwatch - " + EventTitle(events.KindScanEnd),
		message: fmt.Sprintf("Scan discovered %d new files, %d tracked", discovered, tracked),
		tags:    []string{"txrmwatch", "scan"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Txrmwatch - Test",
		message:  "Notification system test",
		tags:     []string{"txrmwatch", "test"},
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

func (noopService) NotifyProcessingSucceeded(context.Context, string) error { return nil }

func (noopService) NotifyProcessingFailed(context.Context, string, error) error { return nil }

func (noopService) NotifyScanSummary(context.Context, int, int) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
