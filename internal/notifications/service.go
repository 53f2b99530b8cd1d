package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seam/internal/config"
)

const userAgent = "Seam/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyStarted(ctx context.Context, version string) error
	NotifyStopped(ctx context.Context) error
	NotifyProcessFailed(ctx context.Context, err error) error
	NotifyStartupFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when
// configured. When no ntfy topic is configured, a noop implementation
// is returned.
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

func (n *ntfyService) NotifyStarted(ctx context.Context, version string) error {
	message := "Syncthing is running"
	if version = strings.TrimSpace(version); version != "" {
		message = fmt.Sprintf("Syncthing %s is running", version)
	}
	data := payload{
		title:   "Seam - Started",
		message: message,
		tags:    []string{"seam", "syncthing", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStopped(ctx context.Context) error {
	data := payload{
		title:   "Seam - Stopped",
		message: "Syncthing stopped",
		tags:    []string{"seam", "syncthing", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProcessFailed(ctx context.Context, err error) error {
	message := "Syncthing exited unexpectedly"
	if err != nil {
		message = fmt.Sprintf("Syncthing exited unexpectedly: %s", strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Seam - Process Failed",
		message:  message,
		tags:     []string{"seam", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStartupFailed(ctx context.Context, err error) error {
	message := "Syncthing startup failed"
	if err != nil {
		message = fmt.Sprintf("Syncthing startup failed: %s", strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Seam - Startup Failed",
		message:  message,
		tags:     []string{"seam", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Seam - Test",
		message:  "Notification system test",
		tags:     []string{"seam", "test"},
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

func (noopService) NotifyStarted(context.Context, string) error      { return nil }
func (noopService) NotifyStopped(context.Context) error              { return nil }
func (noopService) NotifyProcessFailed(context.Context, error) error { return nil }
func (noopService) NotifyStartupFailed(context.Context, error) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
