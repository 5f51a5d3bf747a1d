package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"filmpress/internal/config"
)

const userAgent = "Filmpress/0.1.0"

// Event identifies a notification-worthy milestone.
type Event string

const (
	// EventRunCompleted summarizes a finished scan cycle. Suppressed when
	// the run_summary toggle is off.
	EventRunCompleted Event = "run_completed"
	// EventTranscodeFailed reports a single source that could not be
	// encoded. Suppressed when the errors toggle is off.
	EventTranscodeFailed Event = "transcode_failed"
	// EventError reports a failure outside the per-file pipeline.
	// Suppressed when the errors toggle is off.
	EventError Event = "error"
	// EventTest verifies the delivery path end to end.
	EventTest Event = "test"
)

// Payload carries the loosely typed fields each event formats into a message.
type Payload map[string]any

// Service delivers workflow events to the configured transport.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = nil

	return &ntfyService{
		endpoint:   topic,
		client:     retryClient.StandardClient(),
		runSummary: cfg.Notifications.RunSummary,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	runSummary bool
	errors     bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if data == nil {
		data = Payload{}
	}
	switch event {
	case EventRunCompleted:
		if !n.runSummary {
			return nil
		}
		return n.send(ctx, runCompletedPayload(data))
	case EventTranscodeFailed:
		if !n.errors {
			return nil
		}
		return n.send(ctx, transcodeFailedPayload(data))
	case EventError:
		if !n.errors {
			return nil
		}
		return n.send(ctx, errorPayload(data))
	case EventTest:
		return n.send(ctx, payload{
			title:    "Filmpress - Test",
			message:  "Notification system test",
			tags:     []string{"filmpress", "test"},
			priority: "low",
		})
	default:
		return nil
	}
}

func runCompletedPayload(data Payload) payload {
	transcoded := intValue(data, "transcoded")
	failed := intValue(data, "failed")
	notRequired := intValue(data, "not_required")
	tracked := intValue(data, "already_tracked")

	duration := durationValue(data, "duration").Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	title := "Filmpress - Cycle Complete"
	message := fmt.Sprintf("Cycle complete: %d transcoded in %s", transcoded, durationText)
	if failed > 0 {
		title = "Filmpress - Cycle Complete (with errors)"
		message = fmt.Sprintf("Cycle complete: %d transcoded, %d failed in %s", transcoded, failed, durationText)
	}
	message = fmt.Sprintf("%s\nNot required: %d, already tracked: %d", message, notRequired, tracked)

	return payload{
		title:   title,
		message: message,
		tags:    []string{"filmpress", "cycle", "completed"},
	}
}

func transcodeFailedPayload(data Payload) payload {
	name := textValue(data, "source_path")
	message := fmt.Sprintf("Transcode failed: %s", name)
	if errText := textValue(data, "error"); errText != "" {
		message = fmt.Sprintf("%s\n%s", message, errText)
	}
	return payload{
		title:    "Filmpress - Transcode Failed",
		message:  message,
		tags:     []string{"filmpress", "transcode", "failed"},
		priority: "high",
	}
}

func errorPayload(data Payload) payload {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel := textValue(data, "context"); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if errText := textValue(data, "error"); errText != "" {
		builder.WriteString(errText)
	} else {
		builder.WriteString("unknown")
	}

	return payload{
		title:    "Filmpress - Error",
		message:  builder.String(),
		tags:     []string{"filmpress", "error", "alert"},
		priority: "high",
	}
}

func textValue(data Payload, key string) string {
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intValue(data Payload, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func durationValue(data Payload, key string) time.Duration {
	if v, ok := data[key].(time.Duration); ok {
		return v
	}
	return 0
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
