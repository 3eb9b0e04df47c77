package notifications

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"followup/internal/config"
)

const appTitle = "Meeting Follow-Up"

// Event identifies a notification-worthy pipeline milestone.
type Event string

const (
	EventDraftReady      Event = "draft_ready"
	EventMeetingDeferred Event = "meeting_deferred"
	EventRunFailures     Event = "run_failures"
	EventAuthExpired     Event = "auth_expired"
	EventTest            Event = "test"
)

// Payload carries event-specific values such as "title" or "failed".
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// message is the transport-neutral rendering of an event.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
	sound    string
}

// notifier delivers a rendered message over one transport.
type notifier interface {
	name() string
	send(ctx context.Context, msg message) error
}

// NewService builds a notification service from configuration. Desktop and
// ntfy transports are combined when both are enabled; with neither, a noop
// implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	settings := cfg.Notifications

	var transports []notifier
	if settings.Desktop {
		transports = append(transports, newDesktopNotifier(runtime.GOOS, runCommand))
	}
	if topic := strings.TrimSpace(settings.NtfyTopic); topic != "" {
		timeout := time.Duration(settings.RequestTimeout) * time.Second
		transports = append(transports, newNtfyNotifier(topic, timeout))
	}
	if len(transports) == 0 {
		return noopService{}
	}
	return &dispatcher{
		transports: transports,
		enabled: map[Event]bool{
			EventDraftReady:      settings.DraftReady,
			EventMeetingDeferred: settings.Deferred,
			EventRunFailures:     settings.Failures,
			EventAuthExpired:     settings.Failures,
			EventTest:            true,
		},
	}
}

type dispatcher struct {
	transports []notifier
	enabled    map[Event]bool
}

// Publish renders the event and fans it out to every transport. A transport
// failure does not stop delivery to the others.
func (d *dispatcher) Publish(ctx context.Context, event Event, payload Payload) error {
	if d == nil || !d.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	var errs []error
	for _, transport := range d.transports {
		if err := transport.send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", transport.name(), err))
		}
	}
	return errors.Join(errs...)
}

func render(event Event, payload Payload) (message, bool) {
	title := payloadString(payload, "title")
	if title == "" {
		title = "Untitled Meeting"
	}
	switch event {
	case EventDraftReady:
		return message{
			title: appTitle,
			body:  "Draft ready: " + title,
			tags:  []string{"followup", "draft", "ready"},
			sound: "Glass",
		}, true
	case EventMeetingDeferred:
		return message{
			title: appTitle,
			body:  fmt.Sprintf("Notes not ready yet for: %s. Will retry.", title),
			tags:  []string{"followup", "meeting", "deferred"},
			sound: "Purr",
		}, true
	case EventRunFailures:
		failed := payloadInt(payload, "failed")
		if failed <= 0 {
			return message{}, false
		}
		return message{
			title:    appTitle,
			body:     fmt.Sprintf("%d email(s) failed. Check logs.", failed),
			tags:     []string{"followup", "error", "alert"},
			priority: "high",
			sound:    "Basso",
		}, true
	case EventAuthExpired:
		return message{
			title:    appTitle,
			body:     "Granola token expired. Open Granola to re-authenticate.",
			tags:     []string{"followup", "auth", "expired"},
			priority: "high",
			sound:    "Basso",
		}, true
	case EventTest:
		return message{
			title:    appTitle + " - Test",
			body:     "Notification system test",
			tags:     []string{"followup", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func payloadInt(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
