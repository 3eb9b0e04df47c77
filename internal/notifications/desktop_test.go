package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordedCommand struct {
	name string
	args []string
}

func recorder(calls *[]recordedCommand, err error) commandRunner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, recordedCommand{name: name, args: append([]string(nil), args...)})
		return err
	}
}

func TestDesktopNotifierUsesOsascriptOnDarwin(t *testing.T) {
	var calls []recordedCommand
	d := newDesktopNotifier("darwin", recorder(&calls, nil))

	msg, _ := render(EventDraftReady, Payload{"title": `Say "hi"`})
	if err := d.send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "osascript" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	script := calls[0].args[1]
	want := `display notification "Draft ready: Say \"hi\"" with title "Meeting Follow-Up" sound name "Glass"`
	if script != want {
		t.Fatalf("unexpected script:\n got %s\nwant %s", script, want)
	}
}

func TestDesktopNotifierUsesNotifySendElsewhere(t *testing.T) {
	var calls []recordedCommand
	d := newDesktopNotifier("linux", recorder(&calls, nil))

	msg, _ := render(EventRunFailures, Payload{"failed": 3})
	if err := d.send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "notify-send" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	args := strings.Join(calls[0].args, "|")
	if args != "--app-name=followup|--urgency=critical|Meeting Follow-Up|3 email(s) failed. Check logs." {
		t.Fatalf("unexpected args %q", args)
	}
}

func TestDispatcherContinuesAfterTransportError(t *testing.T) {
	var failing, healthy []recordedCommand
	d := &dispatcher{
		transports: []notifier{
			newDesktopNotifier("linux", recorder(&failing, errors.New("no display"))),
			newDesktopNotifier("darwin", recorder(&healthy, nil)),
		},
		enabled: map[Event]bool{EventDraftReady: true},
	}

	err := d.Publish(context.Background(), EventDraftReady, Payload{"title": "x"})
	if err == nil || !strings.Contains(err.Error(), "no display") {
		t.Fatalf("expected joined transport error, got %v", err)
	}
	if len(healthy) != 1 {
		t.Fatalf("expected second transport to run, got %d calls", len(healthy))
	}
}
