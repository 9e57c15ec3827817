// Package notify delivers out-of-band messages such as password recovery
// codes and due-task alerts.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelAlert Level = "alert"
)

type Notification struct {
	Title string
	Body  string
	Level Level
}

type Notifier interface {
	Send(Notification) error
}

type Noop struct{}

func (Noop) Send(Notification) error { return nil }

// LogNotifier writes every notification as a log record. It is the default
// delivery channel for recovery codes.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) Send(msg Notification) error {
	n.logger.Info("notification", "title", msg.Title, "body", msg.Body, "level", string(msg.Level))
	return nil
}

// Desktop shells out to notify-send on linux and osascript on darwin. Other
// platforms are a silent no-op.
type Desktop struct {
	goos string
	run  func(name string, args ...string) error
}

func NewDesktop() *Desktop {
	return &Desktop{
		goos: runtime.GOOS,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func (d *Desktop) Send(n Notification) error {
	switch d.goos {
	case "linux":
		args := []string{n.Title, n.Body}
		if n.Level == LevelAlert {
			args = append([]string{"--urgency=critical"}, args...)
		}
		return d.run("notify-send", args...)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return d.run("osascript", "-e", script)
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Send(n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}
