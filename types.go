package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Logger is the minimal logging surface the engines depend on
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock abstracts time for the code lifecycle, friendship transitions, and
// audit timestamps; tests inject fixed instants.
type Clock func() time.Time

// RandomCodeSource produces cryptographically unpredictable code strings of
// the requested byte length, hex encoded.
type RandomCodeSource interface {
	Generate(bytes int) (string, error)
}

// UserDirectory is the user lookup surface the domain engines consume.
// Implemented by the Users repository; callers out of this core may provide
// their own.
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// NotificationSink consumes per-user events for delivery. Fire-and-forget:
// implementations must not block, and emitters ignore the returned error
// beyond logging it.
type NotificationSink interface {
	EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error
}

// NotificationSinkFunc adapts a function to the NotificationSink interface.
type NotificationSinkFunc func(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error

// EmitToUser implements NotificationSink.
func (f NotificationSinkFunc) EmitToUser(ctx context.Context, userID uuid.UUID, event string, payload map[string]any) error {
	if f == nil {
		return nil
	}
	return f(ctx, userID, event, payload)
}

type noopNotificationSink struct{}

func (noopNotificationSink) EmitToUser(context.Context, uuid.UUID, string, map[string]any) error {
	return nil
}

func normalizeNotificationSink(s NotificationSink) NotificationSink {
	if s == nil {
		return noopNotificationSink{}
	}
	return s
}

func normalizeClock(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
