package escalation

import (
	"context"
	"log/slog"
)

// PermissionState is the notification permission tri-state.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionDefault PermissionState = "default"
)

// Notifier delivers system notifications. Implementations wrap whatever
// notification surface the host environment provides.
type Notifier interface {
	// Permission reports the current permission state without prompting.
	Permission() PermissionState
	// RequestPermission prompts the user and returns the resulting state.
	RequestPermission(ctx context.Context) PermissionState
	// Notify delivers a notification. Only called when permission is granted.
	Notify(ctx context.Context, title, body string) error
}

// LogNotifier writes notifications to the log. It is the delivery surface
// for headless deployments where no desktop notification API exists.
type LogNotifier struct {
	logger *slog.Logger
	state  PermissionState
}

// NewLogNotifier creates a LogNotifier with the given initial permission
// state.
func NewLogNotifier(logger *slog.Logger, state PermissionState) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if state == "" {
		state = PermissionGranted
	}
	return &LogNotifier{logger: logger, state: state}
}

func (n *LogNotifier) Permission() PermissionState {
	return n.state
}

func (n *LogNotifier) RequestPermission(_ context.Context) PermissionState {
	if n.state == PermissionDefault {
		n.state = PermissionGranted
	}
	return n.state
}

func (n *LogNotifier) Notify(ctx context.Context, title, body string) error {
	n.logger.WarnContext(ctx, "notification", "title", title, "body", body)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
