package ports

import (
	"context"
	"time"
)

// SystemAlerter delivers OS-level (out-of-app) notifications.
type SystemAlerter interface {
	// PermissionGranted reports whether the channel may deliver at all.
	PermissionGranted() bool
	Send(ctx context.Context, title, body string) error
}

// TonePlayer plays the short proximity beep.
type TonePlayer interface {
	Play(ctx context.Context) error
}

// ToastLevel grades an in-app toast.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a short in-app message.
type Toast struct {
	ID      string     `json:"id"`
	Level   ToastLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// ToastPublisher shows toasts in the UI.
type ToastPublisher interface {
	Publish(toast Toast)
}
