package ports

import "github.com/aretw0/storewizard/pkg/domain"

// Notifier is the user-visible notification surface. Calls are fire-and-forget.
type Notifier interface {
	Notify(kind domain.NotificationKind, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(kind domain.NotificationKind, message string)

// Notify calls f(kind, message).
func (f NotifierFunc) Notify(kind domain.NotificationKind, message string) {
	f(kind, message)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(domain.NotificationKind, string) {}
