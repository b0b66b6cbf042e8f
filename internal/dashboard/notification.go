package dashboard

// NotificationKind distinguishes success toasts from error toasts.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
)

// Notification is a transient, dismissible message shown after a mutation.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

func success(message string) Notification {
	return Notification{Kind: NotificationSuccess, Message: message}
}

func failure(message string) Notification {
	return Notification{Kind: NotificationError, Message: message}
}

// IsError reports whether the notification describes a failure.
func (n Notification) IsError() bool {
	return n.Kind == NotificationError
}
