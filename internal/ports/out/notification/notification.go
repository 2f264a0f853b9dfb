package notification

// Variant is the presentation style of a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient message surfaced to the member.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier surfaces transient messages.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
