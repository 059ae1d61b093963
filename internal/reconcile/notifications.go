package reconcile

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// MaxNotifications bounds the feed. Older entries are dropped first.
const MaxNotifications = 50

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is a user-visible toast.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}

// feed keeps notifications newest first. It is not safe for concurrent use.
type feed struct {
	items []Notification
}

func (f *feed) add(typ NotificationType, title, message string, now time.Time) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Title:     title,
		Message:   message,
		Timestamp: now,
	}
	f.items = slices.Insert(f.items, 0, n)
	if len(f.items) > MaxNotifications {
		f.items = f.items[:MaxNotifications]
	}
	return n
}

func (f *feed) markRead(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return true
		}
	}
	return false
}

func (f *feed) markAllRead() {
	for i := range f.items {
		f.items[i].Read = true
	}
}

func (f *feed) remove(id string) bool {
	n := len(f.items)
	f.items = slices.DeleteFunc(f.items, func(item Notification) bool { return item.ID == id })
	return len(f.items) != n
}

func (f *feed) clear() {
	f.items = nil
}

func (f *feed) unread() int {
	count := 0
	for _, n := range f.items {
		if !n.Read {
			count++
		}
	}
	return count
}

func (f *feed) snapshot() []Notification {
	return slices.Clone(f.items)
}

// restore replaces the feed, keeping at most MaxNotifications entries.
func (f *feed) restore(items []Notification) {
	if len(items) > MaxNotifications {
		items = items[:MaxNotifications]
	}
	f.items = slices.Clone(items)
}
