package models

import "time"

const NotificationTable Table = "notifications"

// NotificationType is the severity of a notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification is a message addressed to one user. It is never public.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Channel   string           `json:"channel,omitempty"`
	Details   map[string]any   `json:"details,omitempty"`
	Read      bool             `json:"read"`
	Timestamp time.Time        `json:"timestamp"`
}

func (n Notification) GetID() string             { return n.ID }
func (n Notification) GetOwnerID() string        { return n.UserID }
func (n Notification) GetVisibility() Visibility { return Private }
func (n Notification) GetSortKey() string        { return TimeSortKey(n.Timestamp) }
func (n Notification) GetType() string           { return string(n.Type) }
func (n Notification) IsRead() bool              { return n.Read }

// Notifications is the notifications page's kind, newest first.
var Notifications = Kind[Notification]{
	Table:  NotificationTable,
	Page:   "notifications",
	Record: "notification",
	Order:  NewestFirst[Notification],
}
