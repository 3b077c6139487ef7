package models

import (
	"fmt"
	"time"
)

// ActionContext tells where a recorded action originated.
type ActionContext struct {
	Platform string `json:"platform"`
	Page     string `json:"page"`
}

// ActionRecord is what pages send to the authority sink after a successful mutation.
type ActionRecord struct {
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	Context   ActionContext  `json:"context"`
	UserID    string         `json:"user_id"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewActionRecord builds a record of type "web:<page>:<verb>".
func NewActionRecord(page, verb, userID string, details map[string]any) ActionRecord {
	return ActionRecord{
		Type:      fmt.Sprintf("web:%s:%s", page, verb),
		Details:   details,
		Context:   ActionContext{Platform: "web", Page: page},
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}
