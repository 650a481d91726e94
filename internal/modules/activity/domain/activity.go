package domain

import "time"

// Action classifies an activity log entry
type Action string

const (
	ActionPosted        Action = "posted"
	ActionScheduled     Action = "scheduled"
	ActionScheduledPost Action = "scheduled_post"
	ActionDeleted       Action = "deleted"
)

// PreviewLength caps the stored text preview
const PreviewLength = 50

// Record is one append-only activity log entry
type Record struct {
	Owner       string    `json:"owner"`
	Destination string    `json:"destination"`
	Action      Action    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	TextPreview string    `json:"text_preview"`
	MessageID   int       `json:"message_id,omitempty"`
}
