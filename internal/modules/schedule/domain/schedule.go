package domain

import (
	"time"

	postDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
)

// Status represents the lifecycle state of a scheduled post
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusPosted    Status = "posted"
)

// ScheduledPost is a pending delivery held until its schedule time.
// Entries are never removed automatically; they either transition to
// posted or stay until cancelled.
type ScheduledPost struct {
	DestinationID string                     `json:"destination_id"`
	Content       postDomain.DeliveryContent `json:"content"`
	ScheduleTime  time.Time                  `json:"schedule_time"`
	Status        Status                     `json:"status"`
	Owner         string                     `json:"owner"`
	CreatedAt     time.Time                  `json:"created_at"`
	MessageID     int                        `json:"message_id,omitempty"`
}
