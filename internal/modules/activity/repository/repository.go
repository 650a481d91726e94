package repository

import "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/domain"

// Repository defines the activity log persistence interface
type Repository interface {
	Append(record *domain.Record) error
	GetRecent(limit int) ([]*domain.Record, error)
}
