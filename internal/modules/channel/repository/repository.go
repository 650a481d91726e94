package repository

import "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/domain"

// Repository defines the channel directory persistence interface
type Repository interface {
	SaveChannel(entry *domain.Entry) error
	GetChannel(label string) (*domain.Entry, error)
	GetAllChannels() ([]*domain.Entry, error)
	DeleteChannel(label string) error
}
