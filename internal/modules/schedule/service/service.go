package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	activityDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/domain"
	activityService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/service"
	postDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/schedule/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

// tickInterval rate-limits due-check passes to once per minute of wall
// clock, matching the poll-on-interaction model: ticks only happen when
// some caller invokes Tick, never from a background timer.
const tickInterval = 60 * time.Second

// Deliverer sends content to a destination and returns the remote
// message id
type Deliverer interface {
	Deliver(ctx context.Context, destinationID string, content postDomain.DeliveryContent) (int, error)
}

// Service holds pending posts and promotes due ones on each tick
type Service struct {
	deliverer Deliverer
	activity  *activityService.Service
	logger    *slog.Logger

	mu       sync.Mutex
	posts    []*domain.ScheduledPost
	lastTick time.Time
	now      func() time.Time
}

// New creates a new scheduler
func New(deliverer Deliverer, activity *activityService.Service) *Service {
	return &Service{
		deliverer: deliverer,
		activity:  activity,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// SetLogger sets the logger
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Schedule delivers immediately when `when` is zero or not in the
// future, reporting the outcome directly. Otherwise it appends a pending
// entry and runs a due-check pass.
func (s *Service) Schedule(ctx context.Context, destinationID string, content postDomain.DeliveryContent, owner string, when time.Time) (delivered bool, messageID int, err error) {
	if when.IsZero() || !when.After(s.now()) {
		messageID, err = s.deliverer.Deliver(ctx, destinationID, content)
		return true, messageID, err
	}

	s.mu.Lock()
	s.posts = append(s.posts, &domain.ScheduledPost{
		DestinationID: destinationID,
		Content:       content,
		ScheduleTime:  when,
		Status:        domain.StatusScheduled,
		Owner:         owner,
		CreatedAt:     s.now(),
	})
	s.mu.Unlock()

	s.Tick(ctx)
	return false, 0, nil
}

// Tick runs one due-check pass, at most once per minute. Due entries are
// delivered through the same path as immediate posts; a failed delivery
// leaves the entry scheduled for a later tick.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastTick.IsZero() && s.now().Sub(s.lastTick) < tickInterval {
		return
	}

	now := s.now()
	for _, post := range s.posts {
		if post.Status != domain.StatusScheduled || post.ScheduleTime.After(now) {
			continue
		}

		messageID, err := s.deliverer.Deliver(ctx, post.DestinationID, post.Content)
		if err != nil {
			// No backoff and no retry limit; the entry stays scheduled
			// and the next tick tries again.
			s.logger.Error("Scheduled delivery failed", "destination", post.DestinationID, "owner", post.Owner, "error", err)
			continue
		}

		post.Status = domain.StatusPosted
		post.MessageID = messageID
		s.logger.Info("Scheduled post delivered", "destination", post.DestinationID, "message_id", messageID)

		if s.activity != nil {
			if err := s.activity.Record(post.Owner, post.Content.ChannelLabel, activityDomain.ActionScheduledPost, post.Content.Text, messageID); err != nil {
				s.logger.Error("Failed to record scheduled delivery", "error", err)
			}
		}
	}

	s.lastTick = now
}

// ListScheduled returns a snapshot of all entries in creation order
func (s *Service) ListScheduled() []*domain.ScheduledPost {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]*domain.ScheduledPost, len(s.posts))
	for i, post := range s.posts {
		copied := *post
		snapshot[i] = &copied
	}
	return snapshot
}

// Cancel removes a scheduled entry by its position in the pending list.
// Already-posted entries cannot be cancelled.
func (s *Service) Cancel(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.posts) {
		return errors.ErrScheduleNotFound
	}
	if s.posts[index].Status == domain.StatusPosted {
		return errors.ErrAlreadyPosted
	}

	s.posts = append(s.posts[:index], s.posts[index+1:]...)
	return nil
}
