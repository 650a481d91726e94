package service

import (
	"fmt"

	"github.com/gorilla/feeds"
	"github.com/samber/lo"
	"github.com/samber/oops"

	activityDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/domain"
	activityService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/service"
)

// Service renders the activity log as an RSS feed
type Service struct {
	activity *activityService.Service
}

// New creates a new feed service
func New(activity *activityService.Service) *Service {
	return &Service{
		activity: activity,
	}
}

// GenerateFeed builds an RSS feed of recent delivery activity
func (s *Service) GenerateFeed(baseURL string) (*feeds.Feed, error) {
	records, err := s.activity.Recent()
	if err != nil {
		return nil, oops.With("context", "failed to load activity log").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       "Delivery Activity",
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed", baseURL)},
		Description: "Recent posts delivered and scheduled by the team",
	}
	if len(records) > 0 {
		feed.Updated = records[0].Timestamp
	}

	feed.Items = lo.Map(records, func(r *activityDomain.Record, _ int) *feeds.Item {
		return s.recordToFeedItem(r)
	})
	return feed, nil
}

func (s *Service) recordToFeedItem(r *activityDomain.Record) *feeds.Item {
	title := fmt.Sprintf("%s: %s", r.Action, r.Destination)
	description := fmt.Sprintf("%s %s to %s", r.Owner, r.Action, r.Destination)
	if r.TextPreview != "" {
		description += ": " + r.TextPreview
	}

	item := &feeds.Item{
		Title:       title,
		Description: description,
		Author:      &feeds.Author{Name: r.Owner},
		Created:     r.Timestamp,
		Id:          fmt.Sprintf("%s-%d-%d", r.Destination, r.Timestamp.Unix(), r.MessageID),
	}
	return item
}
