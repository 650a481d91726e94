package domain

import (
	"time"

	postDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
)

// Session is an authenticated team member's login state. It also carries
// the working draft between the analyze and post steps; the draft is
// replaced wholesale on each new fetch and discarded after posting.
type Session struct {
	Token     string                  `json:"token"`
	Username  string                  `json:"username"`
	CreatedAt time.Time               `json:"created_at"`
	Draft     *postDomain.FetchedPost `json:"-"`
}
