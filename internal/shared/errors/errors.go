package errors

import "errors"

// Configuration errors. These halt startup.
var (
	ErrMissingBearerToken = errors.New("X_BEARER_TOKEN environment variable is required")
	ErrMissingBotToken    = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingTeamAccess  = errors.New("TEAM_PASSWORDS environment variable is required")
)

// Post fetch errors. Each maps to a distinct upstream failure so callers
// can tell an expired credential from a deleted post.
var (
	ErrPostIDNotFound     = errors.New("no post id found in URL")
	ErrInvalidPostID      = errors.New("post id must be a non-empty digit string")
	ErrMissingCredential  = errors.New("bearer credential is not configured")
	ErrCredentialRejected = errors.New("bearer credential rejected by the source API")
	ErrInsufficientScope  = errors.New("credential lacks the required API scope")
	ErrPostNotFound       = errors.New("post not found (deleted, private, or bad id)")
	ErrRateLimited        = errors.New("source API rate limit reached")
	ErrFetchTimeout       = errors.New("source API request timed out")
	ErrEmptyResponse      = errors.New("source API response contains no post data")
)

// Media download errors.
var (
	ErrMediaTooLarge   = errors.New("media exceeds the size limit")
	ErrMediaTooSmall   = errors.New("downloaded media is too small to be valid")
	ErrNoUsableVariant = errors.New("no video variant with a bitrate available")
)

// Delivery and bookkeeping errors.
var (
	ErrChannelNotFound   = errors.New("channel not found")
	ErrChannelLabelEmpty = errors.New("channel label cannot be empty")
	ErrUnauthorized      = errors.New("unauthorized user")
	ErrInvalidSession    = errors.New("session token is invalid or expired")
	ErrNoDraft           = errors.New("no analyzed post in the current session")
	ErrScheduleNotFound  = errors.New("scheduled post not found")
	ErrAlreadyPosted     = errors.New("scheduled post has already been delivered")
)
