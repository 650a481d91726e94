package service

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

const fetchTimeout = 30 * time.Second

// Fetcher retrieves posts from the source API
type Fetcher struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewFetcher creates a new post fetcher
func NewFetcher(baseURL, bearerToken string) *Fetcher {
	return &Fetcher{
		baseURL:     baseURL,
		bearerToken: bearerToken,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		logger: slog.Default(),
	}
}

// SetLogger sets the logger
func (f *Fetcher) SetLogger(logger *slog.Logger) {
	f.logger = logger
}

// Fetch retrieves a post with author and media expansions
func (f *Fetcher) Fetch(ctx context.Context, postID string) (*domain.FetchedPost, error) {
	if f.bearerToken == "" {
		return nil, errors.ErrMissingCredential
	}
	if !isDigits(postID) {
		return nil, errors.ErrInvalidPostID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/tweets/"+postID, nil)
	if err != nil {
		return nil, oops.With("post_id", postID, "context", "building fetch request").Wrap(err)
	}

	q := url.Values{}
	q.Set("expansions", "attachments.media_keys,author_id")
	q.Set("tweet.fields", "attachments,author_id,text,created_at,entities")
	q.Set("media.fields", "type,url,variants,preview_image_url")
	q.Set("user.fields", "name,username")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+f.bearerToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if (stderrors.As(err, &netErr) && netErr.Timeout()) || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, oops.With("post_id", postID).Wrap(errors.ErrFetchTimeout)
		}
		return nil, oops.With("post_id", postID, "context", "sending fetch request").Wrap(err)
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, oops.With("post_id", postID, "status", resp.StatusCode, "body", string(body)).Wrap(err)
	}

	var fetched fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		return nil, oops.With("post_id", postID, "context", "decoding fetch response").Wrap(err)
	}

	post, err := normalizeData(fetched.Data)
	if err != nil {
		return nil, oops.With("post_id", postID).Wrap(err)
	}

	result := &domain.FetchedPost{
		ID:    post.ID,
		Text:  ExpandLinks(post.Text, post.Entities.URLs),
		Media: orderedMedia(post, fetched.Includes.Media),
	}
	if post.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339, post.CreatedAt)
		if err != nil {
			f.logger.Warn("Failed to parse post creation time", "post_id", post.ID, "created_at", post.CreatedAt, "error", err)
		} else {
			result.CreatedAt = created
		}
	}

	if author, ok := lo.Find(fetched.Includes.Users, func(u apiUser) bool {
		return u.ID == post.AuthorID
	}); ok {
		result.AuthorName = author.Name
		result.AuthorHandle = author.Username
	}

	f.logger.Info("Fetched post", "post_id", post.ID, "media_count", len(result.Media))
	return result, nil
}

func statusToError(code int) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return errors.ErrCredentialRejected
	case http.StatusForbidden:
		return errors.ErrInsufficientScope
	case http.StatusNotFound:
		return errors.ErrPostNotFound
	case http.StatusTooManyRequests:
		return errors.ErrRateLimited
	default:
		return oops.Errorf("source API returned status %d", code)
	}
}

// normalizeData accepts the post either as a single object or as a
// one-element array; both yield the same post. An absent field or an
// empty array is a fetch failure.
func normalizeData(data json.RawMessage) (*apiPost, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.ErrEmptyResponse
	}

	if trimmed[0] == '[' {
		var posts []apiPost
		if err := json.Unmarshal(trimmed, &posts); err != nil {
			return nil, oops.With("context", "decoding data array").Wrap(err)
		}
		if len(posts) == 0 {
			return nil, errors.ErrEmptyResponse
		}
		return &posts[0], nil
	}

	var post apiPost
	if err := json.Unmarshal(trimmed, &post); err != nil {
		return nil, oops.With("context", "decoding data object").Wrap(err)
	}
	return &post, nil
}

// ExpandLinks replaces every occurrence of a shortened entity URL in the
// text with its expanded form. Entities are walked in reverse so earlier
// offsets stay valid; replacement itself is by value, which holds for
// repeated occurrences too.
func ExpandLinks(text string, entities []apiEntityURL) string {
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		expanded := e.ExpandedURL
		if expanded == "" {
			expanded = e.DisplayURL
		}
		if e.URL == "" || expanded == "" {
			continue
		}
		text = strings.ReplaceAll(text, e.URL, expanded)
	}
	return text
}

// orderedMedia resolves attachment media keys to descriptors, preserving
// the attachment order. Posts without an attachments block fall back to
// the includes order.
func orderedMedia(post *apiPost, media []apiMedia) []domain.MediaDescriptor {
	byKey := lo.KeyBy(media, func(m apiMedia) string { return m.MediaKey })

	keys := post.Attachments.MediaKeys
	if len(keys) == 0 {
		keys = lo.Map(media, func(m apiMedia, _ int) string { return m.MediaKey })
	}

	return lo.FilterMap(keys, func(key string, _ int) (domain.MediaDescriptor, bool) {
		m, ok := byKey[key]
		if !ok {
			return domain.MediaDescriptor{}, false
		}
		return domain.MediaDescriptor{
			MediaKey:   m.MediaKey,
			Type:       domain.MediaType(m.Type),
			URL:        m.URL,
			PreviewURL: m.PreviewImageURL,
			Variants:   m.Variants,
		}, true
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Wire types for the source API response.

type fetchResponse struct {
	Data     json.RawMessage `json:"data"`
	Includes struct {
		Media []apiMedia `json:"media"`
		Users []apiUser  `json:"users"`
	} `json:"includes"`
}

type apiPost struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	AuthorID    string `json:"author_id"`
	CreatedAt   string `json:"created_at"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
	Entities struct {
		URLs []apiEntityURL `json:"urls"`
	} `json:"entities"`
}

type apiEntityURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
}

type apiMedia struct {
	MediaKey        string                `json:"media_key"`
	Type            string                `json:"type"`
	URL             string                `json:"url"`
	PreviewImageURL string                `json:"preview_image_url"`
	Variants        []domain.MediaVariant `json:"variants"`
}

type apiUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}
