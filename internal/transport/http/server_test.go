package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	activityRepo "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/repository"
	activityService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/service"
	channelRepo "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/repository"
	channelService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/service"
	deliveryService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/delivery/service"
	feedService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/feed/service"
	postService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/service"
	scheduleService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/schedule/service"
	userService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/user/service"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/config"
)

// testStack wires the whole application against fake upstream servers.
type testStack struct {
	handler       http.Handler
	telegramCalls map[string][]byte
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	stack := &testStack{telegramCalls: map[string][]byte{}}

	// Fake source API: one known post.
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweets/20" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data": {"id": "20", "text": "just setting up my twttr", "author_id": "12"},
			"includes": {"users": [{"id": "12", "name": "Jack", "username": "jack"}]}}`)
	}))
	t.Cleanup(source.Close)

	// Fake destination API.
	telegram := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body, _ := io.ReadAll(r.Body)
		stack.telegramCalls[method] = body

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "sendMessage":
			fmt.Fprint(w, `{"ok": true, "result": {"message_id": 42, "chat": {"id": -1001}}}`)
		case "deleteMessage":
			fmt.Fprint(w, `{"ok": true, "result": true}`)
		case "getChat":
			fmt.Fprint(w, `{"ok": true, "result": {"id": -1001, "type": "channel", "title": "My News Channel"}}`)
		default:
			fmt.Fprint(w, `{"ok": true, "result": {}}`)
		}
	}))
	t.Cleanup(telegram.Close)

	b, err := bot.New("test-token", bot.WithServerURL(telegram.URL), bot.WithSkipGetMe())
	require.NoError(t, err)

	chRepo, err := channelRepo.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	actRepo, err := activityRepo.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	channels := channelService.New(chRepo)
	channels.SetBot(b)
	activity := activityService.New(actRepo)
	delivery := deliveryService.New(b)
	scheduler := scheduleService.New(delivery, activity)

	server := New(
		&config.Config{HTTPPort: "0"},
		userService.New(map[string]string{"alice": "s3cret"}),
		channels,
		postService.NewFetcher(source.URL, "test-bearer"),
		postService.NewDownloader(t.TempDir()),
		delivery,
		scheduler,
		activity,
		feedService.New(activity),
	)

	stack.handler = server.Handler()
	return stack
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testStack) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["token"]
}

func TestAuthentication(t *testing.T) {
	stack := newTestStack(t)

	t.Run("missing token", func(t *testing.T) {
		rec := stack.do(t, http.MethodGet, "/api/activity", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bogus token", func(t *testing.T) {
		rec := stack.do(t, http.MethodGet, "/api/activity", "not-a-session", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		rec := stack.do(t, http.MethodPost, "/api/login", "", map[string]string{
			"username": "alice",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout invalidates session", func(t *testing.T) {
		token := stack.login(t)
		rec := stack.do(t, http.MethodPost, "/api/logout", token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = stack.do(t, http.MethodGet, "/api/activity", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAnalyzeAndPostFlow(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	// Register a destination channel with a promo link.
	rec := stack.do(t, http.MethodPost, "/api/channels", token, map[string]string{
		"label": "News",
		"id":    "mychannel",
		"link":  "https://t.me/mychannel",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Analyze the pasted URL.
	rec = stack.do(t, http.MethodPost, "/api/analyze", token, map[string]string{
		"url": "https://x.com/jack/status/20?s=46",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var draft struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "20", draft.ID)
	assert.Equal(t, "just setting up my twttr", draft.Text)

	// Publish the edited draft immediately.
	rec = stack.do(t, http.MethodPost, "/api/post", token, map[string]string{
		"channel": "News",
		"text":    "edited text for the channel",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var posted struct {
		Status    string `json:"status"`
		MessageID int    `json:"message_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posted))
	assert.Equal(t, "posted", posted.Status)
	assert.Equal(t, 42, posted.MessageID)

	sent := string(stack.telegramCalls["sendMessage"])
	assert.Contains(t, sent, "edited text for the channel")
	assert.Contains(t, sent, "Visit Channel")

	// The draft is consumed; a second publish needs a new analyze.
	rec = stack.do(t, http.MethodPost, "/api/post", token, map[string]string{
		"channel": "News",
		"text":    "again",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The activity log recorded the post.
	rec = stack.do(t, http.MethodGet, "/api/activity", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "edited text for the channel")
	assert.Contains(t, rec.Body.String(), "alice")
}

func TestAnalyze_InvalidURL(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/analyze", token, map[string]string{
		"url": "https://x.com/jack",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_PostNotFound(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/analyze", token, map[string]string{
		"url": "https://x.com/jack/status/99",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPost_UnknownChannel(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/analyze", token, map[string]string{
		"url": "https://x.com/jack/status/20",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = stack.do(t, http.MethodPost, "/api/post", token, map[string]string{
		"channel": "Nope",
		"text":    "text",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduleAndCancel(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/channels", token, map[string]string{
		"label": "News",
		"id":    "mychannel",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = stack.do(t, http.MethodPost, "/api/analyze", token, map[string]string{
		"url": "https://x.com/jack/status/20",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = stack.do(t, http.MethodPost, "/api/post", token, map[string]string{
		"channel":       "News",
		"text":          "for later",
		"schedule_time": "2030-01-01T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scheduled"`)

	rec = stack.do(t, http.MethodGet, "/api/scheduled", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "for later")

	rec = stack.do(t, http.MethodPost, "/api/scheduled/0/cancel", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = stack.do(t, http.MethodPost, "/api/scheduled/0/cancel", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUndo(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/channels", token, map[string]string{
		"label": "News",
		"id":    "mychannel",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = stack.do(t, http.MethodPost, "/api/undo", token, map[string]any{
		"channel":    "News",
		"message_id": 42,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)
	assert.NotEmpty(t, stack.telegramCalls["deleteMessage"])
}

func TestChannelDirectory(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/channels", token, map[string]string{
		"label": "News",
		"id":    "123456789",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "-100123456789")

	rec = stack.do(t, http.MethodGet, "/api/channels", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "News")

	rec = stack.do(t, http.MethodGet, "/api/channels/News/verify", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "My News Channel")

	rec = stack.do(t, http.MethodDelete, "/api/channels/News", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = stack.do(t, http.MethodDelete, "/api/channels/News", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveChannel_EmptyLabel(t *testing.T) {
	stack := newTestStack(t)
	token := stack.login(t)

	rec := stack.do(t, http.MethodPost, "/api/channels", token, map[string]string{
		"label": "  ",
		"id":    "mychannel",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	stack := newTestStack(t)

	rec := stack.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = stack.do(t, http.MethodGet, "/feed", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "rss+xml")

	rec = stack.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "X to Telegram Scheduler")
}
