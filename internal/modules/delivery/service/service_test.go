package service

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
)

// fakeTelegram is a stand-in for the Bot API. It answers each method
// with a canned result and records the raw request bodies by method name.
type fakeTelegram struct {
	server *httptest.Server
	bodies map[string][]byte
	fail   map[string]bool
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{
		bodies: map[string][]byte{},
		fail:   map[string]bool{},
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body, _ := io.ReadAll(r.Body)
		f.bodies[method] = body

		w.Header().Set("Content-Type", "application/json")
		if f.fail[method] {
			fmt.Fprint(w, `{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}`)
			return
		}

		switch method {
		case "sendMessage":
			fmt.Fprint(w, `{"ok": true, "result": {"message_id": 42, "chat": {"id": -1001}}}`)
		case "sendMediaGroup":
			fmt.Fprint(w, `{"ok": true, "result": [{"message_id": 50, "chat": {"id": -1001}}, {"message_id": 51, "chat": {"id": -1001}}]}`)
		case "deleteMessage":
			fmt.Fprint(w, `{"ok": true, "result": true}`)
		default:
			fmt.Fprint(w, `{"ok": true, "result": {}}`)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestService(t *testing.T, f *fakeTelegram) *Service {
	t.Helper()
	b, err := bot.New("test-token",
		bot.WithServerURL(f.server.URL),
		bot.WithSkipGetMe(),
	)
	require.NoError(t, err)
	return New(b)
}

func mediaFile(t *testing.T, dir, name string, mediaType domain.MediaType) domain.DownloadedMedia {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("media bytes"), 0644))
	return domain.DownloadedMedia{
		Type:      mediaType,
		LocalPath: path,
		MediaKey:  name,
		Size:      11,
	}
}

func TestDeliver_TextOnly(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)

	id, err := svc.Deliver(t.Context(), "@channel", domain.DeliveryContent{Text: "hello channel"})
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	body := string(f.bodies["sendMessage"])
	assert.Contains(t, body, "hello channel")
	assert.Contains(t, body, "@channel")
	assert.NotContains(t, body, "sendMediaGroup")
}

func TestDeliver_WithMediaUsesGroup(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)
	dir := t.TempDir()

	id, err := svc.Deliver(t.Context(), "-1001", domain.DeliveryContent{
		Text: "album caption",
		Media: []domain.DownloadedMedia{
			mediaFile(t, dir, "a.jpg", domain.MediaTypePhoto),
			mediaFile(t, dir, "b.mp4", domain.MediaTypeVideo),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, id, "should return the first message id of the group")

	_, sentText := f.bodies["sendMessage"]
	assert.False(t, sentText, "media posts must not also send a text message")
}

func TestDeliverText_TruncatesLongText(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)

	long := strings.Repeat("a", domain.MaxTextLength+500)
	_, err := svc.DeliverText(t.Context(), "@channel", long)
	require.NoError(t, err)

	body := string(f.bodies["sendMessage"])
	assert.NotContains(t, body, strings.Repeat("a", domain.MaxTextLength+1))
	assert.Contains(t, body, strings.Repeat("a", domain.MaxTextLength))
}

func TestDeliverText_TruncatesMultibyteTextByRunes(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)

	// Each rune is three bytes; the limit counts characters, not bytes,
	// and the cut must never split a rune.
	long := strings.Repeat("日", domain.MaxTextLength+500)
	_, err := svc.DeliverText(t.Context(), "@channel", long)
	require.NoError(t, err)

	body := string(f.bodies["sendMessage"])
	assert.Contains(t, body, strings.Repeat("日", domain.MaxTextLength))
	assert.NotContains(t, body, strings.Repeat("日", domain.MaxTextLength+1))
	assert.NotContains(t, body, "�")
	assert.NotContains(t, body, `�`)
}

func TestDeliverMediaGroup_CaptionOnFirstItemOnly(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)
	dir := t.TempDir()

	_, err := svc.DeliverMediaGroup(t.Context(), "-1001", "only once", []domain.DownloadedMedia{
		mediaFile(t, dir, "a.jpg", domain.MediaTypePhoto),
		mediaFile(t, dir, "b.jpg", domain.MediaTypePhoto),
		mediaFile(t, dir, "c.mp4", domain.MediaTypeVideo),
	})
	require.NoError(t, err)

	body := string(f.bodies["sendMediaGroup"])
	assert.Equal(t, 1, strings.Count(body, "only once"))
}

func TestDeliverMediaGroup_CleansUpFilesOnSuccess(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)
	dir := t.TempDir()

	media := []domain.DownloadedMedia{
		mediaFile(t, dir, "a.jpg", domain.MediaTypePhoto),
		mediaFile(t, dir, "b.mp4", domain.MediaTypeVideo),
	}

	_, err := svc.DeliverMediaGroup(t.Context(), "-1001", "caption", media)
	require.NoError(t, err)

	for _, m := range media {
		assert.NoFileExists(t, m.LocalPath)
	}
}

func TestDeliverMediaGroup_CleansUpFilesOnFailure(t *testing.T) {
	f := newFakeTelegram(t)
	f.fail["sendMediaGroup"] = true
	svc := newTestService(t, f)
	dir := t.TempDir()

	media := []domain.DownloadedMedia{
		mediaFile(t, dir, "a.jpg", domain.MediaTypePhoto),
	}

	_, err := svc.DeliverMediaGroup(t.Context(), "-1001", "caption", media)
	require.Error(t, err)

	// Local files must never outlive the attempt, even a failed one.
	for _, m := range media {
		assert.NoFileExists(t, m.LocalPath)
	}
}

func TestDeletePost(t *testing.T) {
	f := newFakeTelegram(t)
	svc := newTestService(t, f)

	assert.True(t, svc.DeletePost(t.Context(), "-1001", 42))

	f.fail["deleteMessage"] = true
	assert.False(t, svc.DeletePost(t.Context(), "-1001", 42))
}
