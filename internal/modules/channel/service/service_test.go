package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/repository"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

func TestFormatDestinationID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty input", "", ""},
		{"bare channel number gets broadcast prefix", "123456789", "-100123456789"},
		{"short number gets broadcast prefix", "123", "-100123"},
		{"ten digit personal chat id unchanged", "6123456789", "6123456789"},
		{"ten digit personal chat id upper range", "9876543210", "9876543210"},
		{"ten digits starting below six is a channel", "5123456789", "-1005123456789"},
		{"eleven digits is a channel", "61234567890", "-10061234567890"},
		{"handle with at sign unchanged", "@mychannel", "@mychannel"},
		{"already prefixed id unchanged", "-1001234567890", "-1001234567890"},
		{"negative group id unchanged", "-987654321", "-987654321"},
		{"bare handle gets at prefix", "mychannel", "@mychannel"},
		{"whitespace trimmed", "  mychannel  ", "@mychannel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDestinationID(tt.input))
		})
	}
}

func newTestChannelService(t *testing.T) *Service {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return New(repo)
}

func TestSaveChannel(t *testing.T) {
	svc := newTestChannelService(t)

	entry, err := svc.SaveChannel("News", "mychannel", "https://t.me/mychannel")
	require.NoError(t, err)
	assert.Equal(t, "News", entry.Label)
	assert.Equal(t, "@mychannel", entry.DestinationID)
	assert.Equal(t, "https://t.me/mychannel", entry.Link)

	got, err := svc.GetChannel("News")
	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestSaveChannel_EmptyLabel(t *testing.T) {
	svc := newTestChannelService(t)

	for _, label := range []string{"", "   "} {
		_, err := svc.SaveChannel(label, "mychannel", "")
		assert.ErrorIs(t, err, errors.ErrChannelLabelEmpty)
	}
}

func TestSaveChannel_OverwritesExistingLabel(t *testing.T) {
	svc := newTestChannelService(t)

	_, err := svc.SaveChannel("News", "oldchannel", "https://t.me/oldchannel")
	require.NoError(t, err)
	_, err = svc.SaveChannel("News", "newchannel", "")
	require.NoError(t, err)

	got, err := svc.GetChannel("News")
	require.NoError(t, err)
	assert.Equal(t, "@newchannel", got.DestinationID)
	assert.Empty(t, got.Link, "stale link must not survive an overwrite")
}

func TestDeleteChannel(t *testing.T) {
	svc := newTestChannelService(t)

	_, err := svc.SaveChannel("News", "mychannel", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteChannel("News"))
	_, err = svc.GetChannel("News")
	assert.ErrorIs(t, err, errors.ErrChannelNotFound)

	assert.ErrorIs(t, svc.DeleteChannel("News"), errors.ErrChannelNotFound)
}

func TestVerifyDestination_WithoutBot(t *testing.T) {
	svc := newTestChannelService(t)
	_, err := svc.VerifyDestination(t.Context(), "@mychannel")
	assert.Error(t, err)
}
