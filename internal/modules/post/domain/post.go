package domain

import (
	"encoding/json"
	"time"
)

// Size limits imposed by the destination API.
const (
	MaxTextLength = 4096
	MaxAlbumItems = 10
	MaxPhotoBytes = 10 * 1024 * 1024
	MaxVideoBytes = 50 * 1024 * 1024
	MinVideoBytes = 100 * 1024
)

// MediaType represents the type of media attached to a post
type MediaType string

const (
	MediaTypePhoto       MediaType = "photo"
	MediaTypeVideo       MediaType = "video"
	MediaTypeAnimatedGIF MediaType = "animated_gif"
)

// TruncateText caps text at MaxTextLength characters. The cut is on a
// rune boundary so multibyte text never ends in a broken sequence.
func TruncateText(text string) string {
	if len(text) <= MaxTextLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxTextLength {
		return text
	}
	return string(runes[:MaxTextLength])
}

// FetchedPost is a normalized post retrieved from the source API
type FetchedPost struct {
	ID           string            `json:"id"`
	AuthorName   string            `json:"author_name"`
	AuthorHandle string            `json:"author_handle"`
	Text         string            `json:"text"`
	CreatedAt    time.Time         `json:"created_at"`
	Media        []MediaDescriptor `json:"media"`
}

// HasMedia reports whether the post carries any attachments
func (p *FetchedPost) HasMedia() bool {
	return len(p.Media) > 0
}

// MediaDescriptor describes one attachment as reported by the source API
type MediaDescriptor struct {
	MediaKey   string         `json:"media_key"`
	Type       MediaType      `json:"type"`
	URL        string         `json:"url"`
	PreviewURL string         `json:"preview_url,omitempty"`
	Variants   []MediaVariant `json:"variants,omitempty"`
}

// MediaVariant is one downloadable rendition of a video or animated GIF
type MediaVariant struct {
	URL         string `json:"url"`
	Bitrate     int    `json:"bitrate"`
	ContentType string `json:"content_type,omitempty"`
}

// UnmarshalJSON accepts both "bitrate" and "bit_rate" spellings; the source
// API has used either across versions and they carry the same value.
func (v *MediaVariant) UnmarshalJSON(data []byte) error {
	var raw struct {
		URL         string `json:"url"`
		Bitrate     int    `json:"bitrate"`
		BitRate     int    `json:"bit_rate"`
		ContentType string `json:"content_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	v.URL = raw.URL
	v.ContentType = raw.ContentType
	v.Bitrate = raw.Bitrate
	if v.Bitrate == 0 {
		v.Bitrate = raw.BitRate
	}
	return nil
}

// DownloadedMedia is a locally stored attachment ready for delivery.
// Its LocalPath must not outlive the delivery attempt that consumes it.
type DownloadedMedia struct {
	Type      MediaType `json:"type"`
	LocalPath string    `json:"local_path"`
	MediaKey  string    `json:"media_key"`
	Size      int64     `json:"size"`
}

// DeliveryContent is the edited payload handed to the delivery client.
// It is consumed exactly once.
type DeliveryContent struct {
	Text         string            `json:"text"`
	Media        []DownloadedMedia `json:"media"`
	ChannelLabel string            `json:"channel_label"`
}
