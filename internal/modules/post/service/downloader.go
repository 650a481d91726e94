package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

const downloadTimeout = 30 * time.Second

// Downloader retrieves media bytes for a fetched post
type Downloader struct {
	mediaDir string
	// client is used for buffered photo requests with an overall timeout
	client *http.Client
	// streamClient is used for streaming video downloads; only the
	// response headers carry a timeout, the body is capped by size instead
	streamClient *http.Client
	logger       *slog.Logger
}

// NewDownloader creates a new media downloader writing into mediaDir
func NewDownloader(mediaDir string) *Downloader {
	return &Downloader{
		mediaDir: mediaDir,
		client: &http.Client{
			Timeout: downloadTimeout,
		},
		streamClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: downloadTimeout,
			},
		},
		logger: slog.Default(),
	}
}

// SetLogger sets the logger
func (d *Downloader) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// DownloadBatch downloads up to the album limit of media items.
// A failing item is logged and skipped; it never aborts the rest of the
// batch. The returned slice preserves the relative order of the items
// that succeeded.
func (d *Downloader) DownloadBatch(ctx context.Context, media []domain.MediaDescriptor, postID string) []domain.DownloadedMedia {
	var downloaded []domain.DownloadedMedia
	var totalSize int64

	for i, m := range media {
		if i >= domain.MaxAlbumItems {
			break
		}

		var item *domain.DownloadedMedia
		var err error

		switch m.Type {
		case domain.MediaTypePhoto:
			item, err = d.downloadPhoto(ctx, m, postID)
		case domain.MediaTypeVideo, domain.MediaTypeAnimatedGIF:
			item, err = d.downloadVideo(ctx, m, postID)
		default:
			d.logger.Warn("Skipping unsupported media type", "post_id", postID, "media_key", m.MediaKey, "type", m.Type)
			continue
		}

		if err != nil {
			d.logger.Warn("Media download failed", "post_id", postID, "media_key", m.MediaKey, "error", err)
			continue
		}

		downloaded = append(downloaded, *item)
		totalSize += item.Size
	}

	d.logger.Info("Downloaded media batch",
		"post_id", postID,
		"items", len(downloaded),
		"total_mb", fmt.Sprintf("%.1f", float64(totalSize)/1024/1024),
	)
	return downloaded
}

func (d *Downloader) downloadPhoto(ctx context.Context, m domain.MediaDescriptor, postID string) (*domain.DownloadedMedia, error) {
	body, err := d.get(ctx, d.client, m.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// Buffer fully; one extra byte tells an oversize photo apart from an
	// exactly-at-limit one.
	data, err := io.ReadAll(io.LimitReader(body, domain.MaxPhotoBytes+1))
	if err != nil {
		return nil, oops.With("url", m.URL, "context", "reading photo body").Wrap(err)
	}
	if int64(len(data)) > domain.MaxPhotoBytes {
		return nil, oops.With("url", m.URL, "size", len(data)).Wrap(errors.ErrMediaTooLarge)
	}

	path := filepath.Join(d.mediaDir, fmt.Sprintf("%s-%s.jpg", postID, uuid.NewString()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, oops.With("path", path, "context", "writing photo file").Wrap(err)
	}

	return &domain.DownloadedMedia{
		Type:      domain.MediaTypePhoto,
		LocalPath: path,
		MediaKey:  m.MediaKey,
		Size:      int64(len(data)),
	}, nil
}

// downloadVideo walks the bitrate variants from highest to lowest and
// keeps the first one that lands within the acceptable size window.
// Animated GIFs arrive as MP4 variants and are delivered as video.
func (d *Downloader) downloadVideo(ctx context.Context, m domain.MediaDescriptor, postID string) (*domain.DownloadedMedia, error) {
	variants := lo.Filter(m.Variants, func(v domain.MediaVariant, _ int) bool {
		return v.Bitrate > 0
	})
	if len(variants) == 0 {
		return nil, oops.With("media_key", m.MediaKey).Wrap(errors.ErrNoUsableVariant)
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Bitrate > variants[j].Bitrate
	})

	var lastErr error
	for _, v := range variants {
		item, err := d.downloadVariant(ctx, v, m.MediaKey, postID)
		if err != nil {
			lastErr = err
			d.logger.Debug("Variant rejected, trying next", "media_key", m.MediaKey, "bitrate", v.Bitrate, "error", err)
			continue
		}
		return item, nil
	}

	return nil, oops.With("media_key", m.MediaKey, "variants", len(variants), "context", "all variants failed").Wrap(lastErr)
}

func (d *Downloader) downloadVariant(ctx context.Context, v domain.MediaVariant, mediaKey, postID string) (*domain.DownloadedMedia, error) {
	body, err := d.get(ctx, d.streamClient, v.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	path := filepath.Join(d.mediaDir, fmt.Sprintf("%s-%s.mp4", postID, uuid.NewString()))
	file, err := os.Create(path)
	if err != nil {
		return nil, oops.With("path", path, "context", "creating video file").Wrap(err)
	}

	// Stream with a hard cap: one byte past the limit aborts the copy,
	// so an oversize variant never fills the disk.
	written, err := io.Copy(file, io.LimitReader(body, domain.MaxVideoBytes+1))
	closeErr := file.Close()

	switch {
	case err != nil:
		os.Remove(path)
		return nil, oops.With("url", v.URL, "context", "streaming video body").Wrap(err)
	case closeErr != nil:
		os.Remove(path)
		return nil, oops.With("path", path, "context", "closing video file").Wrap(closeErr)
	case written > domain.MaxVideoBytes:
		os.Remove(path)
		return nil, oops.With("url", v.URL, "bitrate", v.Bitrate).Wrap(errors.ErrMediaTooLarge)
	case written <= domain.MinVideoBytes:
		os.Remove(path)
		return nil, oops.With("url", v.URL, "size", written).Wrap(errors.ErrMediaTooSmall)
	}

	return &domain.DownloadedMedia{
		Type:      domain.MediaTypeVideo,
		LocalPath: path,
		MediaKey:  mediaKey,
		Size:      written,
	}, nil
}

func (d *Downloader) get(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, oops.With("url", url, "context", "building media request").Wrap(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, oops.With("url", url, "context", "sending media request").Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, oops.Errorf("media request returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
