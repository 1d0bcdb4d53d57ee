// Package downloader executes blocking extraction and fetch work off the
// primary control flow. Single-track downloads run on bounded worker
// goroutines; playlist extraction is delegated wholesale to the yt-dlp
// worker process so it cannot contend with the real-time audio send loop.
package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"soundkeep/internal/logger"
	"soundkeep/internal/music/extract"
)

// ErrDownloadFailed marks a failed fetch-and-encode job. Callers treat it
// as "fall back to direct streaming", never as a user-visible error.
var ErrDownloadFailed = errors.New("download failed")

type Downloader struct {
	client   extract.Client
	profiles []extract.Profile
	sem      chan struct{}
	log      zerolog.Logger
}

func New(client extract.Client, profiles []extract.Profile, workers int) *Downloader {
	if workers < 1 {
		workers = 1
	}
	return &Downloader{
		client:   client,
		profiles: profiles,
		sem:      make(chan struct{}, workers),
		log:      logger.With("downloader"),
	}
}

type result struct {
	path string
	err  error
}

// DownloadTrack fetches the audio for url into destPath on a worker
// goroutine, walking the extraction profile cascade. A job is never
// cancelled once started; when ctx ends first the caller unblocks and the
// job's eventual result is discarded.
func (d *Downloader) DownloadTrack(ctx context.Context, url, destPath string) (string, error) {
	ch := make(chan result, 1)

	go func() {
		d.sem <- struct{}{}
		defer func() { <-d.sem }()

		path, err := extract.Cascade(context.WithoutCancel(ctx), d.profiles,
			func(ctx context.Context, p extract.Profile) (string, error) {
				return d.client.Download(ctx, url, destPath, p)
			})
		ch <- result{path: path, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("%w: %w", ErrDownloadFailed, r.err)
		}
		return r.path, nil
	case <-ctx.Done():
		d.log.Debug().Str("url", url).Msg("caller gone before download finished, result will be discarded")
		return "", ctx.Err()
	}
}

type playlistResult struct {
	entries []extract.Metadata
	err     error
}

// ExtractPlaylist resolves every entry of a playlist URL in the isolated
// worker process. Entries that individually fail to resolve are skipped by
// the provider and never surfaced.
func (d *Downloader) ExtractPlaylist(ctx context.Context, url string) ([]extract.Metadata, error) {
	ch := make(chan playlistResult, 1)

	go func() {
		entries, err := d.client.Playlist(context.WithoutCancel(ctx), url)
		ch <- playlistResult{entries: entries, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, r.err)
		}
		return r.entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
