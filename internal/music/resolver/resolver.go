// Package resolver turns a free-text query or URL into playable track
// metadata and, at play time, a decodable source. It owns the extraction
// profile cascade and the alternate-provider fallback.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/rs/zerolog"

	"soundkeep/internal/logger"
	"soundkeep/internal/music/audiocache"
	"soundkeep/internal/music/downloader"
	"soundkeep/internal/music/extract"
)

// ErrResolutionFailed means no extraction profile, no alternate provider
// and (for playback) no cache, download or streaming path succeeded.
var ErrResolutionFailed = errors.New("could not resolve track")

// Source is what the playback engine consumes: exactly one of Path (a local
// audio file) or URL (a short-lived direct media URL) is set.
type Source struct {
	Path string
	URL  string
}

// Request identifies a track to resolve for playback. Title and Duration
// are carried along so a fresh download can be registered in the cache.
type Request struct {
	Identifier string // canonical URL, or a local file path
	Title      string
	Duration   int
}

// AlternateProvider is the last-resort search path for free-text queries
// when every extraction profile has failed.
type AlternateProvider interface {
	Search(ctx context.Context, query string) (*extract.Metadata, error)
}

type Resolver struct {
	client   extract.Client
	alt      AlternateProvider
	cache    *audiocache.Cache
	dl       *downloader.Downloader
	profiles []extract.Profile
	log      zerolog.Logger
}

func New(client extract.Client, alt AlternateProvider, cache *audiocache.Cache, dl *downloader.Downloader) *Resolver {
	return &Resolver{
		client:   client,
		alt:      alt,
		cache:    cache,
		dl:       dl,
		profiles: extract.DefaultProfiles,
		log:      logger.With("resolver"),
	}
}

// FetchMetadata resolves a query or URL to track metadata without touching
// media. On total cascade failure a free-text query gets one attempt
// against the alternate provider; the error surfaced is the most recent
// failure encountered.
func (r *Resolver) FetchMetadata(ctx context.Context, query string) (*extract.Metadata, error) {
	md, err := extract.Cascade(ctx, r.profiles,
		func(ctx context.Context, p extract.Profile) (*extract.Metadata, error) {
			return r.client.Metadata(ctx, query, p)
		})
	if err == nil {
		return md, nil
	}

	if r.alt != nil && !isURL(query) {
		r.log.Debug().Str("query", query).Err(err).Msg("cascade exhausted, trying alternate provider")
		alt, altErr := r.alt.Search(ctx, query)
		if altErr == nil {
			return alt, nil
		}
		err = altErr
	}

	return nil, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
}

// FetchPlaylistMetadata resolves every entry of a playlist URL. Entries
// that individually fail (private, region locked, removed) are silently
// skipped by the provider.
func (r *Resolver) FetchPlaylistMetadata(ctx context.Context, playlistURL string) ([]extract.Metadata, error) {
	entries, err := r.dl.ExtractPlaylist(ctx, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	}
	return entries, nil
}

// ResolveForPlayback produces a decodable source for the track, at the
// moment the engine needs bytes. Attempt order: local file, cache hit,
// download-and-cache, direct streaming. Only total failure of all four
// paths is an error.
func (r *Resolver) ResolveForPlayback(ctx context.Context, req Request) (Source, error) {
	id := req.Identifier

	if !isURL(id) {
		if _, err := os.Stat(id); err == nil {
			return Source{Path: id}, nil
		}
	}

	if path, ok := r.cache.Get(id); ok {
		r.log.Debug().Str("url", id).Msg("cache hit")
		return Source{Path: path}, nil
	}

	path, err := r.dl.DownloadTrack(ctx, id, r.cache.PathFor(id))
	if err == nil {
		if putErr := r.cache.Put(id, path, req.Title, req.Duration); putErr != nil {
			r.log.Warn().Err(putErr).Str("url", id).Msg("failed to register downloaded file")
		}
		return Source{Path: path}, nil
	}
	r.log.Info().Err(err).Str("url", id).Msg("download failed, falling back to direct streaming")

	link, streamErr := extract.Cascade(ctx, r.profiles,
		func(ctx context.Context, p extract.Profile) (string, error) {
			return r.client.StreamURL(ctx, id, p)
		})
	if streamErr != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrResolutionFailed, streamErr)
	}
	return Source{URL: link}, nil
}

func isURL(input string) bool {
	u, err := url.ParseRequestURI(input)
	return err == nil && u.Scheme != "" && u.Host != ""
}
