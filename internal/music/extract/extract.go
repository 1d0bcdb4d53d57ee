// Package extract invokes the upstream extraction provider (yt-dlp) and
// classifies its failures. Callers never talk to yt-dlp directly; they go
// through the Client interface so the provider can be faked in tests.
package extract

import (
	"context"
	"errors"
)

// Profile is one concrete combination of format selector and player client
// identity used when invoking the extraction provider.
type Profile struct {
	Name   string
	Format string // yt-dlp format selector
	Client string // youtube player client identity, empty for extractor default
}

// DefaultProfiles is the ordered fallback cascade. Earlier entries are
// preferred; later entries trade quality for availability.
var DefaultProfiles = []Profile{
	{Name: "webm-default", Format: "bestaudio[ext=webm]/bestaudio/best", Client: ""},
	{Name: "m4a-ios", Format: "bestaudio[ext=m4a]/bestaudio", Client: "ios"},
	{Name: "any-android", Format: "bestaudio/best", Client: "android"},
	{Name: "best-web", Format: "best", Client: "web"},
}

// Metadata describes a track without touching its media.
type Metadata struct {
	Title     string
	URL       string // canonical webpage URL, stable across sessions
	Duration  int    // seconds
	Thumbnail string
}

// Client is the extraction provider surface.
type Client interface {
	// Metadata resolves a free-text query or URL to track metadata. Cheap,
	// never downloads media.
	Metadata(ctx context.Context, query string, p Profile) (*Metadata, error)

	// Playlist resolves every entry of a playlist URL. Entries that fail
	// individually are skipped, not surfaced.
	Playlist(ctx context.Context, url string) ([]Metadata, error)

	// Download fetches the audio for url into destDir and returns the
	// final file path.
	Download(ctx context.Context, url, destPath string, p Profile) (string, error)

	// StreamURL resolves url to a short-lived direct media URL.
	StreamURL(ctx context.Context, url string, p Profile) (string, error)
}

// Cascade tries profiles in order until one attempt succeeds. Format and
// transient failures advance to the next profile; NotFound and GeoBlocked
// abort immediately since no format or client change can help. The error
// returned is the most recent failure.
func Cascade[T any](ctx context.Context, profiles []Profile, attempt func(context.Context, Profile) (T, error)) (T, error) {
	var zero T
	var last error

	for _, p := range profiles {
		v, err := attempt(ctx, p)
		if err == nil {
			return v, nil
		}
		last = err

		switch KindOf(err) {
		case KindNotFound, KindGeoBlocked:
			return zero, last
		}
		if ctx.Err() != nil {
			return zero, last
		}
	}

	if last == nil {
		last = errors.New("no extraction profiles configured")
	}
	return zero, last
}
