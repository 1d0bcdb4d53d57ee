package extract

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"soundkeep/internal/logger"
)

// defaultSearch turns bare queries into SoundCloud searches, mirroring the
// provider's behaviour for non-URL input.
const defaultSearch = "scsearch"

const metadataFormat = "%(title)s\t%(webpage_url)s\t%(duration)s\t%(thumbnail)s"

// YTDLP is the real extraction provider, shelling out to the yt-dlp binary.
// A shared rate limiter throttles invocations across all sessions.
type YTDLP struct {
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewYTDLP creates a provider limited to callsPerSec yt-dlp invocations.
func NewYTDLP(callsPerSec float64) *YTDLP {
	if callsPerSec <= 0 {
		callsPerSec = 1
	}
	return &YTDLP{
		limiter: rate.NewLimiter(rate.Limit(callsPerSec), 1),
		log:     logger.With("extract"),
	}
}

func (c *YTDLP) Metadata(ctx context.Context, query string, p Profile) (*Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cmd := ytdlp.New().
		Format(p.Format).
		DefaultSearch(defaultSearch).
		Print(metadataFormat).
		NoPlaylist().
		NoWarnings().
		IgnoreConfig()

	res, err := cmd.Run(ctx, append(c.profileArgs(p), "--skip-download", query)...)
	if err != nil {
		c.log.Debug().Str("profile", p.Name).Str("query", query).
			Str("stderr", stderrOf(res)).Msg("metadata extraction failed")
		return nil, classify(p, err, stderrOf(res))
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if md, ok := parseMetadataLine(line); ok {
			return md, nil
		}
	}
	return nil, classify(p, errors.New("no parseable metadata in output"), stderrOf(res))
}

func (c *YTDLP) Playlist(ctx context.Context, url string) ([]Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Flat extraction runs entirely inside the yt-dlp worker process, so
	// playlist-scale work never contends with the audio send loop.
	cmd := ytdlp.New().
		FlatPlaylist().
		IgnoreErrors().
		Print(metadataFormat).
		NoWarnings().
		IgnoreConfig()

	res, err := cmd.Run(ctx, "--skip-download", url)
	if err != nil {
		return nil, classify(Profile{}, err, stderrOf(res))
	}

	var entries []Metadata
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if md, ok := parseMetadataLine(line); ok {
			entries = append(entries, *md)
		}
	}
	return entries, nil
}

func (c *YTDLP) Download(ctx context.Context, url, destPath string, p Profile) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	cmd := ytdlp.New().
		Format(p.Format).
		Output(destPath + ".%(ext)s").
		NoPlaylist().
		NoPart().
		NoSimulate().
		Print("after_move:filepath").
		NoWarnings().
		IgnoreConfig()

	res, err := cmd.Run(ctx, append(c.profileArgs(p), url)...)
	if err != nil {
		c.log.Debug().Str("profile", p.Name).Str("url", url).
			Str("stderr", stderrOf(res)).Msg("download failed")
		return "", classify(p, err, stderrOf(res))
	}

	path := lastNonEmptyLine(res.Stdout)
	if path == "" {
		return "", classify(p, errors.New("yt-dlp reported no output file"), stderrOf(res))
	}
	return path, nil
}

func (c *YTDLP) StreamURL(ctx context.Context, url string, p Profile) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	cmd := ytdlp.New().
		Format(p.Format).
		Print("urls").
		NoPlaylist().
		NoWarnings().
		IgnoreConfig()

	res, err := cmd.Run(ctx, append(c.profileArgs(p), "--skip-download", url)...)
	if err != nil {
		return "", classify(p, err, stderrOf(res))
	}

	link := strings.TrimSpace(strings.SplitN(strings.TrimSpace(res.Stdout), "\n", 2)[0])
	if link == "" {
		return "", classify(p, errors.New("empty stream URL returned"), stderrOf(res))
	}
	return link, nil
}

// profileArgs translates a profile's client identity into extractor args.
func (c *YTDLP) profileArgs(p Profile) []string {
	if p.Client == "" {
		return nil
	}
	return []string{"--extractor-args", "youtube:player_client=" + p.Client}
}

// parseMetadataLine parses one tab-separated print line. Lines with a
// missing URL field are rejected.
func parseMetadataLine(line string) (*Metadata, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 4 {
		return nil, false
	}
	url := strings.TrimSpace(parts[1])
	if url == "" || url == "NA" {
		return nil, false
	}

	duration := 0
	if f, err := strconv.ParseFloat(parts[2], 64); err == nil {
		duration = int(f)
	}

	thumb := parts[3]
	if thumb == "NA" {
		thumb = ""
	}

	title := parts[0]
	if title == "" || title == "NA" {
		title = "Unknown"
	}

	return &Metadata{Title: title, URL: url, Duration: duration, Thumbnail: thumb}, true
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func stderrOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}
