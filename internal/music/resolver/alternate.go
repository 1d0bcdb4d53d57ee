package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"

	"soundkeep/internal/music/extract"
)

// youtubeSearch is the alternate provider: a plain search index lookup
// followed by a metadata fetch over the innertube API, bypassing the
// extraction binary entirely.
type youtubeSearch struct {
	search *ytsearch.Client
	meta   *youtube.Client
}

func NewYouTubeSearch() AlternateProvider {
	return &youtubeSearch{
		search: ytsearch.NewClient(nil),
		meta: &youtube.Client{
			HTTPClient: &http.Client{Timeout: 15 * time.Second},
		},
	}
}

func (s *youtubeSearch) Search(ctx context.Context, query string) (*extract.Metadata, error) {
	res, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("alternate search: %w", err)
	}
	if len(res.Results) == 0 {
		return nil, errors.New("alternate search: no results")
	}

	id := res.Results[0].VideoID
	watchURL := "https://www.youtube.com/watch?v=" + id

	video, err := s.meta.GetVideoContext(ctx, id)
	if err != nil {
		// The search hit is still usable, just without exact duration.
		return &extract.Metadata{
			Title: res.Results[0].Title,
			URL:   watchURL,
		}, nil
	}

	md := &extract.Metadata{
		Title:    video.Title,
		URL:      watchURL,
		Duration: int(video.Duration / time.Second),
	}
	if len(video.Thumbnails) > 0 {
		md.Thumbnail = video.Thumbnails[0].URL
	}
	return md, nil
}
