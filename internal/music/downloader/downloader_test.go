package downloader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"soundkeep/internal/music/extract"
)

type fakeClient struct {
	mu       sync.Mutex
	perCall  func(p extract.Profile) error
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	playlist []extract.Metadata
	plErr    error
}

func (f *fakeClient) Metadata(context.Context, string, extract.Profile) (*extract.Metadata, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) Playlist(context.Context, string) ([]extract.Metadata, error) {
	return f.playlist, f.plErr
}

func (f *fakeClient) Download(_ context.Context, _, destPath string, p extract.Profile) (string, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.perCall != nil {
		if err := f.perCall(p); err != nil {
			return "", err
		}
	}
	return destPath + ".webm", nil
}

func (f *fakeClient) StreamURL(context.Context, string, extract.Profile) (string, error) {
	return "", errors.New("not used")
}

func TestDownloadTrackSuccess(t *testing.T) {
	d := New(&fakeClient{}, extract.DefaultProfiles, 2)
	path, err := d.DownloadTrack(context.Background(), "https://example.com/v", "/cache/abc")
	if err != nil {
		t.Fatalf("DownloadTrack: %v", err)
	}
	if path != "/cache/abc.webm" {
		t.Errorf("path = %q", path)
	}
}

func TestDownloadTrackWalksCascade(t *testing.T) {
	client := &fakeClient{perCall: func(p extract.Profile) error {
		if p.Name == "webm-default" {
			return &extract.Error{Kind: extract.KindFormatUnavailable, Profile: p.Name, Err: errors.New("no webm")}
		}
		return nil
	}}
	d := New(client, extract.DefaultProfiles, 1)

	if _, err := d.DownloadTrack(context.Background(), "u", "/cache/x"); err != nil {
		t.Fatalf("DownloadTrack: %v", err)
	}
}

func TestDownloadTrackFailureWrapsSentinel(t *testing.T) {
	client := &fakeClient{perCall: func(p extract.Profile) error {
		return &extract.Error{Kind: extract.KindFormatUnavailable, Profile: p.Name, Err: errors.New("nope")}
	}}
	d := New(client, extract.DefaultProfiles, 1)

	_, err := d.DownloadTrack(context.Background(), "u", "/cache/x")
	if !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("err = %v, want ErrDownloadFailed", err)
	}
}

func TestDownloadTrackBoundsConcurrency(t *testing.T) {
	client := &fakeClient{delay: 50 * time.Millisecond}
	d := New(client, extract.DefaultProfiles[:1], 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.DownloadTrack(context.Background(), "u", "/cache/x")
		}()
	}
	wg.Wait()

	if max := client.maxSeen.Load(); max > 2 {
		t.Errorf("max concurrent downloads = %d, want <= 2", max)
	}
}

func TestDownloadTrackCallerUnblocksOnContextEnd(t *testing.T) {
	client := &fakeClient{delay: 2 * time.Second}
	d := New(client, extract.DefaultProfiles[:1], 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.DownloadTrack(ctx, "u", "/cache/x")
	if err == nil {
		t.Fatal("DownloadTrack succeeded despite context timeout")
	}
	if time.Since(start) > time.Second {
		t.Error("caller stayed blocked past context end")
	}
}

func TestExtractPlaylist(t *testing.T) {
	client := &fakeClient{playlist: []extract.Metadata{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/b"},
	}}
	d := New(client, extract.DefaultProfiles, 1)

	entries, err := d.ExtractPlaylist(context.Background(), "https://example.com/playlist?list=x")
	if err != nil {
		t.Fatalf("ExtractPlaylist: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}
}

func TestExtractPlaylistFailure(t *testing.T) {
	client := &fakeClient{plErr: errors.New("worker crashed")}
	d := New(client, extract.DefaultProfiles, 1)

	if _, err := d.ExtractPlaylist(context.Background(), "u"); !errors.Is(err, ErrDownloadFailed) {
		t.Errorf("err = %v, want ErrDownloadFailed", err)
	}
}
