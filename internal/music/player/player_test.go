package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"soundkeep/internal/music/resolver"
)

type fakeEngine struct {
	mu      sync.Mutex
	done    func(error)
	played  []string
	stops   int
	pauses  int
	resumes int
}

func (e *fakeEngine) Play(_ context.Context, _ string, src resolver.Source, done func(error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := src.Path
	if id == "" {
		id = src.URL
	}
	e.played = append(e.played, id)
	e.done = done
	return nil
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	d := e.done
	e.done = nil
	e.stops++
	e.mu.Unlock()
	if d != nil {
		d(nil)
	}
}

func (e *fakeEngine) Pause() error  { e.mu.Lock(); defer e.mu.Unlock(); e.pauses++; return nil }
func (e *fakeEngine) Resume() error { e.mu.Lock(); defer e.mu.Unlock(); e.resumes++; return nil }
func (e *fakeEngine) Close()        {}

// finish simulates the current track reaching its natural end.
func (e *fakeEngine) finish() {
	e.mu.Lock()
	d := e.done
	e.done = nil
	e.mu.Unlock()
	if d != nil {
		d(nil)
	}
}

type fakeResolver struct {
	failing map[string]bool
}

func (r *fakeResolver) ResolveForPlayback(_ context.Context, req resolver.Request) (resolver.Source, error) {
	if r.failing[req.Identifier] {
		return resolver.Source{}, resolver.ErrResolutionFailed
	}
	return resolver.Source{Path: "/cache/" + req.Title}, nil
}

// gatedResolver blocks resolution of one URL until released, so tests can
// act while a resolve is in flight.
type gatedResolver struct {
	inner   fakeResolver
	gateURL string
	entered chan struct{}
	release chan struct{}
}

func (r *gatedResolver) ResolveForPlayback(ctx context.Context, req resolver.Request) (resolver.Source, error) {
	if req.Identifier == r.gateURL {
		r.entered <- struct{}{}
		<-r.release
	}
	return r.inner.ResolveForPlayback(ctx, req)
}

func newTestPlayer(failing ...string) (*Player, *fakeEngine) {
	engine := &fakeEngine{}
	fail := make(map[string]bool)
	for _, u := range failing {
		fail[u] = true
	}
	return New("guild-1", engine, &fakeResolver{failing: fail}), engine
}

func waitEvent(t *testing.T, p *Player, want Status) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-p.Events:
			if ev.Status == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

func TestPlayAdvancesThroughQueueInOrder(t *testing.T) {
	p, engine := newTestPlayer()
	p.Enqueue(tracks("a", "b")...)

	if err := p.Play("voice-1"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	ev := waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "a" {
		t.Fatalf("first track = %q, want a", ev.Track.Title)
	}

	engine.finish()
	ev = waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "b" {
		t.Fatalf("second track = %q, want b", ev.Track.Title)
	}

	engine.finish()
	waitEvent(t, p, StatusExhausted)
	if np := p.NowPlaying(); np != nil {
		t.Errorf("NowPlaying after exhaustion = %+v, want nil", np)
	}
}

func TestPlayWithEmptyQueue(t *testing.T) {
	p, _ := newTestPlayer()
	if err := p.Play("voice-1"); !errors.Is(err, ErrNoTracksInQueue) {
		t.Errorf("Play on empty queue = %v, want ErrNoTracksInQueue", err)
	}
}

func TestSkipAdvancesToNextTrack(t *testing.T) {
	p, engine := newTestPlayer()
	p.Enqueue(tracks("a", "b")...)
	_ = p.Play("voice-1")
	waitEvent(t, p, StatusPlaying)

	if err := p.Skip(); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	ev := waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "b" {
		t.Errorf("track after skip = %q, want b", ev.Track.Title)
	}
	if engine.stops != 1 {
		t.Errorf("engine stops = %d, want 1", engine.stops)
	}
}

func TestSkipWhenIdle(t *testing.T) {
	p, _ := newTestPlayer()
	if err := p.Skip(); !errors.Is(err, ErrNoTrackPlaying) {
		t.Errorf("Skip while idle = %v, want ErrNoTrackPlaying", err)
	}
}

func TestStopClearsQueueWithoutAdvancing(t *testing.T) {
	p, engine := newTestPlayer()
	p.Enqueue(tracks("a", "b", "c")...)
	_ = p.Play("voice-1")
	waitEvent(t, p, StatusPlaying)

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitEvent(t, p, StatusStopped)

	if got := len(p.Pending()); got != 0 {
		t.Errorf("pending after stop = %d, want 0", got)
	}
	if got := len(engine.played); got != 1 {
		t.Errorf("tracks started = %d, want 1 (no advance after stop)", got)
	}
}

func TestStopDuringResolveDiscardsResult(t *testing.T) {
	engine := &fakeEngine{}
	res := &gatedResolver{
		gateURL: "https://example.com/b",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	p := New("guild-1", engine, res)
	p.Enqueue(tracks("a", "b")...)
	_ = p.Play("voice-1")
	waitEvent(t, p, StatusPlaying)

	engine.finish()
	<-res.entered
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	close(res.release)

	waitEvent(t, p, StatusStopped)
	if np := p.NowPlaying(); np != nil {
		t.Errorf("NowPlaying after stop = %+v, want nil", np)
	}
	if got := len(engine.played); got != 1 {
		t.Errorf("tracks started = %d, want 1 (resolve result must be discarded)", got)
	}

	// The player is reusable after the discarded advance.
	p.Enqueue(tracks("c")...)
	if err := p.Play("voice-1"); err != nil {
		t.Fatalf("Play after stop: %v", err)
	}
	ev := waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "c" {
		t.Errorf("track after restart = %q, want c", ev.Track.Title)
	}
}

func TestFailingTrackIsPassedOver(t *testing.T) {
	p, engine := newTestPlayer("https://example.com/b")
	p.Enqueue(tracks("a", "b", "c")...)
	_ = p.Play("voice-1")
	waitEvent(t, p, StatusPlaying)

	engine.finish()
	ev := waitEvent(t, p, StatusError)
	if ev.Track.Title != "b" {
		t.Fatalf("failed track = %q, want b", ev.Track.Title)
	}
	ev = waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "c" {
		t.Errorf("track after failure = %q, want c", ev.Track.Title)
	}
}

func TestAllTracksFailingExhaustsQueue(t *testing.T) {
	p, _ := newTestPlayer("https://example.com/a", "https://example.com/b")
	p.Enqueue(tracks("a", "b")...)
	_ = p.Play("voice-1")

	waitEvent(t, p, StatusError)
	waitEvent(t, p, StatusError)
	waitEvent(t, p, StatusExhausted)
}

func TestEnqueueNextWhilePlaying(t *testing.T) {
	p, engine := newTestPlayer()
	p.Enqueue(tracks("a", "b")...)
	_ = p.Play("voice-1")
	ev := waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "a" {
		t.Fatalf("first track = %q, want a", ev.Track.Title)
	}

	p.EnqueueNext(tracks("early")...)
	p.EnqueueNext(tracks("priority")...)
	engine.finish()

	ev = waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "priority" {
		t.Errorf("next track = %q, want priority (latest EnqueueNext plays first)", ev.Track.Title)
	}
	engine.finish()
	ev = waitEvent(t, p, StatusPlaying)
	if ev.Track.Title != "early" {
		t.Errorf("following track = %q, want early", ev.Track.Title)
	}
}

func TestPauseResume(t *testing.T) {
	p, engine := newTestPlayer()
	p.Enqueue(tracks("a")...)
	_ = p.Play("voice-1")
	waitEvent(t, p, StatusPlaying)

	if err := p.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !p.IsPaused() {
		t.Error("IsPaused = false after Pause")
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if err := p.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("double Resume = %v, want ErrNotPaused", err)
	}
	if engine.pauses != 1 || engine.resumes != 1 {
		t.Errorf("engine pause/resume = %d/%d, want 1/1", engine.pauses, engine.resumes)
	}
}

func TestRegistryOnePlayerPerGuild(t *testing.T) {
	r := NewRegistry(func(guildID string) *Player {
		p, _ := newTestPlayer()
		return p
	})

	a := r.GetOrCreate("g1")
	if b := r.GetOrCreate("g1"); b != a {
		t.Error("GetOrCreate returned a second player for the same guild")
	}
	if c := r.GetOrCreate("g2"); c == a {
		t.Error("distinct guilds share a player")
	}

	r.Remove("g1")
	if _, ok := r.Get("g1"); ok {
		t.Error("player survived Remove")
	}
}
