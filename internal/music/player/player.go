// Package player holds the per-guild playback state machine: the pending
// queue, the current track and the advance loop that feeds the audio
// engine. One Player exists per guild; a registry hands them out.
package player

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"soundkeep/internal/logger"
	"soundkeep/internal/music/resolver"
)

type Status string

const (
	StatusPlaying   Status = "Playing"
	StatusStopped   Status = "Playback Stopped"
	StatusPaused    Status = "Playback Paused"
	StatusResumed   Status = "Playback Resumed"
	StatusExhausted Status = "Queue Finished"
	StatusError     Status = "Error"
)

func (s Status) Emoji() string {
	m := map[Status]string{
		StatusPlaying:   "▶️",
		StatusStopped:   "⏹",
		StatusPaused:    "⏸",
		StatusResumed:   "▶️",
		StatusExhausted: "🏁",
		StatusError:     "❌",
	}
	return m[s]
}

// Event is emitted on every state transition. Track is set for
// StatusPlaying and StatusError.
type Event struct {
	Status Status
	Track  Track
}

var (
	ErrNoTrackPlaying  = errors.New("no track is currently playing")
	ErrNoTracksInQueue = errors.New("no tracks in queue")
	ErrNotPaused       = errors.New("playback is not paused")
)

// Engine is the audio transport the player drives. Play must invoke done
// exactly once when the track ends for any reason.
type Engine interface {
	Play(ctx context.Context, channelID string, src resolver.Source, done func(error)) error
	Stop()
	Pause() error
	Resume() error
	Close()
}

// TrackResolver turns a queued track into a playable source at play time.
type TrackResolver interface {
	ResolveForPlayback(ctx context.Context, req resolver.Request) (resolver.Source, error)
}

type Player struct {
	mu        sync.Mutex
	guildID   string
	channelID string
	current   *Track
	paused    bool
	stopping  bool
	closed    bool
	queue     queue

	engine   Engine
	resolver TrackResolver
	log      zerolog.Logger

	// Events is buffered; slow consumers drop transitions instead of
	// blocking the advance loop.
	Events chan Event
}

func New(guildID string, engine Engine, res TrackResolver) *Player {
	return &Player{
		guildID:  guildID,
		engine:   engine,
		resolver: res,
		log:      logger.With("player").With().Str("guild", guildID).Logger(),
		Events:   make(chan Event, 10),
	}
}

// Enqueue appends tracks to the end of the pending queue.
func (p *Player) Enqueue(tracks ...Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.add(tracks...)
	p.log.Debug().Int("added", len(tracks)).Int("pending", p.queue.len()).Msg("tracks enqueued")
}

// EnqueueNext inserts tracks at the front of the pending queue. The
// current track is unaffected.
func (p *Player) EnqueueNext(tracks ...Track) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.addNext(tracks...)
	p.log.Debug().Int("added", len(tracks)).Int("pending", p.queue.len()).Msg("tracks enqueued next")
}

// Play starts the advance loop into channelID if nothing is playing. When
// a track is already playing it only records the channel; queued tracks
// will follow there.
func (p *Player) Play(channelID string) error {
	p.mu.Lock()
	p.channelID = channelID
	if p.current != nil {
		p.mu.Unlock()
		return nil
	}
	if p.queue.len() == 0 {
		p.mu.Unlock()
		return ErrNoTracksInQueue
	}
	p.mu.Unlock()

	go p.advance()
	return nil
}

// Skip signals the engine to end the current track. The advance to the
// next track happens through the engine's done callback, never here.
func (p *Player) Skip() error {
	p.mu.Lock()
	playing := p.current != nil
	p.mu.Unlock()

	if !playing {
		return ErrNoTrackPlaying
	}
	p.engine.Stop()
	return nil
}

// Stop clears the queue and ends playback without advancing.
func (p *Player) Stop() error {
	p.mu.Lock()
	p.queue.clear()
	playing := p.current != nil
	if playing {
		p.stopping = true
	}
	p.mu.Unlock()

	if !playing {
		return ErrNoTrackPlaying
	}
	p.engine.Stop()
	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return ErrNoTrackPlaying
	}
	if p.paused {
		p.mu.Unlock()
		return nil
	}
	p.paused = true
	p.mu.Unlock()

	if err := p.engine.Pause(); err != nil {
		return err
	}
	p.emit(Event{Status: StatusPaused})
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return ErrNoTrackPlaying
	}
	if !p.paused {
		p.mu.Unlock()
		return ErrNotPaused
	}
	p.paused = false
	p.mu.Unlock()

	if err := p.engine.Resume(); err != nil {
		return err
	}
	p.emit(Event{Status: StatusResumed})
	return nil
}

// Shuffle randomizes the pending queue. The current track keeps playing.
func (p *Player) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.shuffle()
}

// NowPlaying returns the current track, or nil when idle.
func (p *Player) NowPlaying() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	t := *p.current
	return &t
}

func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Pending returns a copy of the queued tracks.
func (p *Player) Pending() []Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.snapshot()
}

// Shutdown ends playback, releases the engine and closes the Events
// channel. Used when the bot leaves the guild's voice channel.
func (p *Player) Shutdown() {
	_ = p.Stop()
	p.engine.Close()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.Events)
	}
	p.mu.Unlock()
}

// advance pops tracks until one starts playing or the queue runs dry.
// Tracks that fail to resolve are reported and passed over; a failure
// never wedges the queue.
func (p *Player) advance() {
	for {
		p.mu.Lock()
		track, ok := p.queue.popNext()
		if !ok {
			p.current = nil
			p.paused = false
			p.mu.Unlock()
			p.emit(Event{Status: StatusExhausted})
			return
		}
		p.current = &track
		p.paused = false
		channelID := p.channelID
		pending := p.queue.len()
		p.mu.Unlock()

		src, err := p.resolver.ResolveForPlayback(context.Background(), resolver.Request{
			Identifier: track.URL,
			Title:      track.Title,
			Duration:   track.Duration,
		})
		// A Stop that landed mid-resolve already cleared the session; the
		// resolved source is discarded, not played.
		if p.discardIfStopped() {
			return
		}
		if err != nil {
			p.log.Warn().Err(err).Str("title", track.Title).Msg("track failed to resolve, moving on")
			p.emit(Event{Status: StatusError, Track: track})
			continue
		}

		if err := p.engine.Play(context.Background(), channelID, src, p.onTrackDone); err != nil {
			if p.discardIfStopped() {
				return
			}
			p.log.Warn().Err(err).Str("title", track.Title).Msg("engine refused track, moving on")
			p.emit(Event{Status: StatusError, Track: track})
			continue
		}

		p.log.Info().Str("title", track.Title).Int("pending", pending).Msg("now playing")
		p.emit(Event{Status: StatusPlaying, Track: track})
		return
	}
}

// discardIfStopped ends an in-flight advance when Stop ran while the track
// was still resolving. The engine stop that Stop issued hit the previous
// track's dead channel, so the advance loop has to bail out here itself.
func (p *Player) discardIfStopped() bool {
	p.mu.Lock()
	if !p.stopping {
		p.mu.Unlock()
		return false
	}
	p.stopping = false
	p.current = nil
	p.paused = false
	p.mu.Unlock()
	p.emit(Event{Status: StatusStopped})
	return true
}

// onTrackDone runs on the engine's goroutine when a track ends.
func (p *Player) onTrackDone(err error) {
	if err != nil {
		p.log.Warn().Err(err).Msg("track ended with error")
	}

	p.mu.Lock()
	if p.stopping {
		p.stopping = false
		p.current = nil
		p.paused = false
		p.mu.Unlock()
		p.emit(Event{Status: StatusStopped})
		return
	}
	p.mu.Unlock()

	go p.advance()
}

func (p *Player) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.Events <- ev:
	default:
		p.log.Debug().Str("status", string(ev.Status)).Msg("event dropped, channel full")
	}
}
