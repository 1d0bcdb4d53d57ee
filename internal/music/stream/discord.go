package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"layeh.com/gopus"

	"soundkeep/internal/logger"
	"soundkeep/internal/music/resolver"
)

// Engine owns one guild's voice connection and send loop. The player
// drives it; it never advances the queue itself.
type Engine struct {
	mu      sync.Mutex
	session *discordgo.Session
	guildID string
	vc      *discordgo.VoiceConnection
	paused  bool

	stop     chan struct{}
	stopOnce *sync.Once
	log      zerolog.Logger
}

func NewEngine(session *discordgo.Session, guildID string) *Engine {
	return &Engine{
		session: session,
		guildID: guildID,
		log:     logger.With("stream").With().Str("guild", guildID).Logger(),
	}
}

// Play opens the source, joins channelID and starts the send loop. done
// fires exactly once when the track ends, was stopped, or failed mid-send.
// A clean end of stream is not an error.
func (e *Engine) Play(ctx context.Context, channelID string, src resolver.Source, done func(error)) error {
	input, remote := src.Path, false
	if input == "" {
		input, remote = src.URL, true
	}

	pcm, cleanup, err := openPCM(input, remote)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	vc, err := e.joinVoice(channelID)
	if err != nil {
		cleanup()
		_ = pcm.Close()
		return err
	}

	e.mu.Lock()
	e.paused = false
	e.stop = make(chan struct{})
	e.stopOnce = &sync.Once{}
	stop := e.stop
	e.mu.Unlock()

	var doneOnce sync.Once
	finish := func(err error) {
		doneOnce.Do(func() { done(err) })
	}

	go func() {
		defer cleanup()
		err := e.sendLoop(pcm, vc, stop)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		finish(err)
	}()

	return nil
}

// Stop ends the current track. Safe to call when nothing is playing or
// more than once per track.
func (e *Engine) Stop() {
	e.mu.Lock()
	once, stop := e.stopOnce, e.stop
	e.mu.Unlock()

	if once != nil {
		once.Do(func() { close(stop) })
	}
}

func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	return nil
}

func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	return nil
}

// Close stops playback and leaves the voice channel.
func (e *Engine) Close() {
	e.Stop()

	e.mu.Lock()
	vc := e.vc
	e.vc = nil
	e.mu.Unlock()

	if vc != nil {
		if err := vc.Disconnect(); err != nil {
			e.log.Warn().Err(err).Msg("voice disconnect failed")
		}
	}
}

func (e *Engine) joinVoice(channelID string) (*discordgo.VoiceConnection, error) {
	e.mu.Lock()
	vc := e.vc
	e.mu.Unlock()

	if vc != nil && vc.ChannelID == channelID {
		return vc, nil
	}

	joined, err := e.session.ChannelVoiceJoin(e.guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	e.mu.Lock()
	e.vc = joined
	e.mu.Unlock()
	e.log.Debug().Str("channel", channelID).Msg("joined voice channel")
	return joined, nil
}

func (e *Engine) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// sendLoop reads 20ms PCM frames, encodes them to opus and feeds the voice
// connection until the stream ends or stop closes.
func (e *Engine) sendLoop(pcm io.ReadCloser, vc *discordgo.VoiceConnection, stop <-chan struct{}) error {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	defer pcm.Close()

	if err := vc.Speaking(true); err != nil {
		e.log.Warn().Err(err).Msg("failed to set speaking state")
	}
	defer func() { _ = vc.Speaking(false) }()

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if e.isPaused() {
			time.Sleep(20 * time.Millisecond)
			continue
		}

		if _, err := io.ReadFull(pcm, pcmBuf); err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case vc.OpusSend <- opus:
		case <-stop:
			return nil
		}
	}
}
