// Package stream decodes a resolved source to PCM via ffmpeg and pushes
// opus frames into a Discord voice connection.
package stream

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

// openPCM starts an ffmpeg process decoding input to raw s16le PCM on
// stdout. Remote URLs get reconnect flags; local files do not need them.
func openPCM(input string, remote bool) (io.ReadCloser, func(), error) {
	args := []string{}
	if remote {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	args = append(args,
		"-i", input,
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	cmd := exec.Command("ffmpeg", args...)
	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	cleanup := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
	return reader, cleanup, nil
}
