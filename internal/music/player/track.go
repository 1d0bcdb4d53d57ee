package player

import "fmt"

// Track is one queued entry. It carries metadata only; media is resolved
// fresh at the moment the track starts playing.
type Track struct {
	Title         string
	URL           string // canonical URL or a local file path
	Duration      int    // seconds, 0 when unknown
	Thumbnail     string
	RequesterID   string
	RequesterName string
}

// DurationString renders the duration as m:ss or h:mm:ss.
func (t Track) DurationString() string {
	if t.Duration <= 0 {
		return "?:??"
	}
	h := t.Duration / 3600
	m := (t.Duration % 3600) / 60
	s := t.Duration % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
