package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the failure class of an extraction attempt.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindFormatUnavailable
	KindGeoBlocked
	KindTransientNetwork
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindFormatUnavailable:
		return "format_unavailable"
	case KindGeoBlocked:
		return "geo_blocked"
	case KindTransientNetwork:
		return "transient_network"
	default:
		return "unknown"
	}
}

// Error wraps a provider failure with its class and the profile that hit it.
type Error struct {
	Kind    Kind
	Profile string
	Err     error
}

func (e *Error) Error() string {
	if e.Profile != "" {
		return fmt.Sprintf("extract (%s, profile %s): %v", e.Kind, e.Profile, e.Err)
	}
	return fmt.Sprintf("extract (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure class of err, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindUnknown
}

var notFoundMarkers = []string{
	"video unavailable",
	"private video",
	"removed by the uploader",
	"does not exist",
	"unable to find",
	"no video results",
	"http error 404",
	"404 not found",
}

var formatMarkers = []string{
	"requested format is not available",
	"requested format not available",
	"no video formats found",
	"only images are available",
}

var geoMarkers = []string{
	"not available in your country",
	"geo restriction",
	"blocked it in your country",
	"geo-restricted",
}

var transientMarkers = []string{
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"temporary failure",
	"network is unreachable",
	"unable to download webpage",
	"http error 429",
	"http error 500",
	"http error 502",
	"http error 503",
}

// classify maps a yt-dlp failure to a typed Error using its stderr output.
func classify(p Profile, err error, stderr string) error {
	text := strings.ToLower(err.Error() + "\n" + stderr)

	kind := KindUnknown
	switch {
	case containsAny(text, formatMarkers):
		kind = KindFormatUnavailable
	case containsAny(text, geoMarkers):
		kind = KindGeoBlocked
	case containsAny(text, notFoundMarkers):
		kind = KindNotFound
	case containsAny(text, transientMarkers):
		kind = KindTransientNetwork
	}

	return &Error{Kind: kind, Profile: p.Name, Err: err}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
