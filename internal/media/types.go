package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const UnknownField = "Unknown"

var (
	// ErrToolMissing means the ffprobe or ffmpeg binary is not installed.
	ErrToolMissing = errors.New("media tool not found")
	// ErrEmptyOutput means extraction finished without producing a usable file.
	ErrEmptyOutput = errors.New("extraction produced no output")
	// ErrUnsupportedCodec means the stream cannot be converted to SRT.
	ErrUnsupportedCodec = errors.New("subtitle codec cannot be converted to text")
)

// Track describes one embedded subtitle stream.
type Track struct {
	StreamIndex int    `json:"stream_index"` // container stream index
	Position    int    `json:"position"`     // ordinal among subtitle streams, used for 0:s:<n>
	Language    string `json:"language"`
	Codec       string `json:"codec"`
}

// textCodecs can be converted to SRT by ffmpeg.
var textCodecs = map[string]bool{
	"subrip":   true,
	"srt":      true,
	"ass":      true,
	"ssa":      true,
	"mov_text": true,
	"webvtt":   true,
	"text":     true,
	"ttml":     true,
	"microdvd": true,
}

var bitmapCodecs = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"dvd_subtitle":      true,
	"dvb_subtitle":      true,
	"xsub":              true,
	"dvb_teletext":      true,
}

func isCodecName(s string) bool {
	s = strings.ToLower(s)
	return textCodecs[s] || bitmapCodecs[s] || strings.HasSuffix(s, "_subtitle")
}

// TextBased reports whether the stream can be extracted as SRT.
func (t Track) TextBased() bool {
	return textCodecs[strings.ToLower(t.Codec)]
}

// LanguageTag parses the stream's language code, returning language.Und when absent.
func (t Track) LanguageTag() language.Tag {
	if t.Language == "" || t.Language == UnknownField {
		return language.Und
	}
	tag, err := language.Parse(t.Language)
	if err != nil {
		return language.Und
	}
	return tag
}

// Label is a human readable description for selection lists.
func (t Track) Label() string {
	name := t.Language
	if tag := t.LanguageTag(); tag != language.Und {
		if n := display.English.Languages().Name(tag); n != "" {
			name = n
		}
	}
	return fmt.Sprintf("Track %d: %s (%s)", t.StreamIndex, name, t.Codec)
}

// Operator is what the track pipeline needs from the media tools.
type Operator interface {
	ProbeSubtitleTracks(ctx context.Context, mediaPath string) ([]Track, error)
	ExtractTrack(ctx context.Context, mediaPath string, track Track, outPath string) error
}
