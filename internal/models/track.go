package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Source identifies a remote catalog backend.
type Source string

const (
	Netease Source = "netease"
	Kuwo    Source = "kuwo"
	Joox    Source = "joox"
)

// Sources lists every supported catalog backend in display order.
var Sources = []Source{Netease, Kuwo, Joox}

func (s Source) String() string { return string(s) }

// Label returns the display name of the backend.
func (s Source) Label() string {
	switch s {
	case Netease:
		return "NetEase"
	case Kuwo:
		return "Kuwo"
	case Joox:
		return "JOOX"
	default:
		return string(s)
	}
}

// Valid reports whether s is a supported backend.
func (s Source) Valid() bool {
	return slices.Contains(Sources, s)
}

// ParseSource parses a backend name case-insensitively.
func ParseSource(v string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown source %q", v)
	}
	return s, nil
}

// Bitrate is a requested stream quality in kbps. 740 and 999 are the lossless tiers.
type Bitrate int

const (
	Bitrate128 Bitrate = 128
	Bitrate192 Bitrate = 192
	Bitrate320 Bitrate = 320
	Bitrate740 Bitrate = 740
	Bitrate999 Bitrate = 999

	DefaultBitrate = Bitrate320
)

// Bitrates lists every supported quality tier, lowest first.
var Bitrates = []Bitrate{Bitrate128, Bitrate192, Bitrate320, Bitrate740, Bitrate999}

// Valid reports whether b is a supported tier.
func (b Bitrate) Valid() bool {
	return slices.Contains(Bitrates, b)
}

func (b Bitrate) String() string {
	switch b {
	case Bitrate740:
		return "lossless"
	case Bitrate999:
		return "hi-res"
	default:
		return fmt.Sprintf("%dkbps", int(b))
	}
}

// ParseBitrate parses a numeric tier such as "320".
func ParseBitrate(v string) (Bitrate, error) {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "kbps"))
	if err != nil {
		return 0, fmt.Errorf("invalid bitrate %q", v)
	}
	if b := Bitrate(n); b.Valid() {
		return b, nil
	}
	return 0, fmt.Errorf("unsupported bitrate %d", n)
}

// TrackStub is the caller-supplied seed for resolution.
//
// Name and Artist are hints for catalog search; TrackID, PicID and LyricID are opaque catalog ids when already known.
type TrackStub struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Artist   string  `json:"artist,omitempty"`
	Album    string  `json:"album,omitempty"`
	Duration string  `json:"duration,omitempty"`
	Source   Source  `json:"source"`
	Keyword  string  `json:"keyword,omitempty"`
	TrackID  string  `json:"trackId,omitempty"`
	PicID    string  `json:"picId,omitempty"`
	LyricID  string  `json:"lyricId,omitempty"`
	Bitrate  Bitrate `json:"bitrate,omitempty"`
}

// SearchKeyword returns Keyword when set, otherwise the trimmed "name artist" pair.
func (s TrackStub) SearchKeyword() string {
	if k := strings.TrimSpace(s.Keyword); k != "" {
		return k
	}
	return strings.TrimSpace(strings.TrimSpace(s.Name) + " " + strings.TrimSpace(s.Artist))
}

// Title returns "Name - Artist", or just the name when the artist is unknown.
func (s TrackStub) Title() string {
	if s.Artist == "" {
		return s.Name
	}
	return s.Name + " - " + s.Artist
}

// Unresolved wraps the stub as a track with no stream URL yet.
func (s TrackStub) Unresolved() ResolvedTrack {
	return ResolvedTrack{TrackStub: s}
}

// ResolvedTrack is a stub plus everything needed to play and display it.
//
// A ResolvedTrack is a value: re-resolving at another bitrate or source produces a new one that replaces the old by ID.
type ResolvedTrack struct {
	TrackStub
	URL        string `json:"url,omitempty"`
	Cover      string `json:"cover,omitempty"`
	Lyric      string `json:"lyric,omitempty"`
	TLyric     string `json:"tLyric,omitempty"`
	FileSizeKB int    `json:"fileSizeKb,omitempty"`
}

// Playable reports whether the track carries a stream URL.
func (t ResolvedTrack) Playable() bool {
	return t.URL != ""
}

// Reseed returns a copy pointing at another backend with every catalog-specific field cleared, so it must be searched again.
func (t ResolvedTrack) Reseed(src Source) ResolvedTrack {
	stub := t.TrackStub
	stub.Source = src
	stub.TrackID, stub.PicID, stub.LyricID = "", "", ""
	return ResolvedTrack{TrackStub: stub}
}
