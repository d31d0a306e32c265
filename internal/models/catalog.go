package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString accepts a JSON string or number and keeps its textual form.
//
// Catalog ids arrive as either, depending on the backend.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*f = FlexString(n.String())
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// Artists accepts a JSON string or array of strings.
type Artists []string

func (a *Artists) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*a = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = nil
	} else {
		*a = Artists{s}
	}
	return nil
}

// Number is a JSON number that tolerates any other value (string, null, bool) by leaving Valid unset.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid [Number].
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = Number{}
	if len(data) == 0 || (data[0] != '-' && (data[0] < '0' || data[0] > '9')) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Joined returns the artists separated by ", ".
func (a Artists) Joined() string {
	return strings.Join(a, ", ")
}

// SearchItem is one catalog search result.
type SearchItem struct {
	ID      FlexString `json:"id"`
	Name    string     `json:"name,omitempty"`
	Artist  Artists    `json:"artist,omitempty"`
	Album   string     `json:"album,omitempty"`
	PicID   FlexString `json:"pic_id,omitempty"`
	LyricID FlexString `json:"lyric_id,omitempty"`
	Source  Source     `json:"source,omitempty"`
}

// Stub turns a search result into a playable seed on src, with the catalog ids preset so resolution skips the search.
func (i SearchItem) Stub(src Source) TrackStub {
	name := i.Name
	if name == "" {
		name = "Unknown track"
	}
	return TrackStub{
		ID:      fmt.Sprintf("%s-%s", src, i.ID),
		Name:    name,
		Artist:  i.Artist.Joined(),
		Album:   i.Album,
		Source:  src,
		TrackID: i.ID.String(),
		PicID:   i.PicID.String(),
		LyricID: i.LyricID.String(),
	}
}

// StreamInfo is the catalog's stream URL lookup response. Size is in KB.
type StreamInfo struct {
	URL  string `json:"url,omitempty"`
	Br   Number `json:"br"`
	Size Number `json:"size"`
}

// CoverInfo is the catalog's cover lookup response.
type CoverInfo struct {
	URL string `json:"url,omitempty"`
}

// LyricPayload is the catalog's lyric lookup response: original and translated LRC text.
type LyricPayload struct {
	Lyric  string `json:"lyric,omitempty"`
	TLyric string `json:"tlyric,omitempty"`
}

// LocalTrack is one entry of the local music listing.
type LocalTrack struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SeedTrack is the loose JSON shape accepted by library imports, tolerant of numeric ids and the snake_case keys catalogs use.
type SeedTrack struct {
	ID       FlexString `json:"id"`
	Name     string     `json:"name"`
	Artist   Artists    `json:"artist"`
	Album    string     `json:"album"`
	Duration string     `json:"duration"`
	Source   Source     `json:"source"`
	Keyword  string     `json:"keyword"`
	TrackID  FlexString `json:"trackId"`
	URLID    FlexString `json:"url_id"`
	PicID    FlexString `json:"pic_id"`
	LyricID  FlexString `json:"lyric_id"`
	Bitrate  Bitrate    `json:"bitrate"`
}

// Stub converts the seed, preferring trackId over url_id and defaulting the source to def.
func (s SeedTrack) Stub(def Source) TrackStub {
	src := s.Source
	if src == "" {
		src = def
	}
	trackID := s.TrackID.String()
	if trackID == "" {
		trackID = s.URLID.String()
	}
	return TrackStub{
		ID:       s.ID.String(),
		Name:     s.Name,
		Artist:   s.Artist.Joined(),
		Album:    s.Album,
		Duration: s.Duration,
		Source:   src,
		Keyword:  s.Keyword,
		TrackID:  trackID,
		PicID:    s.PicID.String(),
		LyricID:  s.LyricID.String(),
		Bitrate:  s.Bitrate,
	}
}
