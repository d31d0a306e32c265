// Package lyric parses time-tagged LRC text and picks the active line for a playback position.
//
// Parsing is stateless: original and translated texts are parsed independently on every call and
// the caller decides which sequence to display with [Lyrics.Select].
package lyric

import (
	"encoding/json"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Lookahead is how far ahead of the clock a line may start and still count as active, in seconds.
const Lookahead = 0.25

var (
	tagPattern     = regexp.MustCompile(`\[(\d{1,2}):(\d{1,2})(?:\.(\d{1,3}))?]`)
	newlinePattern = regexp.MustCompile(`\r?\n`)
)

// Line is one timed lyric line. Time is in seconds, +Inf for untagged lines.
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// Timed reports whether the line carries a time tag.
func (l Line) Timed() bool {
	return !math.IsInf(l.Time, 0) && !math.IsNaN(l.Time)
}

// MarshalJSON encodes untagged lines with a null time, since JSON has no infinity.
func (l Line) MarshalJSON() ([]byte, error) {
	var t *float64
	if l.Timed() {
		t = &l.Time
	}
	return json.Marshal(struct {
		Time *float64 `json:"time"`
		Text string   `json:"text"`
	}{t, l.Text})
}

// Parse converts LRC text into lines sorted by time with consecutive duplicates removed.
//
// Every tag on a physical line yields its own entry sharing the line's text; untagged text sorts last.
func Parse(raw string) []Line {
	if raw == "" {
		return nil
	}

	var lines []Line
	for _, physical := range newlinePattern.Split(raw, -1) {
		text := strings.TrimSpace(tagPattern.ReplaceAllString(physical, ""))
		if text == "" {
			continue
		}

		tags := tagPattern.FindAllStringSubmatch(physical, -1)
		if len(tags) == 0 {
			lines = append(lines, Line{Time: math.Inf(1), Text: text})
			continue
		}

		for _, tag := range tags {
			lines = append(lines, Line{Time: tagSeconds(tag[1], tag[2], tag[3]), Text: text})
		}
	}

	slices.SortStableFunc(lines, func(a, b Line) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		default:
			return 0
		}
	})

	return slices.Compact(lines)
}

// tagSeconds converts the captured minute, second and fraction digits. The fraction is right-padded to milliseconds.
func tagSeconds(minutes, seconds, fraction string) float64 {
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi((fraction + "000")[:3])
	return float64(m*60+s) + float64(ms)/1000
}

// ActiveIndex returns the index of the last timed line starting at or before t+[Lookahead].
//
// Before the first timed line it falls back to that line (or 0 when nothing is timed); an empty slice gives -1.
func ActiveIndex(lines []Line, t float64) int {
	if len(lines) == 0 {
		return -1
	}

	active := -1
	for i, l := range lines {
		if !l.Timed() {
			continue
		}
		if l.Time > t+Lookahead {
			break
		}
		active = i
	}
	if active >= 0 {
		return active
	}

	if first := slices.IndexFunc(lines, Line.Timed); first >= 0 {
		return first
	}
	return 0
}

// Preview returns the lines within radius of idx, clipped to the slice.
func Preview(lines []Line, idx, radius int) []Line {
	if len(lines) == 0 || idx < 0 {
		return nil
	}
	lo := max(idx-radius, 0)
	hi := min(idx+radius+1, len(lines))
	if lo >= hi {
		return nil
	}
	return lines[lo:hi]
}

// Lyrics holds the parsed original and translated sequences of one track.
type Lyrics struct {
	Original    []Line
	Translation []Line
}

// ParseAll parses both texts independently.
func ParseAll(lyric, tlyric string) Lyrics {
	return Lyrics{Original: Parse(lyric), Translation: Parse(tlyric)}
}

// Select picks the displayed sequence: the translation when requested and present, else the original, else whatever translation exists.
func (l Lyrics) Select(showTranslation bool) []Line {
	switch {
	case showTranslation && len(l.Translation) > 0:
		return l.Translation
	case len(l.Original) > 0:
		return l.Original
	default:
		return l.Translation
	}
}

// HasTranslation reports whether a translated sequence exists.
func (l Lyrics) HasTranslation() bool {
	return len(l.Translation) > 0
}
