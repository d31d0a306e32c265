package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ShareQuery encodes enough of a track for another player to resolve it again: /share?trackId&name&artist&album&bitrate&source&id.
func ShareQuery(t TrackStub, br Bitrate, src Source) url.Values {
	return url.Values{
		"trackId": {t.TrackID},
		"name":    {t.Name},
		"artist":  {t.Artist},
		"album":   {t.Album},
		"bitrate": {strconv.Itoa(int(br))},
		"source":  {string(src)},
		"id":      {t.ID},
	}
}

// ShareURL joins origin with the encoded share query.
func ShareURL(origin string, t TrackStub, br Bitrate, src Source) string {
	return strings.TrimSuffix(origin, "/") + "/share?" + ShareQuery(t, br, src).Encode()
}

// EmbedSnippet wraps a share URL in an iframe tag.
func EmbedSnippet(shareURL string) string {
	return fmt.Sprintf(`<iframe src="%s" width="400" height="300" frameborder="0"></iframe>`, shareURL)
}

// ParseShareQuery turns share query values back into a stub and its requested bitrate.
//
// An invalid or missing bitrate falls back to [DefaultBitrate]; a stub needs a name or a track id.
func ParseShareQuery(q url.Values) (TrackStub, Bitrate, error) {
	src, err := ParseSource(q.Get("source"))
	if err != nil {
		return TrackStub{}, 0, err
	}

	stub := TrackStub{
		ID:      q.Get("id"),
		Name:    q.Get("name"),
		Artist:  q.Get("artist"),
		Album:   q.Get("album"),
		Source:  src,
		TrackID: q.Get("trackId"),
	}
	if stub.Name == "" && stub.TrackID == "" {
		return TrackStub{}, 0, fmt.Errorf("share link needs a name or trackId")
	}
	if stub.ID == "" {
		stub.ID = fmt.Sprintf("%s-%s", src, stub.TrackID)
	}

	br, err := ParseBitrate(q.Get("bitrate"))
	if err != nil {
		br = DefaultBitrate
	}
	stub.Bitrate = br
	return stub, br, nil
}
