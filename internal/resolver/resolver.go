// Package resolver turns track stubs into playable tracks by searching the catalog, picking the best
// match and looking up its stream URL, cover and lyrics.
package resolver

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/services"
	"github.com/desertthunder/lyrebird/internal/shared"
)

const (
	DefaultSearchCount = 8
	DefaultCoverSize   = 300
)

// Resolver resolves [models.TrackStub] values against a [services.Catalog].
type Resolver struct {
	catalog     services.Catalog
	searchCount int
	coverSize   int
	logger      *log.Logger
}

// New creates a Resolver. Non-positive searchCount and coverSize use the defaults.
func New(catalog services.Catalog, searchCount, coverSize int, logger *log.Logger) *Resolver {
	if searchCount <= 0 {
		searchCount = DefaultSearchCount
	}
	if coverSize <= 0 {
		coverSize = DefaultCoverSize
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{catalog: catalog, searchCount: searchCount, coverSize: coverSize, logger: logger}
}

// Catalog returns the underlying catalog.
func (r *Resolver) Catalog() services.Catalog {
	return r.catalog
}

// Score rates how well a search result matches target.
//
// +4 for an exact normalized name, else +2 when the result's name contains the target's;
// +4 when any artist token is shared; +1 when the result comes from the target's source.
func Score(item models.SearchItem, target models.TrackStub) int {
	score := 0

	targetName := shared.NormalizeText(target.Name)
	itemName := shared.NormalizeText(item.Name)
	switch {
	case targetName == "":
	case itemName == targetName:
		score += 4
	case strings.Contains(itemName, targetName):
		score += 2
	}

	targetArtists := shared.ArtistTokens(target.Artist)
	itemArtists := shared.ArtistTokens(item.Artist...)
	if len(targetArtists) > 0 && len(itemArtists) > 0 {
		if slices.ContainsFunc(itemArtists, func(tok string) bool { return slices.Contains(targetArtists, tok) }) {
			score += 4
		}
	}

	if item.Source != "" && item.Source == target.Source {
		score++
	}
	return score
}

// SelectBest returns the index of the highest scoring item, the earliest on ties, or -1 when items is empty.
func SelectBest(items []models.SearchItem, target models.TrackStub) int {
	best, bestScore := -1, math.MinInt
	for i, item := range items {
		if s := Score(item, target); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// Resolve returns track with a stream URL at bitrate, searching the catalog when the track id is unknown.
//
// A track that already has a URL at the requested bitrate, or a local track with a URL and no source, is
// returned unchanged. Cover and lyric lookups are best-effort. Fails with [shared.ErrNotFound] when nothing matches or no stream URL exists.
func (r *Resolver) Resolve(ctx context.Context, track models.ResolvedTrack, bitrate models.Bitrate) (models.ResolvedTrack, error) {
	if track.URL != "" && (track.Bitrate == bitrate || track.Source == "") {
		return track, nil
	}

	out := track
	src := track.Source
	logger := r.logger.With("track", track.ID, "source", src)

	if out.TrackID == "" {
		keyword := track.SearchKeyword()
		if keyword == "" {
			return track, fmt.Errorf("%w: track %q has no search keyword", shared.ErrNotFound, track.ID)
		}

		items, err := r.catalog.Search(ctx, src, keyword, r.searchCount, 1)
		if err != nil {
			return track, err
		}

		idx := SelectBest(items, track.TrackStub)
		if idx < 0 {
			return track, fmt.Errorf("%w: no results for %q on %s", shared.ErrNotFound, keyword, src)
		}

		best := items[idx]
		logger.Debug("selected search result", "keyword", keyword, "candidates", len(items), "index", idx, "score", Score(best, track.TrackStub))
		applyMatch(&out, best)
	}

	info, err := r.catalog.StreamURL(ctx, src, out.TrackID, bitrate)
	if err != nil {
		return track, err
	}
	if info.URL == "" {
		return track, fmt.Errorf("%w: empty stream url for %s", shared.ErrNotFound, out.TrackID)
	}

	out.URL = shared.SanitizeURL(info.URL)
	out.Bitrate = bitrate
	if info.Size.Valid {
		out.FileSizeKB = int(math.Round(info.Size.Value))
	}

	if out.PicID != "" {
		if cover, err := r.catalog.Cover(ctx, src, out.PicID, r.coverSize); err != nil {
			logger.Debug("cover lookup failed", "pic", out.PicID, "error", err)
		} else if u := strings.TrimSpace(cover.URL); u != "" {
			out.Cover = cover.URL
		}
	}

	if out.Lyric == "" && out.LyricID != "" {
		if payload, err := r.catalog.Lyric(ctx, src, out.LyricID); err != nil {
			logger.Debug("lyric lookup failed", "lyric", out.LyricID, "error", err)
		} else {
			if strings.TrimSpace(payload.Lyric) != "" {
				out.Lyric = payload.Lyric
			}
			if strings.TrimSpace(payload.TLyric) != "" {
				out.TLyric = payload.TLyric
			}
		}
	}

	return out, nil
}

// applyMatch copies the catalog ids and any non-empty metadata of the chosen result onto t.
func applyMatch(t *models.ResolvedTrack, best models.SearchItem) {
	t.TrackID = best.ID.String()
	if best.PicID != "" {
		t.PicID = best.PicID.String()
	}
	if best.LyricID != "" {
		t.LyricID = best.LyricID.String()
	}
	if best.Name != "" {
		t.Name = best.Name
	}
	if best.Album != "" {
		t.Album = best.Album
	}
	if artist := best.Artist.Joined(); artist != "" {
		t.Artist = artist
	}
}
