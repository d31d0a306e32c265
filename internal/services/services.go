// package services defines interface Catalog for the remote music catalog API
package services

import (
	"context"

	"github.com/desertthunder/lyrebird/internal/models"
)

// Catalog is the remote music catalog: search plus stream, cover and lyric lookups keyed by catalog ids.
type Catalog interface {
	// Search returns up to count candidates for keyword on src, one page at a time (1-based).
	Search(ctx context.Context, src models.Source, keyword string, count, page int) ([]models.SearchItem, error)

	// StreamURL looks up the playable URL of track id at the requested bitrate.
	// Returns [shared.ErrNotFound] when the catalog has no URL for it.
	StreamURL(ctx context.Context, src models.Source, id string, br models.Bitrate) (models.StreamInfo, error)

	// Cover looks up the standalone cover image URL for picID at the given pixel size.
	Cover(ctx context.Context, src models.Source, picID string, size int) (models.CoverInfo, error)

	// Lyric fetches the original and translated LRC text for lyricID.
	Lyric(ctx context.Context, src models.Source, lyricID string) (models.LyricPayload, error)
}
