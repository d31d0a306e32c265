package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// MockCatalog is a test double for [services.Catalog].
//
// Unset funcs fall back to canned behavior: no search results, a deterministic stream URL, no cover and no lyric.
type MockCatalog struct {
	SearchFunc func(ctx context.Context, src models.Source, keyword string, count, page int) ([]models.SearchItem, error)
	StreamFunc func(ctx context.Context, src models.Source, id string, br models.Bitrate) (models.StreamInfo, error)
	CoverFunc  func(ctx context.Context, src models.Source, picID string, size int) (models.CoverInfo, error)
	LyricFunc  func(ctx context.Context, src models.Source, lyricID string) (models.LyricPayload, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockCatalog) record(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[kind]++
}

// Calls returns how many times the named method ("search", "url", "pic", "lyric") ran.
func (m *MockCatalog) Calls(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

func (m *MockCatalog) Search(ctx context.Context, src models.Source, keyword string, count, page int) ([]models.SearchItem, error) {
	m.record("search")
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, src, keyword, count, page)
	}
	return nil, nil
}

func (m *MockCatalog) StreamURL(ctx context.Context, src models.Source, id string, br models.Bitrate) (models.StreamInfo, error) {
	m.record("url")
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, src, id, br)
	}
	return models.StreamInfo{URL: StreamURLFor(src, id, br), Br: models.Num(float64(br)), Size: models.Num(4096)}, nil
}

func (m *MockCatalog) Cover(ctx context.Context, src models.Source, picID string, size int) (models.CoverInfo, error) {
	m.record("pic")
	if m.CoverFunc != nil {
		return m.CoverFunc(ctx, src, picID, size)
	}
	return models.CoverInfo{}, fmt.Errorf("%w: no cover", shared.ErrNotFound)
}

func (m *MockCatalog) Lyric(ctx context.Context, src models.Source, lyricID string) (models.LyricPayload, error) {
	m.record("lyric")
	if m.LyricFunc != nil {
		return m.LyricFunc(ctx, src, lyricID)
	}
	return models.LyricPayload{}, nil
}

// StreamURLFor is the URL the default [MockCatalog.StreamURL] returns.
func StreamURLFor(src models.Source, id string, br models.Bitrate) string {
	return fmt.Sprintf("http://stream.test/%s/%s.mp3?br=%d", src, id, br)
}

// SearchResults returns a SearchFunc answering every query with items.
func SearchResults(items ...models.SearchItem) func(context.Context, models.Source, string, int, int) ([]models.SearchItem, error) {
	return func(context.Context, models.Source, string, int, int) ([]models.SearchItem, error) {
		return items, nil
	}
}
