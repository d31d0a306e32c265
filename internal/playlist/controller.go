package playlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/resolver"
	"github.com/desertthunder/lyrebird/internal/services"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// Options configures a [Controller].
type Options struct {
	Resolver *resolver.Resolver
	// Catalog serves searches. Defaults to the resolver's catalog.
	Catalog services.Catalog
	// Extractor recovers embedded art when a track has no cover URL. Nil disables extraction.
	Extractor *cover.Extractor
	Opener    player.Opener

	Source       models.Source
	Bitrate      models.Bitrate
	SearchCount  int
	Volume       *float64
	Mode         player.Mode
	TickInterval time.Duration
	Rand         *rand.Rand
	Logger       *log.Logger
}

// Controller holds the track list and drives one [player.Engine] through it.
//
// Blocking work (resolution, search, decoder open, cover extraction) runs without the lock; every stream
// of async results carries a generation and stale results are dropped.
type Controller struct {
	resolver    *resolver.Resolver
	catalog     services.Catalog
	extractor   *cover.Extractor
	engine      *player.Engine
	searchCount int
	rng         *rand.Rand
	logger      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	covers cover.Slot

	mu              sync.Mutex
	tracks          []models.ResolvedTrack
	current         int
	loading         int
	source          models.Source
	bitrate         models.Bitrate
	showTranslation bool
	lyrics          lyric.Lyrics
	activeLine      int
	clock           player.Tick
	err             error
	resolveGen      uint64
	searchGen       uint64
	results         []models.SearchItem
	resultSource    models.Source

	evMu     sync.Mutex
	evClosed bool
	updates  chan Event
}

// New creates a controller with an empty list. The resolver and opener are required.
func New(opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		resolver:    opts.Resolver,
		catalog:     opts.Catalog,
		extractor:   opts.Extractor,
		searchCount: opts.SearchCount,
		rng:         opts.Rand,
		logger:      opts.Logger,
		ctx:         ctx,
		cancel:      cancel,
		current:     -1,
		loading:     -1,
		activeLine:  -1,
		source:      opts.Source,
		bitrate:     opts.Bitrate,
		updates:     make(chan Event, updateBuffer),
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	if c.catalog == nil && c.resolver != nil {
		c.catalog = c.resolver.Catalog()
	}
	if c.searchCount <= 0 {
		c.searchCount = resolver.DefaultSearchCount
	}
	if !c.source.Valid() {
		c.source = models.Netease
	}
	if !c.bitrate.Valid() {
		c.bitrate = models.DefaultBitrate
	}

	c.engine = player.NewEngine(opts.Opener, player.Options{
		Volume:       opts.Volume,
		Mode:         opts.Mode,
		TickInterval: opts.TickInterval,
		Logger:       shared.WithLogger(c.logger, "component", "player"),
		OnTick:       c.onTick,
		OnState:      c.onState,
		OnEnded:      c.onEnded,
	})
	return c
}

// Updates returns the event stream. Events are dropped rather than block the player when nobody reads.
func (c *Controller) Updates() <-chan Event {
	return c.updates
}

// Add appends tracks whose IDs are not in the list yet and returns how many were added.
// Tracks without an ID get a generated one.
func (c *Controller) Add(tracks ...models.ResolvedTrack) int {
	c.mu.Lock()
	existing := lo.SliceToMap(c.tracks, func(t models.ResolvedTrack) (string, struct{}) { return t.ID, struct{}{} })
	tracks = lo.Map(tracks, func(t models.ResolvedTrack, _ int) models.ResolvedTrack {
		if t.ID == "" {
			t.ID = shared.GenerateID()
		}
		return t
	})
	fresh := lo.Filter(lo.UniqBy(tracks, func(t models.ResolvedTrack) string { return t.ID }), func(t models.ResolvedTrack, _ int) bool {
		_, ok := existing[t.ID]
		return !ok
	})
	c.tracks = append(c.tracks, fresh...)
	c.mu.Unlock()

	if len(fresh) > 0 {
		c.emit(Event{Kind: ListChanged, Index: -1})
	}
	return len(fresh)
}

// Remove drops the tracks with the given IDs. Playback of a removed current track continues, but it is
// no longer addressable.
func (c *Controller) Remove(ids ...string) int {
	c.mu.Lock()
	currentID, loadingID := c.idAtLocked(c.current), c.idAtLocked(c.loading)
	before := len(c.tracks)
	c.tracks = lo.Reject(c.tracks, func(t models.ResolvedTrack, _ int) bool { return slices.Contains(ids, t.ID) })
	c.current = c.indexLocked(currentID)
	c.loading = c.indexLocked(loadingID)
	removed := before - len(c.tracks)
	c.mu.Unlock()

	if removed > 0 {
		c.emit(Event{Kind: ListChanged, Index: -1})
	}
	return removed
}

// Tracks returns a copy of the list.
func (c *Controller) Tracks() []models.ResolvedTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tracks)
}

// TracksBySource returns the tracks from src, in list order.
func (c *Controller) TracksBySource(src models.Source) []models.ResolvedTrack {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.tracks, func(t models.ResolvedTrack, _ int) bool { return t.Source == src })
}

// Play resolves the track at idx with the current bitrate and starts it.
//
// Selecting the track that is already being resolved is ignored. A selection overtaken by a newer one
// returns nil without touching playback. Failures land in the error slot and are returned.
func (c *Controller) Play(ctx context.Context, idx int) error {
	c.mu.Lock()
	if idx < 0 || idx >= len(c.tracks) {
		c.mu.Unlock()
		return fmt.Errorf("%w: no track at index %d", shared.ErrInvalidArgument, idx)
	}
	if c.loading == idx {
		c.mu.Unlock()
		return nil
	}
	c.resolveGen++
	gen := c.resolveGen
	c.loading = idx
	c.err = nil
	track, br := c.tracks[idx], c.bitrate
	c.mu.Unlock()

	c.emit(Event{Kind: TrackLoading, Index: idx})
	return c.resolveAndLoad(ctx, gen, track, br, true, "")
}

// ResolveAndPlay adds stub to the list (or reuses the entry with the same ID) and plays it at bitrate.
// A valid bitrate becomes the controller's bitrate.
func (c *Controller) ResolveAndPlay(ctx context.Context, stub models.TrackStub, bitrate models.Bitrate) error {
	if stub.ID == "" {
		stub.ID = shared.GenerateID()
	}
	if !stub.Source.Valid() {
		stub.Source = c.Source()
	}
	c.Add(stub.Unresolved())

	c.mu.Lock()
	if bitrate.Valid() {
		c.bitrate = bitrate
	}
	idx := c.indexLocked(stub.ID)
	c.mu.Unlock()

	return c.Play(ctx, idx)
}

// resolveAndLoad resolves track, stores the result and loads its stream. failure prefixes errors that
// are reported in the error slot.
func (c *Controller) resolveAndLoad(ctx context.Context, gen uint64, track models.ResolvedTrack, br models.Bitrate, autoplay bool, failure string) error {
	resolved, err := c.resolver.Resolve(ctx, track, br)

	c.mu.Lock()
	if gen != c.resolveGen {
		c.mu.Unlock()
		c.logger.Debug("discarded stale resolution", "track", track.ID)
		return nil
	}
	c.loading = -1
	if err != nil {
		c.mu.Unlock()
		return c.fail(failure, err)
	}

	idx := c.indexLocked(resolved.ID)
	if idx < 0 {
		c.mu.Unlock()
		c.logger.Debug("resolved track was removed", "track", resolved.ID)
		return nil
	}
	c.tracks[idx] = resolved
	c.current = idx
	c.lyrics = lyric.ParseAll(resolved.Lyric, resolved.TLyric)
	c.clock = player.Tick{}
	c.activeLine = lyric.ActiveIndex(c.lyrics.Select(c.showTranslation), 0)
	c.mu.Unlock()

	c.emit(Event{Kind: TrackChanged, Index: idx})
	c.refreshCover(resolved)

	if err := c.engine.Load(ctx, resolved.URL, autoplay); err != nil {
		return c.failIfCurrent(gen, failure, err)
	}
	return nil
}

// refreshCover extracts embedded art for t in the background when it has no cover URL.
func (c *Controller) refreshCover(t models.ResolvedTrack) {
	if t.Cover != "" || c.extractor == nil {
		c.covers.Clear()
		c.emit(Event{Kind: CoverChanged, Index: -1})
		return
	}

	ticket := c.covers.Begin(t.URL)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		h := c.extractor.Extract(c.ctx, ticket.URL)
		if c.covers.Install(ticket, h) {
			c.emit(Event{Kind: CoverChanged, Index: -1})
		}
	}()
}

// TogglePlayPause flips playback of the loaded track and returns the resulting state.
func (c *Controller) TogglePlayPause() player.State {
	return c.engine.TogglePlayPause()
}

// Next plays the following track: a random other one in shuffle mode, otherwise the next in order
// with wraparound. An empty list is a no-op.
func (c *Controller) Next(ctx context.Context) error {
	mode := c.engine.Mode()
	if mode != player.Shuffle {
		mode = player.Order
	}

	c.mu.Lock()
	idx := player.NextIndex(mode, c.current, len(c.tracks), c.rng)
	c.mu.Unlock()

	if idx < 0 {
		return nil
	}
	return c.Play(ctx, idx)
}

// Prev plays the preceding track, wrapping to the last.
func (c *Controller) Prev(ctx context.Context) error {
	c.mu.Lock()
	idx := player.PrevIndex(c.current, len(c.tracks))
	c.mu.Unlock()

	if idx < 0 {
		return nil
	}
	return c.Play(ctx, idx)
}

// SeekToFraction seeks to f (0..1) of the current track.
func (c *Controller) SeekToFraction(f float64) (time.Duration, error) {
	return c.engine.SeekFraction(f)
}

// SetVolume sets the clamped volume and returns it.
func (c *Controller) SetVolume(v float64) float64 {
	return c.engine.SetVolume(v)
}

// SetMode changes what happens at the end of a track.
func (c *Controller) SetMode(m player.Mode) {
	c.engine.SetMode(m)
	c.emit(Event{Kind: ModeChanged, Index: -1, Mode: m})
}

// CycleMode advances order -> single -> shuffle -> order and returns the new mode.
func (c *Controller) CycleMode() player.Mode {
	m := c.engine.Mode().Cycle()
	c.SetMode(m)
	return m
}

// Search queries the catalog on src (the current source when empty). A blank keyword is a no-op.
// Results of a search overtaken by a newer one are discarded.
func (c *Controller) Search(ctx context.Context, keyword string, src models.Source) ([]models.SearchItem, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	c.mu.Lock()
	if src == "" {
		src = c.source
	}
	c.searchGen++
	gen := c.searchGen
	c.mu.Unlock()

	items, err := c.catalog.Search(ctx, src, keyword, c.searchCount, 1)

	c.mu.Lock()
	if gen != c.searchGen {
		c.mu.Unlock()
		c.logger.Debug("discarded stale search", "keyword", keyword)
		return nil, nil
	}
	if err != nil {
		c.results = nil
		c.mu.Unlock()
		return nil, c.fail("search failed", err)
	}
	c.results = items
	c.resultSource = src
	c.mu.Unlock()

	c.logger.Debug("search", "source", src, "keyword", keyword, "results", len(items))
	c.emit(Event{Kind: SearchDone, Index: -1})
	return items, nil
}

// SearchResults returns the latest search results and the source they came from.
func (c *Controller) SearchResults() ([]models.SearchItem, models.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.results), c.resultSource
}

// AddSearchResult turns item into a track on the searched source, adds it and plays it.
func (c *Controller) AddSearchResult(ctx context.Context, item models.SearchItem) error {
	c.mu.Lock()
	src := c.resultSource
	if src == "" {
		src = c.source
	}
	c.mu.Unlock()

	stub := item.Stub(src)
	c.Add(stub.Unresolved())

	c.mu.Lock()
	idx := c.indexLocked(stub.ID)
	c.mu.Unlock()
	return c.Play(ctx, idx)
}

// SelectSearchResult plays the i-th entry of the latest search results.
func (c *Controller) SelectSearchResult(ctx context.Context, i int) error {
	c.mu.Lock()
	if i < 0 || i >= len(c.results) {
		c.mu.Unlock()
		return fmt.Errorf("%w: no search result at index %d", shared.ErrInvalidArgument, i)
	}
	item := c.results[i]
	c.mu.Unlock()

	return c.AddSearchResult(ctx, item)
}

// SetBitrate switches quality and re-resolves the current track, restarting it when it was playing.
func (c *Controller) SetBitrate(ctx context.Context, br models.Bitrate) error {
	if !br.Valid() {
		return fmt.Errorf("%w: unsupported bitrate %d", shared.ErrInvalidArgument, br)
	}

	wasPlaying := c.engine.Snapshot().Playing()

	c.mu.Lock()
	c.bitrate = br
	if c.current < 0 {
		c.mu.Unlock()
		return nil
	}
	c.resolveGen++
	gen := c.resolveGen
	idx := c.current
	c.loading = idx
	track := c.tracks[idx]
	c.mu.Unlock()

	c.emit(Event{Kind: TrackLoading, Index: idx})
	resolved, err := c.resolver.Resolve(ctx, track, br)

	c.mu.Lock()
	if gen != c.resolveGen {
		c.mu.Unlock()
		return nil
	}
	c.loading = -1
	if err != nil {
		c.mu.Unlock()
		return c.fail("bitrate switch failed", err)
	}
	if i := c.indexLocked(resolved.ID); i >= 0 {
		c.tracks[i] = resolved
	}
	c.mu.Unlock()

	c.emit(Event{Kind: TrackChanged, Index: idx})
	if !wasPlaying {
		// the loaded audio is unchanged, so an extracted cover still applies
		if resolved.Cover == "" && !c.covers.Rebind(track.URL, resolved.URL) {
			c.refreshCover(resolved)
		}
		return nil
	}

	c.refreshCover(resolved)
	if err := c.engine.Load(ctx, resolved.URL, true); err != nil {
		return c.failIfCurrent(gen, "bitrate switch failed", err)
	}
	return nil
}

// SetSource switches the default backend and re-resolves the current track on it from scratch. The
// re-resolved track is loaded paused.
func (c *Controller) SetSource(ctx context.Context, src models.Source) error {
	if !src.Valid() {
		return fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, src)
	}

	c.mu.Lock()
	c.source = src
	if c.current < 0 {
		c.mu.Unlock()
		return nil
	}
	c.resolveGen++
	gen := c.resolveGen
	idx := c.current
	c.loading = idx
	track := c.tracks[idx].Reseed(src)
	br := c.bitrate
	c.mu.Unlock()

	c.emit(Event{Kind: TrackLoading, Index: idx})
	return c.resolveAndLoad(ctx, gen, track, br, false, "source switch failed")
}

// Source returns the default backend for new searches and selections.
func (c *Controller) Source() models.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Bitrate returns the quality used for resolution.
func (c *Controller) Bitrate() models.Bitrate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bitrate
}

// ToggleTranslation switches between original and translated lyrics and returns the new setting.
func (c *Controller) ToggleTranslation() bool {
	c.mu.Lock()
	c.showTranslation = !c.showTranslation
	show := c.showTranslation
	c.activeLine = lyric.ActiveIndex(c.lyrics.Select(show), c.clock.Position.Seconds())
	line := c.activeLine
	c.mu.Unlock()

	c.emit(Event{Kind: LyricAdvanced, Index: -1, Line: line})
	return show
}

// ActiveLyric returns the displayed lyric lines and the index of the active one (-1 when there are none).
func (c *Controller) ActiveLyric() ([]lyric.Line, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lyrics.Select(c.showTranslation), c.activeLine
}

// Cover returns the current track's cover URL, or the extracted handle when the track has none.
// Both are empty while nothing is playing or extraction is pending.
func (c *Controller) Cover() (string, *cover.Handle) {
	c.mu.Lock()
	var t models.ResolvedTrack
	if c.current >= 0 {
		t = c.tracks[c.current]
	}
	c.mu.Unlock()

	if t.Cover != "" {
		return t.Cover, nil
	}
	h, url := c.covers.Current()
	if h == nil || url != t.URL {
		return "", nil
	}
	return "", h
}

// Snapshot is a consistent view of the controller for display.
type Snapshot struct {
	Index           int                   `json:"index"`
	Loading         int                   `json:"loading"`
	Track           *models.ResolvedTrack `json:"track,omitempty"`
	Tracks          int                   `json:"tracks"`
	Player          player.Snapshot       `json:"player"`
	Source          models.Source         `json:"source"`
	Bitrate         models.Bitrate        `json:"bitrate"`
	ShowTranslation bool                  `json:"showTranslation"`
	HasTranslation  bool                  `json:"hasTranslation"`
	ActiveLine      int                   `json:"activeLine"`
	Error           string                `json:"error,omitempty"`
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	ps := c.engine.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Index:           c.current,
		Loading:         c.loading,
		Tracks:          len(c.tracks),
		Player:          ps,
		Source:          c.source,
		Bitrate:         c.bitrate,
		ShowTranslation: c.showTranslation,
		HasTranslation:  c.lyrics.HasTranslation(),
		ActiveLine:      c.activeLine,
	}
	if c.current >= 0 {
		t := c.tracks[c.current]
		s.Track = &t
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

// Err returns the last error, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ClearError empties the error slot.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
	c.emit(Event{Kind: ErrorChanged, Index: -1})
}

// Close stops playback, waits for cover extraction to finish, releases the cover and closes Updates.
func (c *Controller) Close() error {
	c.cancel()
	err := c.engine.Close()
	c.wg.Wait()
	c.covers.Clear()

	c.evMu.Lock()
	if !c.evClosed {
		c.evClosed = true
		close(c.updates)
	}
	c.evMu.Unlock()
	return err
}

// fail stores err (prefixed when prefix is set) in the error slot and returns it.
func (c *Controller) fail(prefix string, err error) error {
	if prefix != "" {
		err = fmt.Errorf("%s: %w", prefix, err)
	}
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()

	c.logger.Warn("playlist", "error", err, "kind", shared.ErrorKind(err))
	c.emit(Event{Kind: ErrorChanged, Index: -1, Err: err.Error()})
	return err
}

// failIfCurrent reports err unless a newer selection has started since gen.
func (c *Controller) failIfCurrent(gen uint64, prefix string, err error) error {
	c.mu.Lock()
	stale := gen != c.resolveGen
	c.mu.Unlock()
	if stale {
		return nil
	}
	return c.fail(prefix, err)
}

func (c *Controller) idAtLocked(idx int) string {
	if idx < 0 || idx >= len(c.tracks) {
		return ""
	}
	return c.tracks[idx].ID
}

func (c *Controller) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(c.tracks, func(t models.ResolvedTrack) bool { return t.ID == id })
}

func (c *Controller) onTick(t player.Tick) {
	c.mu.Lock()
	c.clock = t
	line := lyric.ActiveIndex(c.lyrics.Select(c.showTranslation), t.Position.Seconds())
	moved := line != c.activeLine
	c.activeLine = line
	c.mu.Unlock()

	c.emit(Event{Kind: ClockTick, Index: -1, Tick: t})
	if moved {
		c.emit(Event{Kind: LyricAdvanced, Index: -1, Line: line})
	}
}

func (c *Controller) onState(s player.State) {
	c.emit(Event{Kind: StateChanged, Index: -1, State: s})
}

// onEnded advances after a track plays out in order or shuffle mode.
func (c *Controller) onEnded() {
	if err := c.Next(c.ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("auto-advance failed", "error", err)
	}
}
