package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/lyrebird/internal/formatter"
	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/playlist"
)

const (
	seekStep    = 0.05
	volumeStep  = 0.05
	lyricRadius = 3
	barWidth    = 40
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlayerView ViewState = iota
	TracksView
	SearchView
)

// Player is the playlist controller surface driven by the TUI.
type Player interface {
	Updates() <-chan playlist.Event
	Snapshot() playlist.Snapshot
	ActiveLyric() ([]lyric.Line, int)
	Tracks() []models.ResolvedTrack
	Play(ctx context.Context, idx int) error
	TogglePlayPause() player.State
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
	SeekToFraction(f float64) (time.Duration, error)
	SetVolume(v float64) float64
	CycleMode() player.Mode
	SetBitrate(ctx context.Context, br models.Bitrate) error
	SetSource(ctx context.Context, src models.Source) error
	ToggleTranslation() bool
	Search(ctx context.Context, keyword string, src models.Source) ([]models.SearchItem, error)
	SelectSearchResult(ctx context.Context, i int) error
	ClearError()
}

var _ Player = (*playlist.Controller)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	player    Player
	view      ViewState
	width     int
	height    int
	snap      playlist.Snapshot
	lines     []lyric.Line
	active    int
	tracks    list.Model
	results   list.Model
	input     textinput.Model
	bar       progress.Model
	searching bool
	err       error
	help      help.Model
	keys      keyMap
}

// NewModel creates a TUI over p. The model is the only reader of p's updates while it runs.
func NewModel(ctx context.Context, p Player) *Model {
	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tracks.Title = "Tracks"
	tracks.SetFilteringEnabled(false)
	tracks.DisableQuitKeybindings()

	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.Title = "Search results"
	results.SetFilteringEnabled(false)
	results.DisableQuitKeybindings()

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "song or artist"

	m := &Model{
		ctx:     ctx,
		player:  p,
		view:    PlayerView,
		tracks:  tracks,
		results: results,
		input:   input,
		bar:     progress.New(progress.WithSolidFill("#7D56F4"), progress.WithoutPercentage(), progress.WithWidth(barWidth)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.refresh()
	m.refreshTracks()
	return m
}

// Run starts the TUI on the alternate screen and blocks until the user quits or ctx ends.
func Run(ctx context.Context, p Player) error {
	if _, err := tea.NewProgram(NewModel(ctx, p), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// Init starts listening for player events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.tracks.SetSize(msg.Width-4, msg.Height-6)
		m.results.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case TracksView:
			return m.handleTrackKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		default:
			return m.handlePlayerKeys(msg)
		}
	}

	if m.view == SearchView && m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlayerEvent:
		e, _ := msg.data.(playlist.Event)
		m.refresh()
		if e.Kind == playlist.ListChanged || e.Kind == playlist.TrackChanged {
			m.refreshTracks()
		}
		return m, m.waitForEvent()

	case MsgUpdatesClosed:
		return m, tea.Quit

	case MsgActionDone:
		if err, ok := msg.data.(error); ok && err != nil {
			m.err = err
		}
		m.refresh()
		return m, nil

	case MsgSearchDone:
		r, _ := msg.data.(searchResult)
		m.searching = false
		if r.err != nil {
			m.err = r.err
			return m, nil
		}
		m.input.Blur()
		return m, m.results.SetItems(resultItems(r.results))
	}
	return m, nil
}

func (m *Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		m.player.TogglePlayPause()
	case key.Matches(msg, m.keys.next):
		return m, m.run(m.player.Next)
	case key.Matches(msg, m.keys.prev):
		return m, m.run(m.player.Prev)
	case key.Matches(msg, m.keys.seekBack):
		m.seek(-seekStep)
	case key.Matches(msg, m.keys.seekForward):
		m.seek(seekStep)
	case key.Matches(msg, m.keys.volumeUp):
		m.player.SetVolume(m.snap.Player.Volume + volumeStep)
	case key.Matches(msg, m.keys.volumeDown):
		m.player.SetVolume(m.snap.Player.Volume - volumeStep)
	case key.Matches(msg, m.keys.mode):
		m.player.CycleMode()
	case key.Matches(msg, m.keys.bitrate):
		br := cycle(models.Bitrates, m.snap.Bitrate)
		return m, m.run(func(ctx context.Context) error { return m.player.SetBitrate(ctx, br) })
	case key.Matches(msg, m.keys.source):
		src := cycle(models.Sources, m.snap.Source)
		return m, m.run(func(ctx context.Context) error { return m.player.SetSource(ctx, src) })
	case key.Matches(msg, m.keys.translation):
		m.player.ToggleTranslation()
	case key.Matches(msg, m.keys.tracks):
		m.view = TracksView
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.clear):
		m.player.ClearError()
		m.err = nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) handleTrackKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.tracks):
		m.view = PlayerView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if len(m.tracks.Items()) == 0 {
			return m, nil
		}
		idx := m.tracks.Index()
		m.view = PlayerView
		return m, m.run(func(ctx context.Context) error { return m.player.Play(ctx, idx) })
	case key.Matches(msg, m.keys.toggle):
		m.player.TogglePlayPause()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

// handleSearchKeys routes keys to the query input while it has focus, otherwise to the result list.
func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		m.input.Blur()
		m.view = PlayerView
		return m, nil
	}

	if m.input.Focused() {
		if key.Matches(msg, m.keys.enter) {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.searching {
				return m, nil
			}
			m.searching = true
			return m, m.search(q)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.enter):
		if len(m.results.Items()) == 0 {
			return m, nil
		}
		idx := m.results.Index()
		m.view = PlayerView
		return m, m.run(func(ctx context.Context) error { return m.player.SelectSearchResult(ctx, idx) })
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) seek(delta float64) {
	if _, err := m.player.SeekToFraction(m.snap.Player.Fraction() + delta); err != nil {
		m.err = err
	}
}

func (m *Model) refresh() {
	m.snap = m.player.Snapshot()
	m.lines, m.active = m.player.ActiveLyric()
}

func (m *Model) refreshTracks() {
	m.tracks.SetItems(trackItems(m.player.Tracks(), m.snap.Index))
}

func (m *Model) waitForEvent() tea.Cmd {
	updates := m.player.Updates()
	return func() tea.Msg {
		e, ok := <-updates
		if !ok {
			return updatesClosedMsg()
		}
		return playerEventMsg(e)
	}
}

// run performs a blocking controller call off the update loop.
func (m *Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg(fn(ctx))
	}
}

func (m *Model) search(q string) tea.Cmd {
	ctx, p := m.ctx, m.player
	return func() tea.Msg {
		results, err := p.Search(ctx, q, "")
		return searchDoneMsg(results, err)
	}
}

// cycle returns the value after cur in values, wrapping around. An unknown cur yields the first value.
func cycle[T comparable](values []T, cur T) T {
	return values[(slices.Index(values, cur)+1)%len(values)]
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case TracksView:
		return fmt.Sprintf("%s\n\n%s", m.tracks.View(), m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.toggle, m.keys.back, m.keys.quit}))
	case SearchView:
		return m.renderSearch()
	default:
		return m.renderPlayer()
	}
}

func (m *Model) renderPlayer() string {
	var b strings.Builder
	s := m.snap

	if s.Track == nil {
		b.WriteString(styles.title.Render("Nothing playing"))
	} else {
		b.WriteString(styles.title.Render(s.Track.Name))
		meta := []string{}
		for _, v := range []string{s.Track.Artist, s.Track.Album} {
			if v != "" {
				meta = append(meta, v)
			}
		}
		if len(meta) > 0 {
			b.WriteString("\n" + strings.Join(meta, " · "))
		}
	}

	state := s.Player.State.String()
	if s.Loading >= 0 {
		state = styles.warn.Render("loading…")
	}
	fmt.Fprintf(&b, "\n\n%s  %s / %s\n%s\n",
		state,
		formatter.FormatTime(s.Player.Position.Seconds()),
		formatter.FormatTime(s.Player.Duration.Seconds()),
		m.bar.ViewAs(s.Player.Fraction()),
	)
	fmt.Fprintf(&b, "%s · %s · %s · vol %d%%",
		s.Source.Label(), s.Bitrate, s.Player.Mode, int(s.Player.Volume*100+0.5))
	if s.ShowTranslation {
		b.WriteString(" · translated")
	}

	if preview := lyric.Preview(m.lines, m.active, lyricRadius); len(preview) > 0 {
		b.WriteString("\n")
		start := max(m.active-lyricRadius, 0)
		for i, l := range preview {
			if start+i == m.active {
				b.WriteString("\n" + styles.active.Render(l.Text))
			} else {
				b.WriteString("\n" + styles.dim.Render(l.Text))
			}
		}
	}

	if msg := m.errorText(); msg != "" {
		b.WriteString("\n\n" + styles.err.Render("Error: "+msg))
	}

	b.WriteString("\n\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Search " + m.snap.Source.Label()))
	b.WriteString("\n" + m.input.View())
	if m.searching {
		b.WriteString("\n" + styles.warn.Render("searching…"))
	}
	if msg := m.errorText(); msg != "" {
		b.WriteString("\n" + styles.err.Render("Error: "+msg))
	}
	if len(m.results.Items()) > 0 {
		b.WriteString("\n\n" + m.results.View())
	}
	b.WriteString("\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.search, m.keys.back}))
	return b.String()
}

func (m *Model) errorText() string {
	if m.err != nil {
		return m.err.Error()
	}
	return m.snap.Error
}
