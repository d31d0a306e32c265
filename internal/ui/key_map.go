package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle      key.Binding
	next        key.Binding
	prev        key.Binding
	seekBack    key.Binding
	seekForward key.Binding
	volumeUp    key.Binding
	volumeDown  key.Binding
	mode        key.Binding
	bitrate     key.Binding
	source      key.Binding
	translation key.Binding
	tracks      key.Binding
	search      key.Binding
	enter       key.Binding
	back        key.Binding
	clear       key.Binding
	quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		next:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		seekBack:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "rewind")),
		seekForward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "forward")),
		volumeUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		volumeDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "quieter")),
		mode:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		bitrate:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bitrate")),
		source:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "source")),
		translation: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "translation")),
		tracks:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "tracks")),
		search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		clear:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.prev, k.tracks, k.search, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.prev, k.seekBack, k.seekForward},
		{k.volumeUp, k.volumeDown, k.mode, k.bitrate, k.source, k.translation},
		{k.tracks, k.search, k.enter, k.back, k.clear, k.quit},
	}
}
