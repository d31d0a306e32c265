package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/playlist"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlayerEvent MsgKind = iota
	MsgUpdatesClosed
	MsgActionDone
	MsgSearchDone
)

// playerEventMsg is the constructor for [MsgPlayerEvent]
func playerEventMsg(e playlist.Event) Msg {
	return Msg{kind: MsgPlayerEvent, data: e}
}

// updatesClosedMsg is the constructor for [MsgUpdatesClosed]
func updatesClosedMsg() Msg {
	return Msg{kind: MsgUpdatesClosed}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(err error) Msg {
	return Msg{kind: MsgActionDone, data: err}
}

type searchResult struct {
	results []models.SearchItem
	err     error
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(results []models.SearchItem, err error) Msg {
	return Msg{kind: MsgSearchDone, data: searchResult{results, err}}
}
