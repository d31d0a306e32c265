package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/lyrebird/internal/models"
)

var (
	_ list.Item = trackItem{}
	_ list.Item = resultItem{}
)

// trackItem wraps [models.ResolvedTrack] to implement [list.Item].
type trackItem struct {
	track   models.ResolvedTrack
	current bool
}

func (i trackItem) FilterValue() string { return i.track.Name + " " + i.track.Artist }
func (i trackItem) Title() string {
	if i.current {
		return "▶ " + i.track.Name
	}
	return i.track.Name
}
func (i trackItem) Description() string {
	parts := []string{}
	for _, p := range []string{i.track.Artist, i.track.Album, i.track.Source.Label()} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "local file"
	}
	return strings.Join(parts, " • ")
}

// resultItem wraps [models.SearchItem] to implement [list.Item].
type resultItem struct {
	item models.SearchItem
}

func (i resultItem) FilterValue() string { return i.item.Name }
func (i resultItem) Title() string       { return i.item.Name }
func (i resultItem) Description() string {
	desc := i.item.Artist.Joined()
	if i.item.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Album)
	}
	return desc
}

func trackItems(tracks []models.ResolvedTrack, current int) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t, current: i == current}
	}
	return items
}

func resultItems(results []models.SearchItem) []list.Item {
	items := make([]list.Item, len(results))
	for i, r := range results {
		items[i] = resultItem{item: r}
	}
	return items
}
