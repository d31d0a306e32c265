// Package ui implements an interactive terminal player using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [PlayerView] : Now playing, progress, quality and the lyric lines around the active one
//  2. [TracksView] : The track list; enter plays the selected track
//  3. [SearchView] : Catalog search on the current source; enter plays the selected result
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Controller events flow in through [playlist.Controller.Updates]; blocking calls (resolution, search) run as commands
// and report back with a message.
//
// Keyboard navigation uses single-key bindings (space, n/p, h/l, +/-, m, b, s, t) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
