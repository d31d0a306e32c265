// Package playlist ties track resolution, playback, lyrics and cover art together.
//
// A [Controller] owns the ordered track list and the single [player.Engine]. Selecting a track resolves it
// through the catalog, loads the stream, reparses its lyrics and, when the catalog has no cover URL,
// extracts the embedded picture in the background. Progress and state changes are published on
// [Controller.Updates] for the terminal UI and the HTTP control API.
package playlist
