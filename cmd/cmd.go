// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/tasks"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func sourceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "source",
		Aliases: []string{"s"},
		Usage:   "Catalog backend (netease, kuwo, joox); defaults to catalog.source",
	}
}

func bitrateFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "bitrate",
		Aliases: []string{"b"},
		Usage:   "Requested quality in kbps (128, 192, 320, 740, 999); defaults to catalog.bitrate",
	}
}

// trackFlags describe a single track for resolution.
func trackFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Track title"},
		&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist name(s)"},
		&cli.StringFlag{Name: "album", Usage: "Album name"},
		&cli.StringFlag{Name: "id", Usage: "Catalog track id; skips the search"},
		&cli.StringFlag{Name: "pic", Usage: "Catalog picture id"},
		&cli.StringFlag{Name: "lyric", Usage: "Catalog lyric id (defaults to --id)"},
		sourceFlag(),
		bitrateFlag(),
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Only tracks from this backend"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Only tracks whose name or artist contains this"},
	}
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Music directory; defaults to library.music_dir or $MUSIC_DIR",
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the library database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog",
		ArgsUsage: "<keyword...>",
		Flags: append([]cli.Flag{
			sourceFlag(),
			&cli.IntFlag{Name: "count", Usage: "Results per page; defaults to catalog.search_count"},
			&cli.IntFlag{Name: "page", Usage: "Result page (1-based)", Value: 1},
		}, outputFlags()...),
		Action: r.Search,
	}
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "resolve",
		Usage:  "Resolve a track to a stream URL, cover and lyric",
		Flags:  append(trackFlags(), outputFlags()...),
		Action: r.Resolve,
	}
}

func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Print a track's synced lyric",
		Flags: append(append(trackFlags(),
			&cli.BoolFlag{Name: "translation", Aliases: []string{"t"}, Usage: "Prefer the translated lyric"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write an .lrc file instead of printing"},
		), outputFlags()...),
		Action: r.Lyrics,
	}
}

func coverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cover",
		Usage: "Save a track's cover, from the catalog or the audio's embedded tag",
		Flags: append(trackFlags(),
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Extract the embedded cover of a local audio file"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Extract the embedded cover of a remote audio file"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Image path; the extension follows the image type by default"},
			&cli.BoolFlag{Name: "open", Usage: "Open the saved image"},
		),
		Action: r.Cover,
	}
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage saved tracks and local files",
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "List playable files in the music directory",
				Flags:  append([]cli.Flag{dirFlag()}, outputFlags()...),
				Action: r.LibraryScan,
			},
			{
				Name:  "add",
				Usage: "Save tracks from a JSON file or flags",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "JSON array (or object) of tracks"},
				}, trackFlags()...),
				Action: r.LibraryAdd,
			},
			{
				Name:   "list",
				Usage:  "List saved tracks",
				Flags:  append(filterFlags(), outputFlags()...),
				Action: r.LibraryList,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove saved tracks",
				ArgsUsage: "<id...>",
				Action:    r.LibraryRemove,
			},
			{
				Name:  "export",
				Usage: "Export saved tracks",
				Flags: append(filterFlags(),
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv, markdown, txt or json", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output path (directory for markdown)"},
					&cli.StringFlag{Name: "title", Usage: "Export heading", Value: "Library"},
					&cli.BoolFlag{Name: "cover", Usage: "Markdown: include the first track's cover"},
					bitrateFlag(),
				),
				Action: r.LibraryExport,
			},
			{
				Name:  "check",
				Usage: "Resolve every saved track and report which are playable",
				Flags: append(append(filterFlags(),
					bitrateFlag(),
					&cli.IntFlag{Name: "workers", Usage: "Concurrent resolutions", Value: tasks.DefaultWorkers},
					&cli.FloatFlag{Name: "rate", Usage: "Resolutions started per second", Value: tasks.DefaultRate},
				), outputFlags()...),
				Action: r.LibraryCheck,
			},
		},
	}
}

func playerFlags() []cli.Flag {
	return []cli.Flag{
		sourceFlag(),
		bitrateFlag(),
		dirFlag(),
		&cli.BoolFlag{Name: "local", Aliases: []string{"l"}, Usage: "Add files from the music directory"},
		&cli.BoolFlag{Name: "no-library", Usage: "Skip the saved library"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Only saved tracks whose name or artist contains this"},
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Open the terminal player",
		ArgsUsage: "[query]",
		Flags: append(playerFlags(),
			&cli.StringFlag{Name: "log", Usage: "Log file while the player owns the terminal", Value: "tmp/lyrebird-tui.log"},
		),
		Action: r.Play,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web player and control API",
		Flags: append(playerFlags(),
			&cli.StringFlag{Name: "host", Usage: "Listen host; defaults to server.host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port; defaults to server.port"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Pick up new files in the music directory"},
			&cli.BoolFlag{Name: "open", Usage: "Open the player in a browser"},
		),
		Action: r.Serve,
	}
}

func shareCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "share",
		Usage: "Print a share link for a track",
		Flags: append(trackFlags(),
			&cli.StringFlag{Name: "origin", Usage: "Player origin; defaults to http://server.host:server.port"},
			&cli.BoolFlag{Name: "embed", Usage: "Print an iframe snippet"},
			&cli.BoolFlag{Name: "copy", Usage: "Copy to the clipboard"},
		),
		Action: r.Share,
	}
}

// apiCommand handles raw catalog API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the catalog API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET to the catalog API, prints the response",
				ArgsUsage: "<key=value...>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "raw", Usage: "Print the body verbatim"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.APIGet,
			},
		},
	}
}
