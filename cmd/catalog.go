package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/formatter"
	"github.com/desertthunder/lyrebird/internal/lyric"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// Search queries the catalog and prints the candidates.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	keyword := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if keyword == "" {
		return fmt.Errorf("%w: search keyword", shared.ErrMissingArgument)
	}

	src, err := r.source(cmd)
	if err != nil {
		return err
	}

	count := int(cmd.Int("count"))
	if count <= 0 {
		count = r.config.Catalog.SearchCount
	}
	page := max(int(cmd.Int("page")), 1)

	r.logger.Debug("searching catalog", "keyword", keyword, "source", src, "count", count, "page", page)

	items, err := r.catalog.Search(ctx, src, keyword, count, page)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s: %q (page %d)", src.Label(), keyword, page))
	if len(items) == 0 {
		r.writePlain("No results\n")
		return nil
	}
	for i, item := range items {
		r.writePlain("%2d. %s", i+1, item.Name)
		if artist := item.Artist.Joined(); artist != "" {
			r.writePlain(" - %s", artist)
		}
		if item.Album != "" {
			r.writePlain(" [%s]", item.Album)
		}
		r.writePlain("  (id: %s)\n", item.ID)
	}
	return nil
}

// Resolve turns a track description into a playable stream URL with cover and lyric.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	track, err := r.resolveFlags(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	r.writePlainHeader(track.Title())
	r.writePlain("Source:  %s\n", track.Source.Label())
	r.writePlain("Track:   %s\n", track.TrackID)
	r.writePlain("Bitrate: %s\n", track.Bitrate)
	if track.FileSizeKB > 0 {
		r.writePlain("Size:    %.1f MB\n", float64(track.FileSizeKB)/1024)
	}
	r.writePlain("Stream:  %s\n", track.URL)
	if track.Cover != "" {
		r.writePlain("Cover:   %s\n", track.Cover)
	}
	lyrics := lyric.ParseAll(track.Lyric, track.TLyric)
	r.writePlain("Lyrics:  %d lines", len(lyrics.Original))
	if lyrics.HasTranslation() {
		r.writePlain(" (+%d translated)", len(lyrics.Translation))
	}
	r.writePlain("\n")
	return nil
}

// Lyrics prints the synced lyric of a track, or writes it to an .lrc file.
func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	track, err := r.resolveFlags(ctx, cmd)
	if err != nil {
		return err
	}

	lyrics := lyric.ParseAll(track.Lyric, track.TLyric)
	showTranslation := cmd.Bool("translation")
	if showTranslation && !lyrics.HasTranslation() {
		r.logger.Warn("no translation available", "track", track.Title())
	}
	lines := lyrics.Select(showTranslation)
	if len(lines) == 0 {
		return fmt.Errorf("%w: no lyric for %s", shared.ErrNotFound, track.Title())
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteLRC(lines, path); err != nil {
			return err
		}
		r.writePlain("✓ Wrote %d lines to %s\n", len(lines), path)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(lines, cmd.Bool("pretty"))
	}

	r.writePlainHeader(track.Title())
	for _, line := range lines {
		if line.Timed() {
			r.writePlain("[%s] %s\n", formatter.FormatTime(line.Time), line.Text)
		} else {
			r.writePlain("        %s\n", line.Text)
		}
	}
	return nil
}

// Cover saves a track's cover image.
//
// With --file or --url the picture embedded in the audio's ID3 tag is extracted; otherwise the track is
// resolved and its catalog cover downloaded.
func (r *Runner) Cover(ctx context.Context, cmd *cli.Command) error {
	var (
		data []byte
		mime string
		name string
	)

	if src := lo.CoalesceOrEmpty(cmd.String("file"), cmd.String("url")); src != "" {
		extractor := cover.NewExtractor(r.httpClient, cover.NewStore(), shared.WithLogger(r.logger, "component", "cover"))
		h := extractor.Extract(ctx, src)
		if h == nil {
			return fmt.Errorf("%w: no embedded cover in %s", shared.ErrNotFound, src)
		}
		defer h.Release()

		data, mime = h.Bytes(), h.MIME()
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		r.logger.Debug("extracted embedded cover", "kind", h.Kind(), "mime", mime, "bytes", len(data))
	} else {
		track, err := r.resolveFlags(ctx, cmd)
		if err != nil {
			return err
		}
		if track.Cover == "" {
			return fmt.Errorf("%w: no cover for %s", shared.ErrNotFound, track.Title())
		}
		if data, mime, err = formatter.DownloadImage(ctx, r.httpClient, track.Cover); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}
		name = track.ID
	}

	path := cmd.String("output")
	if path == "" {
		path = name + formatter.ImageExtension(mime)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cover: %w", err)
	}
	r.writePlain("✓ Saved cover (%s, %d bytes) to %s\n", mime, len(data), path)

	if cmd.Bool("open") {
		if err := shared.OpenTarget(path); err != nil {
			r.logger.Warn("failed to open cover", "error", err)
		}
	}
	return nil
}

// resolveFlags builds a stub from the track flags and resolves it at --bitrate.
func (r *Runner) resolveFlags(ctx context.Context, cmd *cli.Command) (models.ResolvedTrack, error) {
	stub, err := r.stub(cmd)
	if err != nil {
		return models.ResolvedTrack{}, err
	}
	br, err := r.bitrate(cmd)
	if err != nil {
		return models.ResolvedTrack{}, err
	}

	r.logger.Debug("resolving track", "track", stub.Title(), "source", stub.Source, "bitrate", br)

	track, err := r.resolver().Resolve(ctx, stub.Unresolved(), br)
	if err != nil {
		return models.ResolvedTrack{}, fmt.Errorf("failed to resolve %s: %w", stub.Title(), err)
	}
	return track, nil
}
