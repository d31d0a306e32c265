package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/library"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/playlist"
	"github.com/desertthunder/lyrebird/internal/shared"
	"github.com/desertthunder/lyrebird/internal/ui"
)

// Play opens the terminal player over the saved library, optionally with local files and a search.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	if !player.AudioAvailable {
		return fmt.Errorf("%w: this build has no audio output", shared.ErrNotImplemented)
	}

	src, err := r.source(cmd)
	if err != nil {
		return err
	}
	br, err := r.bitrate(cmd)
	if err != nil {
		return err
	}

	fileLogger, err := shared.NewFileLogger(lo.CoalesceOrEmpty(cmd.String("log"), filepath.Join("tmp", "lyrebird-tui.log")))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctrl := r.controller(src, br, cover.NewStore())
	defer ctrl.Close()

	if err := r.loadTracks(ctrl, cmd); err != nil {
		return err
	}

	if query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); query != "" {
		items, err := ctrl.Search(ctx, query, src)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: no results for %q", shared.ErrNotFound, query)
		}
		go func() {
			if err := ctrl.SelectSearchResult(ctx, 0); err != nil {
				r.logger.Warn("failed to play search result", "error", err)
			}
		}()
	}

	return ui.Run(ctx, ctrl)
}

// loadTracks fills ctrl from the saved library and, with --local, the music directory.
func (r *Runner) loadTracks(ctrl *playlist.Controller, cmd *cli.Command) error {
	if !cmd.Bool("no-library") {
		repo, db, err := r.openLibrary()
		if err != nil {
			return err
		}
		saved, err := repo.List(map[string]any{"name": cmd.String("name")})
		db.Close()
		if err != nil {
			return err
		}
		n := ctrl.Add(lo.Map(saved, func(p *models.PersistedStub, _ int) models.ResolvedTrack {
			return p.Stub().Unresolved()
		})...)
		r.logger.Info("loaded library", "tracks", n)
	}

	if cmd.Bool("local") {
		scanner, err := r.scanner(cmd)
		if err != nil {
			return err
		}
		n := ctrl.Add(scanner.Playable()...)
		r.logger.Info("loaded local files", "dir", scanner.Dir(), "tracks", n)
	}
	return nil
}

// scanner scans --dir, falling back to library.music_dir.
func (r *Runner) scanner(cmd *cli.Command) (*library.Scanner, error) {
	dir := lo.CoalesceOrEmpty(cmd.String("dir"), r.config.Library.MusicDir)
	if dir == "" {
		return nil, fmt.Errorf("%w: --dir or library.music_dir", shared.ErrMissingArgument)
	}

	s := library.NewScanner(dir)
	if _, err := s.Rescan(); err != nil {
		return nil, err
	}
	return s, nil
}
