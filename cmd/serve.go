package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/library"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/server"
	"github.com/desertthunder/lyrebird/internal/shared"
	"github.com/desertthunder/lyrebird/internal/web"
)

// Serve runs the HTTP player: control API, event stream, player page, local music and covers.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	src, err := r.source(cmd)
	if err != nil {
		return err
	}
	br, err := r.bitrate(cmd)
	if err != nil {
		return err
	}

	addr := r.config.Server.Addr()
	if host, port := cmd.String("host"), int(cmd.Int("port")); host != "" || port != 0 {
		h, p, _ := net.SplitHostPort(addr)
		if host != "" {
			h = host
		}
		if port != 0 {
			p = strconv.Itoa(port)
		}
		addr = net.JoinHostPort(h, p)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	covers := cover.NewStore()
	ctrl := r.controller(src, br, covers)
	defer ctrl.Close()

	if err := r.loadTracks(ctrl, cmd); err != nil {
		return err
	}

	var scanner *library.Scanner
	if r.config.Library.MusicDir != "" || cmd.String("dir") != "" {
		switch scanner, err = r.scanner(cmd); {
		case err != nil && cmd.String("dir") != "":
			return err
		case err != nil:
			r.logger.Warn("music directory unavailable, not serving local files", "dir", r.config.Library.MusicDir, "error", err)
			scanner = nil
		case r.config.Library.Watch || cmd.Bool("watch"):
			r.watch(ctx, scanner, ctrl.Add)
		}
	}

	hub := web.NewHub(shared.WithLogger(r.logger, "component", "hub"))
	go hub.Run(ctx, ctrl.Updates())

	router := server.NewRouter(server.Deps{
		Controller: ctrl,
		Scanner:    scanner,
		Covers:     covers,
		Hub:        hub,
		Logger:     shared.WithLogger(r.logger, "component", "http"),
	})

	r.logger.Debug("routes registered", "patterns", router.Patterns())

	srv := server.New(addr, router, r.logger)
	if cmd.Bool("open") {
		go func() {
			time.Sleep(250 * time.Millisecond)
			if err := shared.OpenTarget("http://" + addr + "/"); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}()
	}

	r.writePlain("Serving on http://%s/ (%d tracks)\n", addr, len(ctrl.Tracks()))
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return nil
}

// watch rescans the music directory on change and appends new files to the list.
func (r *Runner) watch(ctx context.Context, s *library.Scanner, add func(...models.ResolvedTrack) int) {
	w := library.NewWatcher(s, library.DefaultDebounce, func([]models.LocalTrack) {
		if n := add(s.Playable()...); n > 0 {
			r.logger.Info("picked up new local files", "count", n)
		}
	}, shared.WithLogger(r.logger, "component", "watcher"))

	go func() {
		if err := w.Run(ctx); err != nil {
			r.logger.Warn("library watcher stopped", "error", err)
		}
	}()
}
