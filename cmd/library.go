package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/library"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/shared"
	"github.com/desertthunder/lyrebird/internal/tasks"
)

// LibraryScan lists the playable files in the music directory.
func (r *Runner) LibraryScan(ctx context.Context, cmd *cli.Command) error {
	dir := lo.CoalesceOrEmpty(cmd.String("dir"), r.config.Library.MusicDir)
	if dir == "" {
		return fmt.Errorf("%w: --dir or library.music_dir", shared.ErrMissingArgument)
	}

	tracks, err := library.Scan(dir)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d files)", dir, len(tracks)))
	for _, t := range tracks {
		r.writePlain("%3d. %-40s %s\n", t.ID, t.Name, t.URL)
	}
	return nil
}

// LibraryAdd saves tracks from a JSON seed file, or a single track described by flags.
func (r *Runner) LibraryAdd(ctx context.Context, cmd *cli.Command) error {
	var stubs []models.TrackStub
	if path := cmd.String("file"); path != "" {
		src, err := r.source(cmd)
		if err != nil {
			return err
		}
		if stubs, err = readSeeds(path, src); err != nil {
			return err
		}
	} else {
		stub, err := r.stub(cmd)
		if err != nil {
			return err
		}
		stubs = append(stubs, stub)
	}

	repo, db, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()

	added, skipped := 0, 0
	for _, stub := range stubs {
		saved, created, err := repo.Save(stub)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", stub.Title(), err)
		}
		if created {
			added++
			r.logger.Debug("saved track", "id", saved.ID(), "track", stub.Title())
		} else {
			skipped++
			r.logger.Debug("track already saved", "id", saved.ID(), "track", stub.Title())
		}
	}

	r.writePlain("✓ Added %d tracks", added)
	if skipped > 0 {
		r.writePlain(" (%d already saved)", skipped)
	}
	r.writePlain("\n")
	return nil
}

// readSeeds decodes a JSON array of seed tracks, or a single seed object.
func readSeeds(path string, def models.Source) ([]models.TrackStub, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var seeds []models.SeedTrack
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") {
		var one models.SeedTrack
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		seeds = append(seeds, one)
	} else if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	stubs := lo.Map(seeds, func(s models.SeedTrack, _ int) models.TrackStub { return s.Stub(def) })
	for i, s := range stubs {
		if s.Name == "" && s.TrackID == "" {
			return nil, fmt.Errorf("%w: entry %d has neither name nor track id", shared.ErrInvalidInput, i)
		}
		if !s.Source.Valid() {
			return nil, fmt.Errorf("%w: entry %d has unknown source %q", shared.ErrInvalidInput, i, s.Source)
		}
	}
	return stubs, nil
}

// LibraryList prints saved tracks, optionally filtered by --source and --name.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := repo.List(criteria(cmd))
	if err != nil {
		return err
	}
	stubs := lo.Map(saved, func(p *models.PersistedStub, _ int) models.TrackStub { return p.Stub() })

	if cmd.Bool("json") {
		return r.writeJSON(stubs, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Library (%d tracks)", len(stubs)))
	for i, s := range stubs {
		r.writePlain("%3d. %-40s %-8s %s\n", i+1, s.Title(), s.Source, s.ID)
	}
	return nil
}

// LibraryRemove soft-deletes saved tracks by id.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	repo, db, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range ids {
		if err := repo.Delete(id); err != nil {
			return fmt.Errorf("%w: %s: %v", shared.ErrNotFound, id, err)
		}
		r.writePlain("✓ Removed %s\n", id)
	}
	return nil
}

// LibraryExport writes the saved library as csv, markdown, txt or json.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	br, err := r.bitrate(cmd)
	if err != nil {
		return err
	}

	repo, db, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewLibraryEngine(r.resolver(), repo, r.httpClient, shared.WithLogger(r.logger, "component", "tasks"))

	progressCh, done := r.printProgress()
	result, err := engine.Export(ctx, progressCh, tasks.ExportOpts{
		Format:    cmd.String("format"),
		Path:      cmd.String("output"),
		Title:     cmd.String("title"),
		Criteria:  criteria(cmd),
		WithCover: cmd.Bool("cover"),
		Bitrate:   br,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n✓ Exported %d tracks as %s\n", result.Count, result.Format)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// LibraryCheck resolves every saved track and reports which are currently playable.
func (r *Runner) LibraryCheck(ctx context.Context, cmd *cli.Command) error {
	br, err := r.bitrate(cmd)
	if err != nil {
		return err
	}

	repo, db, err := r.openLibrary()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewLibraryEngine(r.resolver(), repo, r.httpClient, shared.WithLogger(r.logger, "component", "tasks"))

	var (
		progressCh chan tasks.ProgressUpdate
		done       <-chan struct{}
	)
	if !cmd.Bool("json") {
		progressCh, done = r.printProgress()
	}

	result, err := engine.Check(ctx, progressCh, criteria(cmd), tasks.BulkResolveOpts{
		Bitrate:    br,
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	if progressCh != nil {
		close(progressCh)
		<-done
	}

	if err != nil && result == nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Library Check")
	r.writePlain("Playable: %d/%d (%.1f%%)\n", result.Resolved, result.Total, result.Percentage())

	if result.Failed > 0 {
		r.writePlain("\nFailed to resolve %d tracks:\n", result.Failed)
		for _, res := range result.Results {
			if !res.OK() {
				r.writePlain("  - %s (%s)\n", res.Stub.Title(), lo.CoalesceOrEmpty(shared.ErrorKind(res.Error), "not_found"))
			}
		}
		failures := result.Failures()
		kinds := lo.Keys(failures)
		slices.Sort(kinds)
		r.writePlain("\nBy reason:\n")
		for _, k := range kinds {
			r.writePlain("  %-14s %d\n", k, failures[k])
		}
	}
	return err
}

// printProgress starts a goroutine printing updates until the returned channel is closed; done closes once it has drained.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoadLibrary:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ResolveTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
				}
			case tasks.ExportLibrary:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()
	return progressCh, done
}

// criteria maps the --source and --name filters to repository criteria.
func criteria(cmd *cli.Command) map[string]any {
	c := map[string]any{}
	if src := cmd.String("source"); src != "" {
		c["source"] = src
	}
	if name := cmd.String("name"); name != "" {
		c["name"] = name
	}
	return c
}
