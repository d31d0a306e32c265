package main

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lyrebird/internal/cover"
	"github.com/desertthunder/lyrebird/internal/models"
	"github.com/desertthunder/lyrebird/internal/player"
	"github.com/desertthunder/lyrebird/internal/playlist"
	"github.com/desertthunder/lyrebird/internal/repositories"
	"github.com/desertthunder/lyrebird/internal/resolver"
	"github.com/desertthunder/lyrebird/internal/services"
	"github.com/desertthunder/lyrebird/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	api        *services.APIService
	httpClient *http.Client
	opener     player.Opener
	copy       func(string) error
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	API        *services.APIService
	HTTPClient *http.Client
	Opener     player.Opener
	Clipboard  func(string) error
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewCatalogService(opts.Config.Catalog,
			services.WithLogger(shared.WithLogger(opts.Logger, "component", "catalog")))
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.Catalog.BaseURL, opts.HTTPClient)
	}
	if opts.Opener == nil {
		opts.Opener = player.NewBeepOpener(opts.HTTPClient, shared.WithLogger(opts.Logger, "component", "audio"))
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		opener:     opts.Opener,
		copy:       opts.Clipboard,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, searchCommand, resolveCommand, lyricsCommand, coverCommand, libraryCommand,
		playCommand, serveCommand, shareCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) resolver() *resolver.Resolver {
	return resolver.New(r.catalog, r.config.Catalog.SearchCount, r.config.Catalog.CoverSize,
		shared.WithLogger(r.logger, "component", "resolver"))
}

// controller builds a playlist controller from the [player] and [catalog] config sections. Extracted
// covers land in covers.
func (r *Runner) controller(src models.Source, br models.Bitrate, covers *cover.Store) *playlist.Controller {
	mode, err := player.ParseMode(r.config.Player.Mode)
	if err != nil {
		r.logger.Warn("ignoring configured mode", "error", err)
		mode = player.Order
	}
	volume := r.config.Player.Volume

	return playlist.New(playlist.Options{
		Resolver:     r.resolver(),
		Extractor:    cover.NewExtractor(nil, covers, shared.WithLogger(r.logger, "component", "cover")),
		Opener:       r.opener,
		Source:       src,
		Bitrate:      br,
		SearchCount:  r.config.Catalog.SearchCount,
		Volume:       &volume,
		Mode:         mode,
		TickInterval: r.config.Player.TickInterval(),
		Logger:       shared.WithLogger(r.logger, "component", "playlist"),
	})
}

// openLibrary opens the saved library, running migrations first.
func (r *Runner) openLibrary() (*repositories.StubRepository, *sql.DB, error) {
	db, err := shared.OpenLibrary(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return repositories.NewStubRepository(db), db, nil
}

// source reads --source, falling back to the configured default.
func (r *Runner) source(cmd *cli.Command) (models.Source, error) {
	raw := cmd.String("source")
	if raw == "" {
		raw = r.config.Catalog.Source
	}
	src, err := models.ParseSource(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	return src, nil
}

// bitrate reads --bitrate, falling back to the configured default.
func (r *Runner) bitrate(cmd *cli.Command) (models.Bitrate, error) {
	n := int(cmd.Int("bitrate"))
	if n == 0 {
		n = r.config.Catalog.Bitrate
	}
	br := models.Bitrate(n)
	if n == 0 {
		br = models.DefaultBitrate
	}
	if !br.Valid() {
		return 0, fmt.Errorf("%w: unsupported bitrate %d", shared.ErrInvalidArgument, n)
	}
	return br, nil
}

// stub builds a track stub from the --name/--artist/--album/--id flags.
func (r *Runner) stub(cmd *cli.Command) (models.TrackStub, error) {
	src, err := r.source(cmd)
	if err != nil {
		return models.TrackStub{}, err
	}

	stub := models.TrackStub{
		Name:    strings.TrimSpace(cmd.String("name")),
		Artist:  strings.TrimSpace(cmd.String("artist")),
		Album:   strings.TrimSpace(cmd.String("album")),
		Source:  src,
		TrackID: strings.TrimSpace(cmd.String("id")),
		PicID:   strings.TrimSpace(cmd.String("pic")),
		LyricID: strings.TrimSpace(cmd.String("lyric")),
	}
	if stub.Name == "" && stub.TrackID == "" {
		return models.TrackStub{}, fmt.Errorf("%w: --name or --id", shared.ErrMissingArgument)
	}
	if stub.TrackID != "" {
		stub.ID = fmt.Sprintf("%s-%s", src, stub.TrackID)
		if stub.LyricID == "" {
			stub.LyricID = stub.TrackID
		}
	} else {
		stub.ID = shared.GenerateID()
	}
	return stub, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
