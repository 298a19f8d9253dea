package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dlbot/internal/library"
	"github.com/desertthunder/dlbot/internal/media"
	"github.com/desertthunder/dlbot/internal/services"
	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	envPath    string
	extractor  media.Extractor
	catalog    services.MusicCatalog
	db         *sql.DB
	ffmpeg     func() bool
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, Extractor, Catalog and DB are built from the config file when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	EnvPath    string
	Extractor  media.Extractor
	Catalog    services.MusicCatalog
	DB         *sql.DB
	FFmpeg     func() bool
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.EnvPath == "" {
		opts.EnvPath = ".env"
	}
	if opts.FFmpeg == nil {
		opts.FFmpeg = media.FFmpegAvailable
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		envPath:    opts.EnvPath,
		extractor:  opts.Extractor,
		catalog:    opts.Catalog,
		db:         opts.DB,
		ffmpeg:     opts.FFmpeg,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, checkCommand, setupCommand, historyCommand, watchCommand, classifyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration once: the TOML file (or defaults), then .env and the environment.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := r.pathFor(cmd)
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := shared.LoadEnv(r.envPath); err != nil {
		r.logger.Warn("failed to load .env", "err", err)
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	r.config = config
	return config, nil
}

// pathFor returns the --config value when given, otherwise the runner's default path.
func (r *Runner) pathFor(cmd *cli.Command) string {
	if cmd.IsSet("config") {
		return cmd.String("config")
	}
	return r.configPath
}

// resolver returns the folder layout of config.
func resolver(config *shared.Config) library.Resolver {
	return library.Resolver{
		Base:     config.Downloads.BaseDir,
		AudioDir: config.Downloads.AudioDir,
		VideoDir: config.Downloads.VideoDir,
	}
}

func (r *Runner) openDB(config *shared.Config) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) closeDB() {
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "err", err)
		}
		r.db = nil
	}
}

func (r *Runner) getExtractor() media.Extractor {
	if r.extractor == nil {
		r.extractor = media.NewYtdlp(r.logger)
	}
	return r.extractor
}

// getCatalog returns the music catalog, or nil when no Spotify credentials are configured.
func (r *Runner) getCatalog(config *shared.Config) (services.MusicCatalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	if !config.Spotify.Configured() {
		return nil, nil
	}
	svc, err := services.NewSpotifyService(services.SpotifyOpts{
		ClientID:     config.Spotify.ClientID,
		ClientSecret: config.Spotify.ClientSecret,
		RateLimit:    config.Spotify.RateLimit,
	})
	if err != nil {
		return nil, err
	}
	r.catalog = svc
	return svc, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

// exitCode maps a bot stop reason to the process exit status.
func exitCode(err error) error {
	switch {
	case err == nil, errors.Is(err, shared.ErrShutdownRequested):
		return nil
	case errors.Is(err, shared.ErrRestartRequested):
		return cli.Exit("restart requested", shared.ExitRestart)
	default:
		return err
	}
}
