package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/relay"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	player     relay.Player
	spotify    []services.SpotifyOption
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
	openURL    func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Player replaces the Spotify client built from the token file.
	Player relay.Player
	// SpotifyOptions are passed to every Spotify client the runner builds.
	SpotifyOptions []services.SpotifyOption
	HTTPClient     *http.Client
	Logger         *log.Logger
	Output         io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		player:     opts.Player,
		spotify:    opts.SpotifyOptions,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        time.Now,
		openURL:    shared.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, relayCommand, watchCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it constructs.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// before loads the configuration named by --config and applies --verbose.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	r.configPath = cmd.String("config")
	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if err := r.config.ApplyEnv(nil); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// newSpotify builds a Spotify client from the configured credentials.
func (r *Runner) newSpotify() (*services.SpotifyService, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	spotify := r.config.Credentials.Spotify
	return services.NewSpotifyService(map[string]string{
		"client_id":     spotify.ClientID,
		"client_secret": spotify.ClientSecret,
		"redirect_uri":  r.config.Redirect.URI(),
	}, append([]services.SpotifyOption{services.WithHTTPClient(r.httpClient)}, r.spotify...)...)
}

// authenticatedPlayer returns the injected player or a Spotify client authenticated
// with the saved token. Refreshed tokens are written back to the token file.
func (r *Runner) authenticatedPlayer(ctx context.Context) (relay.Player, error) {
	if r.player != nil {
		return r.player, nil
	}

	path := r.config.Token.ResolvedPath()
	token, err := shared.LoadToken(path)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'nowplaying auth login' first)", err)
	}

	spotify, err := r.newSpotify()
	if err != nil {
		return nil, err
	}

	spotify.SetTokenRefreshCallback(func(t *oauth2.Token) {
		if err := shared.SaveToken(path, shared.NewAccessToken(t, r.now())); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
			return
		}
		r.logger.Debug("refreshed token saved", "path", path)
	})

	if err := spotify.Authenticate(ctx, token.OAuth2()); err != nil {
		return nil, err
	}
	return spotify, nil
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

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
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
