package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
	"golang.org/x/oauth2"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// writeConfig saves a config rooted in a temp dir and returns its path.
func writeConfig(t *testing.T, mutate func(*shared.Config)) (string, *shared.Config) {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.ClientSecret = "client-secret"
	config.Database.Path = filepath.Join(dir, "nowplaying.db")
	config.Token.Path = filepath.Join(dir, "token.json")
	if mutate != nil {
		mutate(config)
	}

	path := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(path, config); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	return path, config
}

// run executes the root command with args after the program name.
func run(ctx context.Context, r *Runner, args ...string) error {
	return r.app().Run(ctx, append([]string{"nowplaying"}, args...))
}

// newSpotifyAPI fakes the token endpoint and the profile endpoint.
func newSpotifyAPI(t *testing.T) (*httptest.Server, []services.SpotifyOption) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "auth-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"new-access","token_type":"Bearer","expires_in":3600,"refresh_token":"new-refresh"}`)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"u1","display_name":"Tester","product":"premium"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, []services.SpotifyOption{
		services.WithEndpoint(srv.URL+"/authorize", srv.URL+"/api/token"),
		services.WithBaseURL(srv.URL),
		services.WithRateLimit(nil),
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func saveToken(t *testing.T, path string, expiry time.Time) {
	t.Helper()
	token := &oauth2.Token{
		AccessToken:  "saved-access",
		TokenType:    "Bearer",
		RefreshToken: "saved-refresh",
		ExpiresIn:    3600,
		Expiry:       expiry,
	}
	if err := shared.SaveToken(path, shared.NewAccessToken(token, time.Now())); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			player := tu.NewMockPlayer()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Player:     player,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.player != player {
				t.Error("expected player to be set")
			}
		})

		t.Run("with zero options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected config.toml, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done")
			if output.String() != "\ndone\n" {
				t.Errorf("expected surrounding newlines, got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("before", func(t *testing.T) {
		t.Run("loads config from flag", func(t *testing.T) {
			path, _ := writeConfig(t, func(c *shared.Config) { c.Relay.InboxCapacity = 7 })
			runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})

			if err := run(context.Background(), runner, "--config", path, "auth", "url"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.config.Relay.InboxCapacity != 7 {
				t.Errorf("expected config from %s, got capacity %d", path, runner.config.Relay.InboxCapacity)
			}
			if runner.configPath != path {
				t.Errorf("expected config path %s, got %s", path, runner.configPath)
			}
		})

		t.Run("invalid config fails", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			os.WriteFile(path, []byte("[relay]\ninterval = \"soon\"\n"), 0600)
			runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})

			if err := run(context.Background(), runner, "--config", path, "auth", "url"); err == nil {
				t.Error("expected error for invalid duration")
			}
		})

		t.Run("verbose enables debug logging", func(t *testing.T) {
			path, _ := writeConfig(t, nil)
			logger := quietLogger()
			runner := NewRunner(RunnerOpts{Logger: logger, Output: &bytes.Buffer{}})

			run(context.Background(), runner, "--config", path, "--verbose", "auth", "url")
			if logger.GetLevel() != log.DebugLevel {
				t.Errorf("expected debug level, got %v", logger.GetLevel())
			}
		})
	})
}

func TestSetup(t *testing.T) {
	t.Run("config writes template once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output})

		if err := run(context.Background(), runner, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "[credentials.spotify]") {
			t.Errorf("expected spotify credentials section, got %q", content)
		}
		if !strings.Contains(output.String(), "http://localhost:3939/redirect") {
			t.Errorf("expected redirect URI in next steps, got %q", output.String())
		}

		runner = NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})
		if err := run(context.Background(), runner, "--config", path, "setup", "config"); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database migrates and rolls back", func(t *testing.T) {
		path, config := writeConfig(t, nil)
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})

		if err := run(context.Background(), runner, "--config", path, "setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, config.Database.Path)

		runner = NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})
		if err := run(context.Background(), runner, "--config", path, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("unexpected rollback error: %v", err)
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("url", func(t *testing.T) {
		path, _ := writeConfig(t, func(c *shared.Config) { c.Redirect.Port = 4040 })
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output})

		if err := run(context.Background(), runner, "--config", path, "auth", "url"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		u, err := url.Parse(strings.TrimSpace(output.String()))
		if err != nil {
			t.Fatalf("expected a URL, got %q", output.String())
		}
		q := u.Query()
		if q.Get("client_id") != "client-id" {
			t.Errorf("expected client_id, got %q", q.Get("client_id"))
		}
		if q.Get("redirect_uri") != "http://localhost:4040/redirect" {
			t.Errorf("expected redirect_uri from config, got %q", q.Get("redirect_uri"))
		}
		if len(q.Get("state")) != 64 {
			t.Errorf("expected a generated state, got %q", q.Get("state"))
		}
	})

	t.Run("login without credentials", func(t *testing.T) {
		path, _ := writeConfig(t, func(c *shared.Config) { c.Credentials.Spotify.ClientSecret = "" })
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})

		err := run(context.Background(), runner, "--config", path, "auth", "login")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("login saves token", func(t *testing.T) {
		_, opts := newSpotifyAPI(t)
		port := freePort(t)
		path, config := writeConfig(t, func(c *shared.Config) { c.Redirect.Port = port })

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output, SpotifyOptions: opts})

		var authURL string
		runner.openURL = func(u string) error {
			authURL = u
			parsed, err := url.Parse(u)
			if err != nil {
				return err
			}
			callback := fmt.Sprintf("http://127.0.0.1:%d/redirect?code=auth-code&state=%s",
				port, url.QueryEscape(parsed.Query().Get("state")))
			resp, err := http.Get(callback)
			if err != nil {
				return err
			}
			resp.Body.Close()
			return nil
		}

		if err := run(context.Background(), runner, "--config", path, "auth", "login"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(authURL, "show_dialog=true") {
			t.Errorf("expected show_dialog in %q", authURL)
		}

		token, err := shared.LoadToken(config.Token.Path)
		if err != nil {
			t.Fatalf("expected a saved token: %v", err)
		}
		if token.AccessToken != "new-access" || token.RefreshToken != "new-refresh" {
			t.Errorf("unexpected token %+v", token)
		}

		out := output.String()
		for _, want := range []string{"Authorization successful", config.Token.Path, "Signed in as Tester"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("login times out", func(t *testing.T) {
		port := freePort(t)
		path, config := writeConfig(t, func(c *shared.Config) { c.Redirect.Port = port })
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})
		runner.openURL = func(string) error { return nil }

		err := run(context.Background(), runner, "--config", path, "auth", "login", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if _, err := os.Stat(config.Token.Path); !os.IsNotExist(err) {
			t.Error("expected no token file after timeout")
		}
	})

	t.Run("status without token", func(t *testing.T) {
		path, _ := writeConfig(t, nil)
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})

		err := run(context.Background(), runner, "--config", path, "auth", "status", "--offline")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("status offline", func(t *testing.T) {
		path, config := writeConfig(t, nil)
		saveToken(t, config.Token.Path, time.Now().Add(-time.Minute))

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output})
		if err := run(context.Background(), runner, "--config", path, "auth", "status", "--offline", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var status authStatus
		if err := json.Unmarshal(output.Bytes(), &status); err != nil {
			t.Fatalf("expected JSON output, got %q", output.String())
		}
		if status.Path != config.Token.Path || !status.Expired || status.User != "" {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("status online", func(t *testing.T) {
		_, opts := newSpotifyAPI(t)
		path, config := writeConfig(t, nil)
		saveToken(t, config.Token.Path, time.Now().Add(time.Hour))

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output, SpotifyOptions: opts})
		if err := run(context.Background(), runner, "--config", path, "auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "User:       Tester (premium)") {
			t.Errorf("expected user line, got:\n%s", out)
		}
		if strings.Contains(out, "expired") {
			t.Errorf("expected a valid token, got:\n%s", out)
		}
	})
}

func TestHistory(t *testing.T) {
	path, config := writeConfig(t, nil)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo := repositories.NewPlayRepository(db)
	start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"One More Time", "Aerodynamic", "Digital Love"} {
		track := models.Track{ID: fmt.Sprintf("t%d", i), Title: title, Artists: []string{"Daft Punk"}, Album: "Discovery", DurationMS: 200000}
		if err := repo.Create(models.NewPlay(0, track, start.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("failed to create play: %v", err)
		}
	}
	db.Close()

	list := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output})
		err := run(context.Background(), runner, append([]string{"--config", path, "history", "list"}, args...)...)
		return output.String(), err
	}

	t.Run("text newest first", func(t *testing.T) {
		out, err := list(t, "--limit", "2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
		}
		if !strings.Contains(lines[0], "Digital Love") || !strings.Contains(lines[1], "Aerodynamic") {
			t.Errorf("expected newest first, got:\n%s", out)
		}
	})

	t.Run("csv", func(t *testing.T) {
		out, err := list(t, "--format", "csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(out, "Sequence,Played At,Track ID,Title") {
			t.Errorf("expected CSV header, got:\n%s", out)
		}
		if n := strings.Count(strings.TrimSpace(out), "\n"); n != 3 {
			t.Errorf("expected 3 data rows, got %d", n)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := list(t, "--format", "json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var records []playRecord
		if err := json.Unmarshal([]byte(out), &records); err != nil {
			t.Fatalf("expected JSON, got %q", out)
		}
		if len(records) != 3 || records[0].Track.Title != "Digital Love" || records[0].Sequence != 3 {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		out, err := list(t, "-f", "md")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "# Listening History") {
			t.Errorf("expected markdown heading, got:\n%s", out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, err := list(t, "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		if _, err := list(t, "--limit", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty database", func(t *testing.T) {
		emptyPath, _ := writeConfig(t, nil)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output})
		if err := run(context.Background(), runner, "--config", emptyPath, "history", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No plays recorded yet") {
			t.Errorf("expected empty message, got %q", output.String())
		}
	})
}

func TestRelayRun(t *testing.T) {
	t.Run("prints and records until cancelled", func(t *testing.T) {
		path, config := writeConfig(t, nil)
		player := tu.NewMockPlayer(
			tu.PlayerResponse{Err: errors.New("spotify unavailable")},
			tu.PlayerResponse{Playing: tu.PlayingEpisode("e1")},
			tu.PlayerResponse{Playing: tu.PlayingTrack("t1", "Veridis Quo")},
		)

		output := &tu.SyncBuffer{}
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: output, Player: player})

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() {
			errs <- run(ctx, runner, "--config", path, "relay", "run", "--interval", "10ms", "--metrics-addr", "127.0.0.1:0")
		}()

		tu.WaitFor(t, 2*time.Second, func() bool { return strings.Contains(output.String(), "Veridis Quo") })
		tu.WaitFor(t, 2*time.Second, func() bool { return player.Calls() >= 5 })
		cancel()

		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("expected clean shutdown, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("relay run did not stop")
		}

		if n := strings.Count(output.String(), "Veridis Quo"); n != 1 {
			t.Errorf("expected the track printed once, got %d:\n%s", n, output.String())
		}

		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		plays, err := repositories.NewPlayRepository(db).Recent(10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(plays) != 1 || plays[0].Track().Title != "Veridis Quo" {
			t.Errorf("expected one recorded play, got %d", len(plays))
		}
	})

	t.Run("without token", func(t *testing.T) {
		path, _ := writeConfig(t, nil)
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}})

		err := run(context.Background(), runner, "--config", path, "relay", "run")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("metrics address in use", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer ln.Close()

		path, _ := writeConfig(t, func(c *shared.Config) { c.Metrics.Addr = ln.Addr().String() })
		runner := NewRunner(RunnerOpts{Logger: quietLogger(), Output: &bytes.Buffer{}, Player: tu.NewMockPlayer()})

		if err := run(context.Background(), runner, "--config", path, "relay", "run", "--record=false"); err == nil {
			t.Error("expected an error for a busy metrics address")
		}
	})
}
