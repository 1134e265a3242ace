package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin performs the OAuth2 authorization code flow for Spotify.
//
// Starts the local callback server, opens the browser for user authorization, and exchanges the
// delivered code for a token which is written to the token file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.newSpotify()
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = r.config.Redirect.Timeout.Duration
	}

	logger := shared.WithLogger(r.logger, "component", "callback")
	handler := server.NewCallbackHandler(r.config.Redirect.Path, state, logger)
	srv := server.NewCallbackServer(r.config.Redirect.Addr(), handler,
		server.WithTimeout(timeout), server.WithServerLogger(logger))

	if err := srv.Start(); err != nil {
		return err
	}
	r.logger.Infof("waiting for authorization redirect at %v", r.config.Redirect.URI())

	authURL := spotify.AuthURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("→ Open this URL to authorize:\n\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := r.openURL(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please visit this URL:\n\n%s\n\n", authURL)
		}
	}

	code, err := srv.Code(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	r.logger.Debug("authorization code received")

	token, err := spotify.Exchange(ctx, code)
	if err != nil {
		return err
	}

	path := r.config.Token.ResolvedPath()
	if err := shared.SaveToken(path, shared.NewAccessToken(token, r.now())); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n", path)

	if user, err := spotify.UserProfile(ctx); err != nil {
		r.logger.Warn("failed to fetch user profile", "error", err)
	} else {
		r.writePlain("✓ Signed in as %s\n", displayName(user.DisplayName, user.ID))
	}

	r.writePlain("\nYou can now use: nowplaying relay run\n")
	return nil
}

// authStatus is the JSON shape printed by [Runner.AuthStatus].
type authStatus struct {
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expired   bool      `json:"expired"`
	User      string    `json:"user,omitempty"`
	Product   string    `json:"product,omitempty"`
}

// AuthStatus reads the token file and, unless --offline is set, verifies it against Spotify.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Token.ResolvedPath()
	token, err := shared.LoadToken(path)
	if err != nil {
		return err
	}

	status := authStatus{Path: path, ExpiresAt: token.ExpiresAt()}
	status.Expired = !status.ExpiresAt.IsZero() && r.now().After(status.ExpiresAt)

	if !cmd.Bool("offline") {
		player, err := r.authenticatedPlayer(ctx)
		if err != nil {
			return err
		}
		profiler, ok := player.(interface {
			UserProfile(context.Context) (*services.SpotifyUser, error)
		})
		if ok {
			user, err := profiler.UserProfile(ctx)
			if err != nil {
				return err
			}
			status.User = displayName(user.DisplayName, user.ID)
			status.Product = user.Product
			// The call refreshes an expired token and rewrites the file.
			if refreshed, err := shared.LoadToken(path); err == nil {
				status.ExpiresAt = refreshed.ExpiresAt()
				status.Expired = !status.ExpiresAt.IsZero() && r.now().After(status.ExpiresAt)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Spotify authorization")
	r.writePlain("Token file: %s\n", status.Path)
	switch {
	case status.ExpiresAt.IsZero():
		r.writePlain("Expires:    unknown\n")
	case status.Expired:
		r.writePlain("Expires:    %s (expired, will refresh on next use)\n", status.ExpiresAt.Local().Format(time.RFC1123))
	default:
		r.writePlain("Expires:    %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	}
	if status.User != "" {
		r.writePlain("User:       %s (%s)\n", status.User, status.Product)
	}
	return nil
}

// AuthURL prints an authorization URL. The callback server is not started, so the
// state it carries is only useful for registering or checking the app settings.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	spotify, err := r.newSpotify()
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	return r.writePlain("%s\n", spotify.AuthURL(state))
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
