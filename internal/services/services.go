// package services defines interface Service for interacting with music provider HTTP APIs
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Service defines the interface for music service providers that report what the user is listening to.
type Service interface {
	// AuthURL returns the URL the user visits to grant access. state is echoed back on the redirect.
	AuthURL(state string) string

	// Exchange trades the authorization code delivered to the redirect for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Authenticate installs a previously obtained token.
	Authenticate(ctx context.Context, token *oauth2.Token) error

	// CurrentlyPlaying reads the user's playback state.
	CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
