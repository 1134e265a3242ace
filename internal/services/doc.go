// Package services defines the [Service] interface for music streaming providers and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 authorization code flow with client credentials sent in the Authorization header.
//
// The client built by [SpotifyService.Authenticate] refreshes expired tokens using the refresh token.
// Refreshed tokens are reported through [SpotifyService.SetTokenRefreshCallback] so callers can persist them.
//
// API calls are paced by a [rate.Limiter].
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured
//   - [shared.ErrNotAuthenticated] : Authenticate() not called, or the API rejected the token
//   - [shared.ErrAuthFailed] : code exchange failed
//   - [shared.ErrExternalCall] : HTTP request failed or returned a non-2xx status
//
// # API Mappings
//
// [CurrentlyPlaying] mirrors the currently-playing response. Its Item is a track only when it carries an album;
// [SpotifyItem.Track] maps it to [models.Track].
package services
