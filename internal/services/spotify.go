// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// DefaultRedirectURI matches the default redirect listener on port 3939.
const DefaultRedirectURI = "http://localhost:3939/redirect"

// SpotifyScopes are requested on every authorization so a single token serves playback, library and profile reads.
var SpotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"app-remote-control",
	"streaming",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
	"user-read-playback-position",
	"user-top-read",
	"user-read-recently-played",
	"user-library-modify",
	"user-library-read",
	"user-read-email",
	"user-read-private",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

// SpotifyShow is the parent of an episode item.
type SpotifyShow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Publisher string `json:"publisher"`
}

// SpotifyItem is the playing item: a track when Album is set, an episode when Show is set.
type SpotifyItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      *SpotifyAlbum   `json:"album"`
	Show       *SpotifyShow    `json:"show"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

// IsTrack reports whether the item carries an album.
func (i *SpotifyItem) IsTrack() bool {
	return i != nil && i.Album != nil
}

// Track converts the item into a [models.Track]. The item must satisfy [SpotifyItem.IsTrack].
func (i *SpotifyItem) Track() models.Track {
	track := models.Track{
		ID:         i.ID,
		Title:      i.Name,
		DurationMS: i.DurationMS,
		URI:        i.URI,
	}
	for _, a := range i.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	if i.Album != nil {
		track.Album = i.Album.Name
		if len(i.Album.Images) > 0 {
			track.ImageURL = i.Album.Images[0].URL
		}
	}
	return track
}

// CurrentlyPlaying is the response of GET /me/player/currently-playing.
//
// A 204 response is decoded as the zero value, which has no Item.
type CurrentlyPlaying struct {
	Timestamp            int64        `json:"timestamp"`
	ProgressMS           int          `json:"progress_ms"`
	IsPlaying            bool         `json:"is_playing"`
	CurrentlyPlayingType string       `json:"currently_playing_type"`
	Item                 *SpotifyItem `json:"item"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication with automatic token refresh and [rate] to pace API calls.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu             sync.Mutex
	token          *oauth2.Token
	source         oauth2.TokenSource
	client         *http.Client
	onTokenRefresh func(*oauth2.Token)
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient sets the base client used for API and token endpoint requests.
func WithHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithBaseURL points API requests at another host.
func WithBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = u }
}

// WithEndpoint overrides the authorize and token URLs.
func WithEndpoint(authURL, tokenURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.config.Endpoint.AuthURL = authURL
		s.config.Endpoint.TokenURL = tokenURL
	}
}

// WithRateLimit replaces the API call limiter. A nil limiter disables pacing.
func WithRateLimit(l *rate.Limiter) SpotifyOption {
	return func(s *SpotifyService) { s.limiter = l }
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// Expects "client_id" and "client_secret"; "redirect_uri" defaults to [DefaultRedirectURI].
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	s := &SpotifyService{
		config:     config,
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login. The consent dialog is always shown.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// RedirectURI returns the redirect URI registered with the authorization request.
func (s *SpotifyService) RedirectURI() string {
	return s.config.RedirectURL
}

// Exchange trades an authorization code for a token and authenticates the service with it.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
	}

	if err := s.Authenticate(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Authenticate installs token and builds a client that refreshes it when it expires.
//
// ctx scopes the refresh requests and should outlive the service's use.
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrNotAuthenticated)
	}

	ctx = s.oauthContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.source = oauth2.ReuseTokenSource(token, &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.notifyRefresh,
		last:     token.AccessToken,
	})
	s.client = oauth2.NewClient(ctx, s.source)
	return nil
}

// SetTokenRefreshCallback registers fn to be called with every new token obtained by a refresh.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// Token returns the current token, refreshing it if it has expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()

	if source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return source.Token()
}

func (s *SpotifyService) notifyRefresh(token *oauth2.Token) {
	s.mu.Lock()
	s.token = token
	fn := s.onTokenRefresh
	s.mu.Unlock()

	if fn != nil {
		fn(token)
	}
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// doRequest performs an authenticated GET request to the Spotify API and decodes a JSON body into result.
//
// A 204 response leaves result untouched.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", shared.ErrExternalCall, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", shared.ErrExternalCall, shared.ErrNotAuthenticated)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited, retry after %ss", shared.ErrExternalCall, resp.Header.Get("Retry-After"))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API error: status %d", shared.ErrExternalCall, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrExternalCall, err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentlyPlaying retrieves the user's playback state. Nothing playing yields a value without an Item.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error) {
	var cp CurrentlyPlaying
	if err := s.doRequest(ctx, "/me/player/currently-playing", &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// refreshableTokenSource reports every token that differs from the last one it returned.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)

	mu   sync.Mutex
	last string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}
