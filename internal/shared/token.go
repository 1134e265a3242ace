package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// AccessToken is the token pair returned by the Spotify token endpoint.
//
// Expires is the absolute expiry in unix milliseconds, computed when the token is received.
type AccessToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires,omitempty"`
}

// NewAccessToken converts an [oauth2.Token] into the persisted representation.
func NewAccessToken(token *oauth2.Token, now time.Time) *AccessToken {
	at := &AccessToken{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresIn:    token.ExpiresIn,
		RefreshToken: token.RefreshToken,
	}

	switch {
	case !token.Expiry.IsZero():
		at.Expires = token.Expiry.UnixMilli()
		if at.ExpiresIn == 0 {
			at.ExpiresIn = int64(token.Expiry.Sub(now).Seconds())
		}
	case at.ExpiresIn > 0:
		at.Expires = now.Add(time.Duration(at.ExpiresIn) * time.Second).UnixMilli()
	}
	return at
}

// OAuth2 converts the persisted token back into an [oauth2.Token].
func (t *AccessToken) OAuth2() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.Expires > 0 {
		token.Expiry = time.UnixMilli(t.Expires)
	}
	return token
}

// ExpiresAt returns the absolute expiry, or the zero time when unknown.
func (t *AccessToken) ExpiresAt() time.Time {
	if t.Expires == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.Expires)
}

// Validate checks the fields every consumer of the token file relies on.
func (t *AccessToken) Validate() error {
	switch {
	case t.AccessToken == "":
		return fmt.Errorf("%w: access_token is empty", ErrInvalidToken)
	case t.TokenType == "":
		return fmt.Errorf("%w: token_type is empty", ErrInvalidToken)
	case t.RefreshToken == "":
		return fmt.Errorf("%w: refresh_token is empty", ErrInvalidToken)
	case t.ExpiresIn < 0:
		return fmt.Errorf("%w: expires_in is negative", ErrInvalidToken)
	}
	return nil
}

// SaveToken writes the token as pretty-printed JSON, creating parent directories as needed.
func SaveToken(path string, token *AccessToken) error {
	data, err := MarshalJSON(token, true)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken reads and validates a token written by [SaveToken].
func LoadToken(path string) (*AccessToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no token at %s", ErrNotAuthenticated, path)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token AccessToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if err := token.Validate(); err != nil {
		return nil, err
	}
	return &token, nil
}

// MarshalJSON encodes v, indenting with two spaces when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
