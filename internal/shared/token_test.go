package shared

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestAccessToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("NewAccessToken From Expiry", func(t *testing.T) {
		token := &oauth2.Token{
			AccessToken:  "access",
			TokenType:    "Bearer",
			RefreshToken: "refresh",
			Expiry:       now.Add(time.Hour),
		}

		at := NewAccessToken(token, now)

		if at.ExpiresIn != 3600 {
			t.Errorf("expected expires_in 3600, got %d", at.ExpiresIn)
		}
		if at.Expires != now.Add(time.Hour).UnixMilli() {
			t.Errorf("expected absolute expiry %d, got %d", now.Add(time.Hour).UnixMilli(), at.Expires)
		}
	})

	t.Run("NewAccessToken From ExpiresIn", func(t *testing.T) {
		token := &oauth2.Token{AccessToken: "access", TokenType: "Bearer", RefreshToken: "refresh", ExpiresIn: 60}

		at := NewAccessToken(token, now)

		if at.Expires != now.Add(time.Minute).UnixMilli() {
			t.Errorf("expected computed expiry, got %d", at.Expires)
		}
		if !at.ExpiresAt().Equal(now.Add(time.Minute)) {
			t.Errorf("expected ExpiresAt %v, got %v", now.Add(time.Minute), at.ExpiresAt())
		}
	})

	t.Run("OAuth2 Conversion", func(t *testing.T) {
		at := &AccessToken{AccessToken: "a", TokenType: "Bearer", RefreshToken: "r", ExpiresIn: 10, Expires: now.UnixMilli()}

		token := at.OAuth2()

		if token.AccessToken != "a" || token.RefreshToken != "r" {
			t.Errorf("unexpected token %+v", token)
		}
		if !token.Expiry.Equal(now) {
			t.Errorf("expected expiry %v, got %v", now, token.Expiry)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name  string
			token AccessToken
			ok    bool
		}{
			{"valid", AccessToken{AccessToken: "a", TokenType: "Bearer", RefreshToken: "r", ExpiresIn: 3600}, true},
			{"missing access token", AccessToken{TokenType: "Bearer", RefreshToken: "r"}, false},
			{"missing token type", AccessToken{AccessToken: "a", RefreshToken: "r"}, false},
			{"missing refresh token", AccessToken{AccessToken: "a", TokenType: "Bearer"}, false},
			{"negative expires_in", AccessToken{AccessToken: "a", TokenType: "Bearer", RefreshToken: "r", ExpiresIn: -1}, false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.token.Validate()
				if tt.ok && err != nil {
					t.Errorf("expected valid token, got %v", err)
				}
				if !tt.ok && !errors.Is(err, ErrInvalidToken) {
					t.Errorf("expected ErrInvalidToken, got %v", err)
				}
			})
		}
	})
}

func TestTokenFile(t *testing.T) {
	t.Run("Save And Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "access-token.json")
		token := &AccessToken{AccessToken: "a", TokenType: "Bearer", ExpiresIn: 3600, RefreshToken: "r", Expires: 1700000000000}

		if err := SaveToken(path, token); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read token: %v", err)
		}
		if !strings.Contains(string(data), "\n  \"access_token\": \"a\"") {
			t.Errorf("expected pretty-printed JSON, got %s", data)
		}

		loaded, err := LoadToken(path)
		if err != nil {
			t.Fatalf("failed to load token: %v", err)
		}
		if *loaded != *token {
			t.Errorf("expected %+v, got %+v", token, loaded)
		}
	})

	t.Run("Load Missing File", func(t *testing.T) {
		_, err := LoadToken(filepath.Join(t.TempDir(), "missing.json"))
		if !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Load Invalid JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		if _, err := LoadToken(path); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("Load Incomplete Token", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token.json")
		if err := os.WriteFile(path, []byte(`{"access_token":"a"}`), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		if _, err := LoadToken(path); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}
