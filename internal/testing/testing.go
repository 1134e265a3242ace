// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/nowplaying/internal/services"
)

// PlayerResponse is one scripted reply of a [MockPlayer].
type PlayerResponse struct {
	Playing *services.CurrentlyPlaying
	Err     error
}

// MockPlayer is a test double for the relay's player. It replays Responses in order and
// repeats the last one once they run out.
type MockPlayer struct {
	mu        sync.Mutex
	responses []PlayerResponse
	calls     int
}

// NewMockPlayer creates a player that answers with responses in order.
func NewMockPlayer(responses ...PlayerResponse) *MockPlayer {
	return &MockPlayer{responses: responses}
}

func (m *MockPlayer) CurrentlyPlaying(ctx context.Context) (*services.CurrentlyPlaying, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.responses) == 0 {
		return &services.CurrentlyPlaying{}, nil
	}
	idx := min(m.calls, len(m.responses)) - 1
	r := m.responses[idx]
	return r.Playing, r.Err
}

// Calls returns how many times CurrentlyPlaying was called.
func (m *MockPlayer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// PlayingTrack returns a currently-playing payload for a track with an album.
func PlayingTrack(id, title string) *services.CurrentlyPlaying {
	return &services.CurrentlyPlaying{
		IsPlaying:            true,
		ProgressMS:           1000,
		CurrentlyPlayingType: "track",
		Item: &services.SpotifyItem{
			ID:         id,
			Name:       title,
			Type:       "track",
			DurationMS: 180000,
			URI:        "spotify:track:" + id,
			Artists:    []services.SpotifyArtist{{ID: "artist-" + id, Name: "Artist " + id}},
			Album:      &services.SpotifyAlbum{ID: "album-" + id, Name: "Album " + id},
		},
	}
}

// PlayingEpisode returns a currently-playing payload for a podcast episode, which has no album.
func PlayingEpisode(id string) *services.CurrentlyPlaying {
	return &services.CurrentlyPlaying{
		IsPlaying:            true,
		CurrentlyPlayingType: "episode",
		Item: &services.SpotifyItem{
			ID:   id,
			Name: "Episode " + id,
			Type: "episode",
			Show: &services.SpotifyShow{ID: "show", Name: "Show"},
		},
	}
}

// SyncBuffer is a [bytes.Buffer] safe for one writer goroutine and concurrent readers.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// WaitFor polls cond until it holds, failing the test after timeout.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
