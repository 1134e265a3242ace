// package models defines the data model for the now playing relay
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track is the song metadata relayed from the player.
type Track struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
	URI        string   `json:"uri,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// Artist joins the track's artists into a single display string.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Duration returns the track length as a [time.Duration].
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// NowPlaying is a validated snapshot of the player state.
type NowPlaying struct {
	Track      Track     `json:"track"`
	IsPlaying  bool      `json:"is_playing"`
	ProgressMS int       `json:"progress_ms"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Progress returns the playback position as a [time.Duration].
func (np NowPlaying) Progress() time.Duration {
	return time.Duration(np.ProgressMS) * time.Millisecond
}

// Play is a persisted record of a track that started playing.
type Play struct {
	id        string
	sequence  int
	track     Track
	playedAt  time.Time
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPlay creates a [Play] for track observed at playedAt.
// The ID and sequence are assigned by the repository on create.
func NewPlay(sequence int, track Track, playedAt time.Time) *Play {
	now := time.Now()
	return &Play{
		sequence:  sequence,
		track:     track,
		playedAt:  playedAt,
		createdAt: now,
		updatedAt: now,
	}
}

func (p *Play) ID() string            { return p.id }
func (p *Play) Sequence() int         { return p.sequence }
func (p *Play) Track() Track          { return p.track }
func (p *Play) PlayedAt() time.Time   { return p.playedAt }
func (p *Play) CreatedAt() time.Time  { return p.createdAt }
func (p *Play) UpdatedAt() time.Time  { return p.updatedAt }
func (p *Play) DeletedAt() *time.Time { return p.deletedAt }

func (p *Play) SetID(id string)           { p.id = id }
func (p *Play) SetSequence(seq int)       { p.sequence = seq }
func (p *Play) SetCreatedAt(t time.Time)  { p.createdAt = t }
func (p *Play) SetUpdatedAt(t time.Time)  { p.updatedAt = t }
func (p *Play) SetDeletedAt(t *time.Time) { p.deletedAt = t }

// Validate checks the fields required to store a play.
func (p *Play) Validate() error {
	switch {
	case p.id == "":
		return fmt.Errorf("play id is required")
	case p.track.ID == "":
		return fmt.Errorf("track id is required")
	case p.track.Title == "":
		return fmt.Errorf("track title is required")
	case p.playedAt.IsZero():
		return fmt.Errorf("played at is required")
	}
	return nil
}
