package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

const playColumns = `id, sequence, track_id, title, artists, album, duration_ms, uri, played_at, created_at, updated_at, deleted_at`

// artistSeparator joins artist names in the artists column. Spotify artist names may contain commas.
const artistSeparator = "\x1f"

var _ models.Repository[*models.Play] = (*PlayRepository)(nil)

// PlayRepository implements models.Repository[*models.Play] for listening history.
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new PlayRepository with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// Create inserts a new [models.Play] into the database with generated ID and sequence
func (r *PlayRepository) Create(play *models.Play) error {
	id := shared.GenerateID()
	play.SetID(id)

	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "plays")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	play.SetSequence(sequence)

	track := play.Track()
	query := `
		INSERT INTO plays (id, sequence, track_id, title, artists, album, duration_ms, uri, played_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		track.ID,
		track.Title,
		strings.Join(track.Artists, artistSeparator),
		track.Album,
		track.DurationMS,
		track.URI,
		play.PlayedAt(),
		play.CreatedAt(),
		play.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}

	return nil
}

// Get retrieves a play by ID, excluding soft-deleted plays
func (r *PlayRepository) Get(id string) (*models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Latest retrieves the most recently recorded play.
// Returns [shared.ErrNotFound] when no play has been recorded.
func (r *PlayRepository) Latest() (*models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE deleted_at IS NULL ORDER BY sequence DESC LIMIT 1`
	return r.scan(r.db.QueryRow(query))
}

// Recent retrieves up to limit plays, newest first
func (r *PlayRepository) Recent(limit int) ([]*models.Play, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", shared.ErrInvalidArgument)
	}
	return r.List(map[string]any{"limit": limit, "order": "desc"})
}

// Update modifies the track fields of an existing play
func (r *PlayRepository) Update(play *models.Play) error {
	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	play.SetUpdatedAt(now)

	track := play.Track()
	query := `
		UPDATE plays
		SET track_id = ?, title = ?, artists = ?, album = ?, duration_ms = ?, uri = ?, played_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.ID,
		track.Title,
		strings.Join(track.Artists, artistSeparator),
		track.Album,
		track.DurationMS,
		track.URI,
		play.PlayedAt(),
		now,
		play.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update play: %w", err)
	}

	return affectedOne(result, play.ID())
}

// Delete soft-deletes a play by ID
func (r *PlayRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE plays SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete play: %w", err)
	}

	return affectedOne(result, id)
}

// List retrieves plays matching the given criteria, excluding soft-deleted plays.
//
// Supported criteria: "track_id" (string), "since" ([time.Time]), "order" ("asc" or "desc" by sequence) and "limit" (int).
func (r *PlayRepository) List(criteria map[string]any) ([]*models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE deleted_at IS NULL`
	args := []any{}

	if trackID, ok := criteria["track_id"].(string); ok && trackID != "" {
		query += " AND track_id = ?"
		args = append(args, trackID)
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND played_at >= ?"
		args = append(args, since)
	}

	if order, ok := criteria["order"].(string); ok && order == "desc" {
		query += " ORDER BY sequence DESC"
	} else {
		query += " ORDER BY sequence ASC"
	}

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []*models.Play
	for rows.Next() {
		play, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		plays = append(plays, play)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plays, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads a single row from [sql.Row] or [sql.Rows] into a [models.Play]
func (r *PlayRepository) scan(row scanner) (*models.Play, error) {
	var (
		id        string
		sequence  int
		artists   string
		playedAt  time.Time
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
		track     models.Track
	)

	err := row.Scan(&id, &sequence, &track.ID, &track.Title, &artists, &track.Album, &track.DurationMS, &track.URI,
		&playedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: play", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan play: %w", err)
	}

	if artists != "" {
		track.Artists = strings.Split(artists, artistSeparator)
	}

	play := models.NewPlay(sequence, track, playedAt)
	play.SetID(id)
	play.SetCreatedAt(createdAt)
	play.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		play.SetDeletedAt(&deletedAt.Time)
	}

	return play, nil
}

func affectedOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: play %s not found or already deleted", shared.ErrNotFound, id)
	}
	return nil
}
