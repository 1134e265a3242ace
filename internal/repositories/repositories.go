package repositories

import (
	"database/sql"
	"fmt"
	"regexp"

	"github.com/desertthunder/nowplaying/internal/shared"
)

var tableName = regexp.MustCompile(`^[a-z_]+$`)

// NextSequence increments and returns the counter in table's "<table>_sequence" row.
//
// Sequence numbers order plays by when they were recorded, independent of played_at.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("%w: table name %q", shared.ErrInvalidArgument, table)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := tx.QueryRow(query).Scan(&sequence); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: %s_sequence is not seeded", shared.ErrNotFound, table)
		}
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}
	return sequence, nil
}
