package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/urfave/cli/v3"
)

// playRecord is the JSON form of a [models.Play].
type playRecord struct {
	ID       string       `json:"id"`
	Sequence int          `json:"sequence"`
	PlayedAt time.Time    `json:"played_at"`
	Track    models.Track `json:"track"`
}

// HistoryList prints the most recent recorded plays, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	format := strings.ToLower(cmd.String("format"))

	db, err := r.openDatabase(true)
	if err != nil {
		return err
	}
	defer db.Close()

	plays, err := repositories.NewPlayRepository(db).Recent(limit)
	if err != nil {
		return err
	}
	r.logger.Debug("loaded plays", "count", len(plays), "limit", limit)

	var output []byte
	switch format {
	case "json":
		records := make([]playRecord, len(plays))
		for i, p := range plays {
			records[i] = playRecord{ID: p.ID(), Sequence: p.Sequence(), PlayedAt: p.PlayedAt(), Track: p.Track()}
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	case "csv":
		output, err = formatter.PlaysToCSV(plays)
	case "md", "markdown":
		output, err = formatter.PlaysToMarkdown(plays)
	case "text", "":
		if len(plays) == 0 {
			return r.writePlain("No plays recorded yet. Run 'nowplaying relay run' to start recording.\n")
		}
		output, err = formatter.PlaysToText(plays)
	default:
		return fmt.Errorf("%w: unknown format %q (want text, csv, md or json)", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	_, err = r.output.Write(output)
	return err
}
