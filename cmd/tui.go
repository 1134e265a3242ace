package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Watch runs the relay pipeline and renders its results in the terminal UI.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := r.newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	inbox, err := p.bus.Subscribe(bus.KindCurrentlyPlaying)
	if err != nil {
		return err
	}

	var history ui.HistorySource
	if p.plays != nil {
		history = p.plays.Recent
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	model := ui.NewModel(gctx, inbox, p.trigger, history)
	program := tea.NewProgram(model, tea.WithContext(gctx), tea.WithAltScreen())

	g.Go(func() error { return p.Run(gctx) })
	g.Go(func() error {
		// Quitting the UI stops the pipeline.
		defer cancel()
		if _, err := program.Run(); err != nil && gctx.Err() == nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return model.Err()
}
