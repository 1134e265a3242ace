package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/bus"
	"github.com/desertthunder/nowplaying/internal/relay"
	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// subscription is a result subscriber bound to its inbox.
type subscription struct {
	name  string
	inbox *bus.Inbox
	sub   tasks.Subscriber
}

// pipeline is one bus with the relay, its trigger and every result subscriber attached.
//
// All inboxes are registered when the pipeline is built, so the first request is never lost.
type pipeline struct {
	bus      *bus.Bus
	relay    *relay.Relay
	requests *bus.Inbox
	trigger  *relay.Trigger
	subs     []subscription
	plays    *repositories.PlayRepository
	db       *sql.DB
	metrics  *http.Server
	logger   *log.Logger
}

// newPipeline builds the pipeline described by the config and the command flags.
func (r *Runner) newPipeline(ctx context.Context, cmd *cli.Command) (*pipeline, error) {
	player, err := r.authenticatedPlayer(ctx)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	b := bus.New(
		bus.WithCapacity(r.config.Relay.InboxCapacity),
		bus.WithLogger(shared.WithLogger(r.logger, "component", "bus")),
		bus.WithMetrics(bus.NewMetrics(registry)),
	)

	p := &pipeline{
		bus: b,
		relay: relay.New(b, player,
			relay.WithLogger(shared.WithLogger(r.logger, "component", "relay")),
			relay.WithClock(r.now),
			relay.WithCallTimeout(r.config.Relay.CallTimeout.Duration),
		),
		logger: r.logger,
	}

	if p.requests, err = p.relay.Subscribe(); err != nil {
		p.Close()
		return nil, err
	}

	interval := cmd.Duration("interval")
	if interval <= 0 {
		interval = r.config.Relay.Interval.Duration
	}
	p.trigger = relay.NewTrigger(b, interval, shared.WithLogger(r.logger, "component", "trigger"))

	if cmd.Bool("record") {
		if p.db, err = r.openDatabase(true); err != nil {
			p.Close()
			return nil, err
		}
		p.plays = repositories.NewPlayRepository(p.db)
		recorder := tasks.NewRecorder(p.plays, shared.WithLogger(r.logger, "component", "recorder"))
		if err := p.attach("recorder", recorder); err != nil {
			p.Close()
			return nil, err
		}
	}

	addr := cmd.String("metrics-addr")
	if addr == "" {
		addr = r.config.Metrics.Addr
	}
	if addr != "" {
		p.metrics = server.NewMetricsServer(addr, registry, r.logger)
	}

	r.logger.Debug("pipeline ready", "interval", interval, "record", p.plays != nil, "metrics", addr)
	return p, nil
}

// attach subscribes sub to currently-playing results.
func (p *pipeline) attach(name string, sub tasks.Subscriber) error {
	in, err := p.bus.Subscribe(bus.KindCurrentlyPlaying)
	if err != nil {
		return err
	}
	p.subs = append(p.subs, subscription{name: name, inbox: in, sub: sub})
	return nil
}

// Run starts every component and blocks until ctx ends or one of them fails.
//
// The trigger starts last so its first request reaches the relay.
func (p *pipeline) Run(ctx context.Context) error {
	var ln net.Listener
	if p.metrics != nil {
		var err error
		if ln, err = net.Listen("tcp", p.metrics.Addr); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", p.metrics.Addr, err)
		}
		p.logger.Info("serving metrics", "addr", ln.Addr().String())
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.relay.Serve(ctx, p.requests) })

	for _, s := range p.subs {
		logger := shared.WithLogger(p.logger, "subscriber", s.name)
		g.Go(func() error { return tasks.Consume(ctx, s.inbox, s.sub, logger) })
	}

	if ln != nil {
		g.Go(func() error {
			if err := p.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return p.metrics.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error { return p.trigger.Run(ctx) })

	return g.Wait()
}

// Close closes the bus, waking every reader, and the history database.
func (p *pipeline) Close() error {
	err := p.bus.Close()
	if p.db != nil {
		err = errors.Join(err, p.db.Close())
	}
	return err
}

// RelayRun runs the relay with a console printer until interrupted.
func (r *Runner) RelayRun(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := r.newPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.attach("printer", tasks.NewPrinter(r.output)); err != nil {
		return err
	}

	r.logger.Info("relay running, press ctrl+c to stop")
	if err := p.Run(ctx); err != nil {
		return err
	}
	r.logger.Info("relay shut down")
	return nil
}
