// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// app returns the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "nowplaying",
		Usage:   "Relay what Spotify is playing right now",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		Commands: r.register(),
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:    "database",
				Aliases: []string{"db"},
				Usage:   "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Spotify authorization flow
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify in the browser and save the access token",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the redirect (defaults to redirect.timeout)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the saved token and the account it belongs to",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Only read the token file, do not call Spotify",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "url",
				Usage:  "Print an authorization URL with a fresh state",
				Action: r.AuthURL,
			},
		},
	}
}

// relayCommand runs the currently-playing relay
func relayCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "Currently-playing relay",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Poll Spotify and print track changes until interrupted",
				Flags:  pipelineFlags(),
				Action: r.RelayRun,
			},
		},
	}
}

// watchCommand returns the top-level TUI command.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"tui", "ui"},
		Usage:   "Show what is playing in an interactive terminal UI",
		Flags: append(pipelineFlags(), &cli.StringFlag{
			Name:  "log-file",
			Usage: "Where to write logs while the UI owns the terminal",
			Value: "./tmp/nowplaying-tui.log",
		}),
		Action: r.Watch,
	}
}

// historyCommand reads plays recorded by the relay
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Recorded play history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the most recent plays",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of plays to return",
						Value:   20,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, md or json",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.HistoryList,
			},
		},
	}
}

// pipelineFlags are shared by every command that runs the relay.
func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Time between currently-playing requests (defaults to relay.interval)",
		},
		&cli.BoolFlag{
			Name:  "record",
			Usage: "Record plays to the history database",
			Value: true,
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve prometheus metrics on this address (defaults to metrics.addr)",
		},
	}
}
