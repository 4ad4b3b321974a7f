// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "liked",
			Usage: "Collect from liked songs",
		},
		&cli.BoolFlag{
			Name:  "top",
			Usage: "Collect from top tracks",
		},
		&cli.BoolFlag{
			Name:    "recommendations",
			Aliases: []string{"recs"},
			Usage:   "Collect from catalog recommendations",
		},
		&cli.StringSliceFlag{
			Name:    "playlist",
			Aliases: []string{"p"},
			Usage:   "Collect from a playlist, as ID or ID=SIZE (repeatable)",
		},
		&cli.StringFlag{
			Name:    "mode",
			Aliases: []string{"m"},
			Usage:   "Processing mode: quick, standard, comprehensive or complete",
			Value:   "standard",
		},
	}
}

// generateCommand runs one generation
func generateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a playlist from a text prompt",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "prompt"},
		},
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:  "prompt",
				Usage: "What the playlist should sound like (or pass it as the first argument)",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (default: derived from the prompt)",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Playlist description (default: from the prompt analysis)",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Number of tracks to select",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, csv or markdown",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the result to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Shorthand for --format json",
			},
			&cli.BoolFlag{
				Name:  "no-tui",
				Usage: "Log progress lines instead of showing the terminal UI",
			},
		),
		Action: r.Generate,
	}
}

// estimateCommand predicts processing time
func estimateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate how long a generation would take",
		Flags: append(sourceFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.Estimate,
	}
}

// modesCommand lists the processing modes
func modesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "modes",
		Usage: "List processing modes and their limits",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Modes,
	}
}

// historyCommand lists recorded generations
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previously generated playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Only show generations of this processing mode",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the generation API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles Spotify authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify using OAuth2 and save the tokens",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the authenticated Spotify account",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the saved Spotify tokens",
				Action: r.AuthLogout,
			},
		},
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
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}
