// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// App builds the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "alx",
		Usage:   "Move planning entries between your AniList anime and manga lists",
		Version: "0.3.0",
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
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log warnings and errors",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, migrateCommand, searchCommand, historyCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func directionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "direction",
		Aliases: []string{"d"},
		Usage:   "anime-to-manga (a2m) or manga-to-anime (m2a)",
		Value:   "anime-to-manga",
	}
}

// setupCommand creates the config file and the run history database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage: "Create config.toml from the template and initialize the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Revert the most recent database migration instead",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage AniList authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in to AniList and save the access token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "token",
						Usage: "Access token to validate and save (skips the browser)",
					},
					&cli.BoolFlag{
						Name:  "code",
						Usage: "Use the authorization code flow through a local callback server (needs client_secret)",
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the AniList user the saved token belongs to",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the saved token",
				Action: r.AuthLogout,
			},
		},
	}
}

// migrateCommand runs a migration with line-by-line progress.
func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"run"},
		Usage:   "Move every planning entry from one list to the other",
		Flags: []cli.Flag{
			directionFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve matches without deleting or creating entries",
			},
			&cli.StringFlag{
				Name:  "delete-policy",
				Usage: "always (remove unmatched entries too) or on_match (default from config)",
			},
			&cli.StringFlag{
				Name:    "report",
				Aliases: []string{"o"},
				Usage:   "Write a report; format from extension (.json, .csv, .md, .txt)",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "Serve /metrics and /health on the configured server address during the run",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the run in the database",
			},
		},
		Action: r.Migrate,
	}
}

// searchCommand probes the resolver for a single title.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search AniList and show how each candidate scores against a title",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "title"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Media type to search: anime or manga",
				Value:   "manga",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// historyCommand reads recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded migration runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show runs with this status (running, completed, aborted)",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run and its outcomes by number or ID",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "Write the run as a report file instead of printing it",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Remove a run from history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// apiCommand handles raw GraphQL calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct AniList GraphQL calls",
		Commands: []*cli.Command{
			{
				Name:  "query",
				Usage: "Send a GraphQL document and print the raw response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "vars",
						Usage: "JSON object of variables",
					},
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the saved token with the request",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIQuery,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for an interactive migration.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Run a migration in the interactive terminal UI",
		Flags: []cli.Flag{
			directionFlag(),
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Start with dry run enabled",
			},
			&cli.StringFlag{
				Name:  "delete-policy",
				Usage: "always or on_match (default from config)",
			},
		},
		Action: r.TUI,
	}
}
