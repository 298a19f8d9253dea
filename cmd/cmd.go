// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// runCommand starts the Telegram bot.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"start"},
		Usage:   "Start the Telegram bot and the playlist checker",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "no-checker",
				Usage: "Do not run the scheduled playlist checker",
			},
		},
		Action: r.Run,
	}
}

// checkCommand runs one checker pass from the terminal.
func checkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Download new tracks of every watched playlist once",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the report as JSON",
			},
		},
		Action: r.Check,
	}
}

// setupCommand prepares configuration, storage and the extraction tool.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file, database, directories and archive",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "install",
				Usage: "Download yt-dlp when it is not installed",
			},
		},
		Action: r.Setup,
	}
}

// historyCommand lists recorded downloads.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "List recorded downloads",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of downloads to list",
				Value:   20,
			},
			&cli.IntFlag{
				Name:  "user",
				Usage: "Only list downloads of this Telegram user id",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list downloads with this status (running, completed, failed, cancelled, interrupted)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, csv, json)",
				Value:   "text",
			},
		},
		Action: r.History,
	}
}

// watchCommand manages the playlist watchlist.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Manage watched Spotify playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List watched playlists",
				Flags:  []cli.Flag{configFlag()},
				Action: r.WatchList,
			},
			{
				Name:  "add",
				Usage: "Watch a Spotify playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "folder",
						Usage:    "Folder below the audio directory, e.g. user/playlist",
						Required: true,
					},
				},
				Action: r.WatchAdd,
			},
		},
	}
}

// classifyCommand prints the platform of a link.
func classifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Show which download flow a link would take",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Action: r.Classify,
	}
}
