// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func formatFlag(value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (csv, md, txt)",
		Value:   value,
	}
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write to a file instead of stdout",
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

// setupCommand handles database and configuration setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Destination (default: $XDG_CONFIG_HOME/ytmirror/config.toml)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the most recent migration",
				Action: r.SetupRollback,
			},
			{
				Name:   "check",
				Usage:  "Check that the remote proxy is reachable",
				Action: r.SetupCheck,
			},
		},
	}
}

// playlistCommand handles local library edits.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage local playlists",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a local playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
					&cli.StringFlag{Name: "remote", Usage: "Bind to this remote playlist ID right away"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:   "list",
				Usage:  "List playlists with their queue state",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist's tracks in order",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist-id"}},
				Flags:     []cli.Flag{formatFlag("txt"), outputFlag()},
				Action:    r.PlaylistShow,
			},
			{
				Name:  "bind",
				Usage: "Make a playlist a mirror of a remote playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist-id"},
					&cli.StringArg{Name: "remote-id"},
				},
				Action: r.PlaylistBind,
			},
			{
				Name:      "add",
				Usage:     "Append tracks by remote track ID",
				ArgsUsage: "<playlist-id> <track-id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Title of a single added track"},
					&cli.StringFlag{Name: "artist", Usage: "Artist of a single added track"},
					&cli.IntFlag{Name: "duration", Usage: "Duration in seconds of a single added track"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:      "remove",
				Usage:     "Remove tracks by remote track ID",
				ArgsUsage: "<playlist-id> <track-id>...",
				Action:    r.PlaylistRemove,
			},
			{
				Name:  "move",
				Usage: "Move a track to a zero-based position",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist-id"},
					&cli.StringArg{Name: "track-id"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "to", Usage: "Target position", Required: true},
				},
				Action: r.PlaylistMove,
			},
			{
				Name:      "rename",
				Usage:     "Change a playlist's name and description",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist-id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New name", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
				},
				Action: r.PlaylistRename,
			},
			{
				Name:   "migrate-order",
				Usage:  "Convert legacy integer positions into sort keys",
				Action: r.PlaylistMigrateOrder,
			},
		},
	}
}

// syncCommand drains the outbox against the remote.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Push queued playlist changes to YouTube Music",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Drain one playlist's queue and stream progress",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist-id"}},
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "stop-after", Usage: "Request a stop after this long (0 runs to completion)"},
					jsonFlag(),
				},
				Action: r.SyncRun,
			},
			{
				Name:      "plan",
				Usage:     "Diff a mirror against the remote and queue the changes",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist-id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "run", Usage: "Drain the queued changes immediately"},
				},
				Action: r.SyncPlan,
			},
			{
				Name:   "all",
				Usage:  "Drain every playlist with pending entries",
				Action: r.SyncAll,
			},
			{
				Name:  "serve",
				Usage: "Run the sync daemon with its HTTP trigger endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (default from [server] config)"},
					&cli.DurationFlag{Name: "interval", Usage: "Scheduled sync interval (default from [sync] config)"},
				},
				Action: r.SyncServe,
			},
		},
	}
}

// queueCommand inspects and repairs the outbox.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Inspect and retry queued remote operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List queue entries",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Only entries in this status"},
					&cli.Int64Flag{Name: "playlist", Usage: "Only entries of this playlist"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of entries", Value: 50},
					jsonFlag(),
				},
				Action: r.QueueList,
			},
			{
				Name:  "failed",
				Usage: "List failed entries with their errors",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "playlist", Usage: "Only entries of this playlist"},
					jsonFlag(),
				},
				Action: r.QueueFailed,
			},
			{
				Name:      "retry",
				Usage:     "Move failed entries back to pending",
				ArgsUsage: "<entry-id>...",
				Action:    r.QueueRetry,
			},
			{
				Name:  "retry-all",
				Usage: "Requeue every failed entry",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "playlist", Usage: "Only entries of this playlist"},
				},
				Action: r.QueueRetryAll,
			},
			{
				Name:  "stats",
				Usage: "Count entries by status per playlist",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "playlist", Usage: "Only this playlist"},
					jsonFlag(),
				},
				Action: r.QueueStats,
			},
			{
				Name:  "prune",
				Usage: "Delete completed entries",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Usage: "Keep entries completed within this window", Value: 7 * 24 * time.Hour},
				},
				Action: r.QueuePrune,
			},
		},
	}
}

// importCommand matches an external playlist against the remote catalog.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Match an external playlist against YouTube Music",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "platform"},
			&cli.StringArg{Name: "source-id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "into", Usage: "Add matched tracks to this playlist ID"},
			&cli.StringFlag{Name: "create", Usage: "Add matched tracks to a new playlist with this name"},
			&cli.StringSliceFlag{Name: "pick", Usage: "Override a match with a ranked candidate: <track>=<rank>, both 1-based"},
			formatFlag("txt"),
			outputFlag(),
		},
		Action: r.Import,
	}
}

// matchCommand runs the matcher once against a live search.
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "Score remote search results for a single track",
		Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Usage: "Artist credit"},
			&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Duration in seconds (0 when unknown)"},
			jsonFlag(),
		},
		Action: r.Match,
	}
}
