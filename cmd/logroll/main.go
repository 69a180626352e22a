// FILE: lixenwraith/logroll/cmd/logroll/main.go

// logroll drives the rotation engine from the command line.
//
// Usage:
//
//	logroll [global options] <command> [command options]
//
// Commands:
//
//	stress   write random lines from many goroutines and report rolls
//	roll     force one roll of a live file
//	config   print the resolved configuration
//
// Examples:
//
//	logroll --set max_size_kb=100 --set max_generations=3 stress ./logs/app.log
//	logroll --config logroll.toml roll /var/log/app/app.log
//	logroll --set archive_enabled=true config ./app.log
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// Version can be injected with -ldflags "-X main.Version=..."
var Version = "0.1.0-dev"

const defaultTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := createApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "logroll:", err)
		os.Exit(1)
	}
}

func createApp() *cli.Command {
	return &cli.Command{
		Name:    "logroll",
		Usage:   "size based log rotation engine",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML file with a [logroll] table",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "override a setting, key=value (repeatable)",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "shutdown timeout",
				Value:   defaultTimeout,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print informational events and dump final stats",
			},
		},
		Commands: createCommands(),
	}
}
