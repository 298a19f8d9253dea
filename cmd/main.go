package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/dlbot/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.closeDB()

	app := &cli.Command{
		Name:     "dlbot",
		Usage:    "Telegram bot downloading video and audio with yt-dlp",
		Version:  "0.1.0",
		Commands: runner.register(),
		// exit codes are handled below so deferred cleanup runs first
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	err := app.Run(ctx, os.Args)
	if err == nil {
		return
	}

	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		logger.Info(exit.Error(), "code", exit.ExitCode())
		runner.closeDB()
		stop()
		os.Exit(exit.ExitCode())
	}
	logger.Error("application error", "err", err)
	runner.closeDB()
	os.Exit(shared.ExitFailure)
}
