// Command teambot is the entrypoint for the chat bot and its helper commands.
// "teambot serve" connects to Slack and/or Twitch chat and answers the teams,
// teamhelp, embed and ping commands; see "teambot --help" for the rest.
package main

import (
	"log/slog"
	"os"

	"github.com/onnwee/teambot/cli"
	"github.com/onnwee/teambot/logging"
)

func main() {
	logger, _, err := logging.New(logging.Options{Out: os.Stderr})
	if err != nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}
