package main

import (
	"os"

	"github.com/target/mmk-alert-router/internal/bootstrap"
)

func main() {
	logger := bootstrap.InitLogger()
	cmd := newRootCommand(os.Stdout)
	if err := cmd.Execute(); err != nil {
		logger.Error("command failed", "command", cmd.CalledAs(), "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}
