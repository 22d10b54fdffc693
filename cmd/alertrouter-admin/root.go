package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const (
	defaultPluginsPath = "plugins.yaml"
	defaultServerURL   = "http://localhost:8080"
)

// newRootCommand assembles the admin command tree. Output goes to out so
// tests can capture it.
func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "alertrouter-admin",
		Short: "Inspect filters, validate plugin declarations and call a running alert router",
		Long: `alertrouter-admin works with an alert router deployment.

Local commands (filter, plugins) read the plugin declaration file and never
initialize plugins. Remote commands (health, push) call the router HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetOut(out)
	root.SetErr(os.Stderr)

	root.AddCommand(
		newFilterCommand(),
		newPluginsCommand(),
		newHealthCommand(),
		newPushCommand(),
	)
	return root
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
