package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/target/mmk-alert-router/config"
	"github.com/target/mmk-alert-router/internal/adapters/plugins"
)

func newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Work with the plugin declaration file",
	}
	cmd.AddCommand(newPluginsValidateCommand())
	return cmd
}

func newPluginsValidateCommand() *cobra.Command {
	var pluginsPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check declarations and plugin options without connecting to anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validatePlugins(cmd, pluginsPath)
		},
	}
	cmd.Flags().StringVar(&pluginsPath, "plugins", envOr("PLUGINS_CONFIG", defaultPluginsPath),
		"plugin declaration file")
	return cmd
}

// validatePlugins runs the structural checks, then constructs every plugin
// so option errors surface. Plugins are never initialized.
func validatePlugins(cmd *cobra.Command, path string) error {
	decls, err := config.LoadPluginDecls(path)
	if err != nil {
		return err
	}
	if err := config.ValidatePluginDecls(decls, plugins.KnownTypes()); err != nil {
		return fmt.Errorf("%s:\n%w", path, err)
	}

	factory := plugins.NewFactory(plugins.FactoryOptions{Logger: slog.New(slog.DiscardHandler)})
	var errs []error
	for i, d := range decls {
		if _, err := factory.New(d); err != nil {
			errs = append(errs, fmt.Errorf("plugins[%d] (%s) line %d: %w", i, d.Name, d.Line(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s:\n%w", path, errors.Join(errs...))
	}
	return writef(cmd.OutOrStdout(), "%s: %d plugin(s) valid\n", path, len(decls))
}
