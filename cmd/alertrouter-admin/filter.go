package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/target/mmk-alert-router/config"
	"github.com/target/mmk-alert-router/internal/domain/filter"
	httpx "github.com/target/mmk-alert-router/internal/http"
)

func newFilterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Parse filter expressions and preview which plugins they select",
	}
	cmd.AddCommand(newFilterParseCommand(), newFilterMatchCommand())
	return cmd
}

func newFilterParseCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "parse <expr>",
		Short: "Print the parsed and reduced forms of a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := httpx.DescribeFilter(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(desc)
			}
			if desc.SelectsAll {
				return writef(out, "selects all plugins\n")
			}
			if err := writef(out, "parsed:  %s\n", desc.Parsed); err != nil {
				return err
			}
			return writef(out, "reduced: %s\n", desc.Reduced)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the description as JSON")
	return cmd
}

func newFilterMatchCommand() *cobra.Command {
	var pluginsPath string
	cmd := &cobra.Command{
		Use:   "match <expr>",
		Short: "List the declared plugins a filter selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter.Compile(args[0])
			if err != nil {
				return err
			}
			decls, err := config.LoadPluginDecls(pluginsPath)
			if err != nil {
				return err
			}
			return printMatches(cmd, f, decls)
		},
	}
	cmd.Flags().StringVar(&pluginsPath, "plugins", envOr("PLUGINS_CONFIG", defaultPluginsPath),
		"plugin declaration file")
	return cmd
}

func printMatches(cmd *cobra.Command, f *filter.Filter, decls []config.PluginDecl) error {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if err := writef(tw, "NAME\tGROUP\tTYPE\n"); err != nil {
		return err
	}
	matched := 0
	for _, d := range decls {
		id := d.Identity()
		if !f.Match(id) {
			continue
		}
		matched++
		if err := writef(tw, "%s\t%s\t%s\n", id.Name, id.Group, id.Type); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(out, "%s\n", fmt.Sprintf("%d of %d plugin(s) selected", matched, len(decls)))
}
