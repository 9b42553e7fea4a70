// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/flowd-org/ask/internal/argv"
	"github.com/flowd-org/ask/internal/indexer"
	"github.com/spf13/cobra"
)

func NewActionsCmd(s Streams, g *argv.Globals) *cobra.Command {
	c := &cobra.Command{
		Use:   ":actions",
		Short: "List discovered actions and aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *g, s, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := indexer.Discover(app.Roots, app.Config.Aliases)
			if err != nil {
				return err
			}

			if g.JSON {
				enc := json.NewEncoder(s.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if len(res.Actions) == 0 {
				fmt.Fprintln(s.Out, "(no actions found)")
			} else {
				tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ACTION\tHANDLER\tDESCRIPTION")
				for _, action := range res.Actions {
					desc := action.Description
					if desc == "" {
						desc = "(no description)"
					}
					handler := action.Handler
					if handler == "" {
						handler = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", action.Name, handler, desc)
				}
				tw.Flush()
			}

			if len(res.Aliases) > 0 {
				fmt.Fprintln(s.Out)
				fmt.Fprintln(s.Out, "ALIASES")
				tw := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTARGET\tDESCRIPTION")
				for _, alias := range res.Aliases {
					desc := alias.Description
					if desc == "" {
						desc = "(alias)"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", alias.Name, alias.Target, desc)
				}
				tw.Flush()
			}

			for name, shadowed := range res.Shadowed {
				for _, p := range shadowed {
					app.Logger.Debug("action shadowed", "action", name, "path", p)
				}
			}
			for _, derr := range res.Errors {
				fmt.Fprintf(s.Err, "[warn] %s: %s\n", derr.Path, derr.Err)
			}
			return nil
		},
	}
	return c
}
