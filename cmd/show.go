// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"

	"github.com/flowd-org/ask/internal/argv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewShowCmd(s Streams, g *argv.Globals) *cobra.Command {
	return &cobra.Command{
		Use:   ":show <action>",
		Short: "Print the expanded schema of an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *g, s, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			_, schema, err := app.ResolveAction(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if schema == nil {
				writeOK(s.Out, "%s has no schema; it dispatches to %s.%s", args[0], app.Config.DefaultNamespace, args[0])
				return nil
			}

			if g.JSON {
				// schemas only define a yaml encoding
				var doc interface{}
				data, err := yaml.Marshal(schema)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(data, &doc); err != nil {
					return err
				}
				enc := json.NewEncoder(s.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			enc := yaml.NewEncoder(s.Out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(schema)
		},
	}
}
