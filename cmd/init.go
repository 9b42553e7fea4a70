// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/flowd-org/ask/internal/argv"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/spf13/cobra"
)

const schemaTemplate = `description: %[1]s
handler:
  namespace: script
  method: run
  params:
    script: %[2]s
arguments:
  name:
    prompt: "Name?"
    positionalIndex: 0
    default: demo
`

const scriptTemplate = `#!/bin/sh
echo "Hello from %[1]s, name=$ARG_NAME"
`

const echoSchemaTemplate = `description: %[1]s
handler: echo.options
echoResult: true
arguments:
  name:
    prompt: "Name?"
    positionalIndex: 0
`

func NewInitCmd(s Streams, g *argv.Globals) *cobra.Command {
	var noScript bool
	c := &cobra.Command{
		Use:   ":init <action>",
		Short: "Scaffold a schema (and script) for a new action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *g, s, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			action := args[0]
			rel := schemastore.ActionPath(action)
			if rel == "" {
				return fmt.Errorf("invalid action name %q", action)
			}
			root, err := firstDiskRoot(app.Roots)
			if err != nil {
				return err
			}

			schemaPath := filepath.Join(root.Dir, filepath.FromSlash(rel)+".yaml")
			if _, err := os.Stat(schemaPath); err == nil {
				return fmt.Errorf("schema already exists: %s", schemaPath)
			}
			if err := os.MkdirAll(filepath.Dir(schemaPath), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(schemaPath), err)
			}

			body := fmt.Sprintf(echoSchemaTemplate, action)
			if !noScript {
				scriptName := path.Base(rel) + ".sh"
				body = fmt.Sprintf(schemaTemplate, action, scriptName)
				scriptPath := filepath.Join(filepath.Dir(schemaPath), scriptName)
				if err := os.WriteFile(scriptPath, []byte(fmt.Sprintf(scriptTemplate, action)), 0o755); err != nil {
					return fmt.Errorf("writing %s: %w", scriptPath, err)
				}
			}
			if err := os.WriteFile(schemaPath, []byte(body), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", schemaPath, err)
			}

			writeOK(s.Out, "Initialized %s at %s", action, schemaPath)
			return nil
		},
	}
	c.Flags().BoolVar(&noScript, "no-script", false, "Scaffold an echo.options action instead of a script")
	return c
}

// firstDiskRoot returns the highest-precedence root that lives on disk.
func firstDiskRoot(roots []schemastore.Root) (schemastore.Root, error) {
	for _, r := range roots {
		if r.Dir != "" {
			return r, nil
		}
	}
	return schemastore.Root{}, errors.New("no schema root on disk to write to")
}
