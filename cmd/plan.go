// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/flowd-org/ask/internal/argv"
	"github.com/flowd-org/ask/internal/types"
	"github.com/spf13/cobra"
)

func NewPlanCmd(s Streams, _ *argv.Globals) *cobra.Command {
	return &cobra.Command{
		Use:                ":plan [flags] <action> [args...]",
		Short:              "Resolve an action's arguments and preview the dispatch (no confirmation, no invocation)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := argv.Parse(args)
			if err != nil {
				return err
			}
			if inv.Globals.Help {
				return cmd.Help()
			}
			if inv.Action == "" {
				return errors.New("requires an action, e.g. 'ask :plan deploy'")
			}

			app, err := newApp(cmd.Context(), inv.Globals, s, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			action, schema, err := app.ResolveAction(cmd.Context(), inv.Action)
			if err != nil {
				return err
			}
			if schema == nil {
				schema = &types.ActionSchema{
					Name:    action,
					Handler: &types.HandlerRef{Namespace: app.Config.DefaultNamespace, Method: action},
				}
			}
			plan, err := app.Dispatcher.Plan(cmd.Context(), schema, app.Options(inv.Options))
			if err != nil {
				return err
			}

			if inv.Globals.JSON {
				enc := json.NewEncoder(s.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			printPlan(s, plan)
			return nil
		},
	}
}

func printPlan(s Streams, plan types.Plan) {
	fmt.Fprintf(s.Out, "Action: %s\n", plan.Action)
	fmt.Fprintf(s.Out, "Handler: %s (%s)\n", plan.Handler, plan.HandlerKind)
	if plan.Folder != "" {
		fmt.Fprintf(s.Out, "Folder: %s\n", plan.Folder)
	}
	if plan.AskConfirm {
		fmt.Fprintln(s.Out, "Confirmation: required")
	}
	fmt.Fprintln(s.Out, "Resolved Args:")
	if len(plan.ResolvedArgs) == 0 {
		fmt.Fprintln(s.Out, "  (none)")
	}
	keys := make([]string, 0, len(plan.ResolvedArgs))
	for k := range plan.ResolvedArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		source := ""
		if src, ok := plan.Sources[k]; ok {
			source = " (" + src + ")"
		}
		fmt.Fprintf(s.Out, "  - %s: %v%s\n", k, plan.ResolvedArgs[k], source)
	}
}
