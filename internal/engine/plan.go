// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"github.com/flowd-org/ask/internal/events"
	"github.com/flowd-org/ask/internal/resolver"
	"github.com/flowd-org/ask/internal/types"
)

// BuildPlan produces a preview of a resolved dispatch.
// Secrets are redacted (replaced with "[secret]").
func BuildPlan(dispatchID string, schema *types.ActionSchema, handler Handler, bind *Binding, updates []resolver.Update) types.Plan {
	plan := types.Plan{DispatchID: dispatchID, Handler: handler.String(), HandlerKind: string(handler.Kind)}
	if schema != nil {
		plan.Action = schema.DisplayName()
		plan.Folder = schema.Folder
		plan.AskConfirm = schema.AskConfirm
		plan.EchoResult = schema.EchoResult
	}

	if bind != nil {
		resolved := events.RedactSecrets(bind.Values, bind.SecretNames)
		if len(resolved) > 0 {
			plan.ResolvedArgs = resolved
		}
		if len(bind.ScalarEnv) > 0 {
			plan.Env = bind.ScalarEnv
		}
	}

	if len(updates) > 0 {
		plan.Sources = make(map[string]string, len(updates))
		for _, u := range updates {
			plan.Sources[u.Name] = string(u.Source)
		}
	}
	return plan
}
