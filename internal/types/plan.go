// SPDX-License-Identifier: AGPL-3.0-or-later
package types

// Plan is a preview of a dispatch: the handler that would run and the
// resolved arguments it would receive. Secret values are redacted.
type Plan struct {
	DispatchID   string                 `json:"dispatch_id,omitempty" yaml:"dispatchId,omitempty"`
	Action       string                 `json:"action" yaml:"action"`
	Handler      string                 `json:"handler" yaml:"handler"`
	HandlerKind  string                 `json:"handler_kind,omitempty" yaml:"handlerKind,omitempty"`
	Folder       string                 `json:"folder,omitempty" yaml:"folder,omitempty"`
	AskConfirm   bool                   `json:"ask_confirm,omitempty" yaml:"askConfirm,omitempty"`
	EchoResult   bool                   `json:"echo_result,omitempty" yaml:"echoResult,omitempty"`
	ResolvedArgs map[string]interface{} `json:"resolved_args,omitempty" yaml:"resolvedArgs,omitempty"`
	Sources      map[string]string      `json:"sources,omitempty" yaml:"sources,omitempty"`
	Env          map[string]string      `json:"env,omitempty" yaml:"env,omitempty"`
}
