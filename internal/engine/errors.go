// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import "fmt"

// HandlerError reports a handler that cannot be invoked: nothing resolvable,
// not registered, or a forbidden self-dispatch.
type HandlerError struct {
	Action    string
	Namespace string
	Method    string
	Reason    string
}

func (e *HandlerError) Error() string {
	target := e.Method
	if e.Namespace != "" {
		target = e.Namespace + "." + e.Method
	}
	if target == "" {
		target = "<none>"
	}
	if e.Action != "" {
		return fmt.Sprintf("invalid handler %s for %s: %s", target, e.Action, e.Reason)
	}
	return fmt.Sprintf("invalid handler %s: %s", target, e.Reason)
}
