// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

// DispatchContext is the ambient information a dispatch falls back on. It is
// built once at startup.
type DispatchContext struct {
	// DefaultNamespace owns handlers declared without a namespace.
	DefaultNamespace string
	// DefaultMethod is used when a schema names no handler at all.
	DefaultMethod string
	// SelfNamespaces are the dispatcher's own namespaces; they get the
	// re-entry guard.
	SelfNamespaces []string
	// ReservedMethod is the top-level entry point that must never be a target.
	ReservedMethod string
	// ConfirmAction is resolved through the schema store for askConfirm.
	ConfirmAction string
	// FallbackEvents are action names dispatched to DefaultNamespace even
	// without a schema.
	FallbackEvents []string
}

const (
	DefaultReservedMethod = "auto"
	DefaultConfirmAction  = "confirm"
	// ConfirmArgument is the confirm schema's yes/no argument.
	ConfirmArgument = "status"
	// ConfirmYes is the only affirmative answer.
	ConfirmYes = "y"
)

func (c DispatchContext) withDefaults() DispatchContext {
	if c.ReservedMethod == "" {
		c.ReservedMethod = DefaultReservedMethod
	}
	if c.ConfirmAction == "" {
		c.ConfirmAction = DefaultConfirmAction
	}
	return c
}

// IsSelf reports whether namespace belongs to the dispatcher itself.
func (c DispatchContext) IsSelf(namespace string) bool {
	for _, ns := range c.SelfNamespaces {
		if ns == namespace {
			return true
		}
	}
	return false
}

// IsFallbackEvent reports whether action may dispatch without a schema.
func (c DispatchContext) IsFallbackEvent(action string) bool {
	for _, ev := range c.FallbackEvents {
		if ev == action {
			return true
		}
	}
	return false
}
