// SPDX-License-Identifier: AGPL-3.0-or-later
package schemastore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaNotFound is returned by Resolve when the requested action has no
	// schema file. Callers may apply a fallback policy.
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrMissingReference marks a declared nested reference that does not
	// resolve. It is always fatal and deliberately distinct from ErrSchemaNotFound.
	ErrMissingReference = errors.New("referenced schema not found")
)

// ConfigError reports a schema file that could not be parsed.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("invalid schema %s: %v", e.Path, e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }

// ReferenceError reports a nested schema reference that failed to resolve.
type ReferenceError struct {
	From   string
	Option string
	Ref    string
	Err    error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: option %q references %q: %v", e.From, e.Option, e.Ref, e.Err)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

// CycleError reports a schema that (transitively) references itself.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return "cyclic schema reference: " + strings.Join(e.Chain, " -> ")
}
