// SPDX-License-Identifier: AGPL-3.0-or-later

// Package resolver fills an action's declared arguments from supplied
// options, positional tokens, defaults and interactive prompts.
//
// Resolution is a fold: every value the resolver decides on is recorded as an
// Update and applied to the shared option map in order. Branches selected by
// an option write into the same flat map, so a later update for a name
// overwrites an earlier one.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowd-org/ask/internal/types"
)

// Source records where a resolved value came from.
type Source string

const (
	SourceSupplied   Source = "supplied"
	SourcePositional Source = "positional"
	SourceDefault    Source = "default"
	SourcePrompt     Source = "prompt"
)

// Update is one step of the resolution fold.
type Update struct {
	Name   string
	Value  interface{}
	Source Source
	// Branch is the schema that declared the argument.
	Branch string
	Secret bool
}

// Fold applies updates to a copy of base, last write wins.
func Fold(base types.Options, updates []Update) types.Options {
	out := base.Clone()
	for _, u := range updates {
		out[u.Name] = u.Value
	}
	return out
}

// Prompter asks the user for one argument value.
type Prompter interface {
	Ask(ctx context.Context, arg *types.ArgumentSchema) (string, error)
}

// ProviderInvoker runs argument-level dynamic providers.
type ProviderInvoker interface {
	Has(class string) bool
	Invoke(ctx context.Context, ref types.ProviderRef, folder string, accumulated map[string]interface{}) (interface{}, error)
}

// Expander expands a schema produced at resolution time, the same way the
// schema store expands schemas read from files.
type Expander interface {
	Expand(ctx context.Context, schema *types.ActionSchema) error
}

// ArgError reports a structural problem found while resolving an argument.
type ArgError struct {
	Schema string
	Arg    string
	Msg    string
	Err    error
}

func (e *ArgError) Error() string {
	msg := fmt.Sprintf("%s: argument %q: %s", e.Schema, e.Arg, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArgError) Unwrap() error { return e.Err }

// Option configures a Resolver.
type Option func(*Resolver)

// WithProviders enables argument-level providers.
func WithProviders(p ProviderInvoker) Option {
	return func(r *Resolver) { r.providers = p }
}

// WithExpander expands schemas returned by argument-level providers.
func WithExpander(e Expander) Option {
	return func(r *Resolver) { r.expander = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers fn to be called with every update as it is applied.
func WithObserver(fn func(Update)) Option {
	return func(r *Resolver) { r.observe = fn }
}

// Resolver fills option maps. It holds no per-call state and may be reused
// for consecutive dispatches.
type Resolver struct {
	prompter  Prompter
	providers ProviderInvoker
	expander  Expander
	logger    *slog.Logger
	observe   func(Update)
}

func New(prompter Prompter, opts ...Option) *Resolver {
	r := &Resolver{prompter: prompter, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fill resolves every argument of schema (and of every branch the values
// select) into options, which is mutated in place. It returns the updates in
// the order they were applied.
func (r *Resolver) Fill(ctx context.Context, schema *types.ActionSchema, options types.Options) ([]Update, error) {
	if options == nil {
		return nil, errors.New("resolver: nil option map")
	}
	f := &fold{r: r, acc: options}
	if err := f.fill(ctx, schema); err != nil {
		return f.updates, err
	}
	return f.updates, nil
}

type fold struct {
	r       *Resolver
	acc     types.Options
	updates []Update
}

func (f *fold) apply(u Update) {
	f.acc[u.Name] = u.Value
	f.updates = append(f.updates, u)
	f.r.logger.Debug("argument resolved",
		slog.String("argument", u.Name),
		slog.String("source", string(u.Source)),
		slog.String("branch", u.Branch))
	if f.r.observe != nil {
		f.r.observe(u)
	}
}

func (f *fold) fill(ctx context.Context, schema *types.ActionSchema) error {
	if schema == nil {
		return nil
	}
	for _, arg := range schema.Arguments {
		if err := f.resolveArgument(ctx, schema, arg); err != nil {
			return err
		}
	}
	return nil
}

func (f *fold) resolveArgument(ctx context.Context, schema *types.ActionSchema, arg *types.ArgumentSchema) error {
	name := arg.Name
	base := Update{Name: name, Branch: schema.DisplayName(), Secret: arg.Secret}

	aliased := false
	if !f.acc.Has(name) && arg.PositionalIndex != nil {
		if v, ok := f.acc[types.PositionalKey(*arg.PositionalIndex)]; ok && v != nil {
			u := base
			u.Value, u.Source = v, SourcePositional
			f.apply(u)
			aliased = true
		}
	}

	if f.acc.Has(name) {
		value := f.acc[name]
		if arg.Options.Len() == 0 {
			f.recordSupplied(base, value, aliased)
			return nil
		}
		if entry, ok := arg.Options.Lookup(types.ValueString(value)); ok {
			f.recordSupplied(base, value, aliased)
			return f.fill(ctx, entry.Nested())
		}
		f.r.logger.Debug("discarding value outside option set", slog.String("argument", name))
	}

	u := base
	if arg.HasDefault {
		u.Value, u.Source = arg.Default, SourceDefault
	} else {
		if f.r.prompter == nil {
			return &ArgError{Schema: schema.DisplayName(), Arg: name, Msg: "value required and no prompter available"}
		}
		answer, err := f.r.prompter.Ask(ctx, arg)
		if err != nil {
			return err
		}
		u.Value, u.Source = answer, SourcePrompt
	}
	f.apply(u)

	if entry, ok := arg.Options.Lookup(types.ValueString(u.Value)); ok && entry.Nested() != nil {
		return f.fill(ctx, entry.Nested())
	}
	if arg.Provider != nil && f.r.providers != nil && f.r.providers.Has(arg.Provider.Class) {
		return f.followProvider(ctx, schema, arg, u.Value)
	}
	return nil
}

// recordSupplied notes a value that was already in the map when the argument
// was reached. A value just aliased from a positional token is already recorded.
func (f *fold) recordSupplied(base Update, value interface{}, aliased bool) {
	if aliased {
		return
	}
	u := base
	u.Value, u.Source = value, SourceSupplied
	f.apply(u)
}

func (f *fold) followProvider(ctx context.Context, schema *types.ActionSchema, arg *types.ArgumentSchema, value interface{}) error {
	ref := *arg.Provider
	out, err := f.r.providers.Invoke(ctx, ref, schema.Folder, map[string]interface{}(f.acc.Clone()))
	if err != nil {
		return &ArgError{Schema: schema.DisplayName(), Arg: arg.Name, Msg: "provider " + ref.String(), Err: err}
	}

	switch out.(type) {
	case nil:
		return nil
	case map[string]interface{}, *types.ActionSchema, types.ActionSchema:
		nested, err := types.SchemaFromValue(out)
		if err != nil {
			return &ArgError{Schema: schema.DisplayName(), Arg: arg.Name, Msg: "provider " + ref.String(), Err: err}
		}
		if nested.Name == "" {
			nested.Name = schema.Name + "/" + arg.Name
			nested.Folder = schema.Folder
			nested.Source = schema.Source
		}
		if f.r.expander != nil {
			if err := f.r.expander.Expand(ctx, nested); err != nil {
				return err
			}
		}
		return f.fill(ctx, nested)
	default:
		set, err := types.OptionSetFromValue(out)
		if err != nil {
			return &ArgError{Schema: schema.DisplayName(), Arg: arg.Name, Msg: "provider " + ref.String() + " returned an unusable result", Err: err}
		}
		if entry, ok := set.Lookup(types.ValueString(value)); ok {
			return f.fill(ctx, entry.Nested())
		}
		return nil
	}
}
