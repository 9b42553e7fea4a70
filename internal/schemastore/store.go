// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schemastore resolves action names to fully expanded schemas.
//
// Expansion rewrites every argument's options in place:
//
//	true              -> nested schema at <action>/<option> (dropped silently when absent)
//	false             -> option removed
//	"some/path"       -> nested schema at that path (must exist)
//	{providerClass..} -> provider result (an option set, or a schema for a single option)
//	{...}             -> inline schema, expanded the same way
//
// Expanded schemas are memoised per action path for the life of the Store so
// providers run at most once per process.
package schemastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowd-org/ask/internal/configloader"
	"github.com/flowd-org/ask/internal/types"
)

// ProviderInvoker runs dynamic option providers.
type ProviderInvoker interface {
	Has(class string) bool
	Invoke(ctx context.Context, ref types.ProviderRef, folder string, accumulated map[string]interface{}) (interface{}, error)
}

// Store loads, expands and caches schemas. It is not safe for concurrent use;
// a dispatch runs on a single goroutine.
type Store struct {
	locator   *Locator
	providers ProviderInvoker
	logger    *slog.Logger
	cache     map[string]*types.ActionSchema
}

// New returns a Store. providers may be nil when no schema uses providers.
func New(locator *Locator, providers ProviderInvoker, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		locator:   locator,
		providers: providers,
		logger:    logger,
		cache:     make(map[string]*types.ActionSchema),
	}
}

// Locator exposes the underlying locator.
func (s *Store) Locator() *Locator { return s.locator }

// Resolve returns the expanded schema for action. A missing top-level schema
// yields an error matching ErrSchemaNotFound; any failure below the top level
// is fatal and never matches it.
func (s *Store) Resolve(ctx context.Context, action string) (*types.ActionSchema, error) {
	return s.load(ctx, ActionPath(action), nil)
}

// Expand expands a schema that did not come from a file (for example one
// returned by an argument-level provider).
func (s *Store) Expand(ctx context.Context, schema *types.ActionSchema) error {
	return s.expand(ctx, schema, nil)
}

func (s *Store) load(ctx context.Context, p string, chain []string) (*types.ActionSchema, error) {
	if cached, ok := s.cache[p]; ok {
		s.logger.Debug("schema cache hit", slog.String("action", p))
		return cached, nil
	}
	for _, visited := range chain {
		if visited == p {
			return nil, &CycleError{Chain: append(append([]string(nil), chain...), p)}
		}
	}

	loc, err := s.locator.Find(p)
	if err != nil {
		return nil, err
	}
	data, err := loc.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", loc, err)
	}
	schema, err := configloader.DecodeSchema(loc.Path, data)
	if err != nil {
		return nil, &ConfigError{Path: loc.String(), Err: err}
	}
	schema.Name = p
	schema.Folder = loc.Folder()
	schema.Source = loc.String()
	s.logger.Debug("schema located", slog.String("action", p), slog.String("source", schema.Source))

	next := append(append([]string(nil), chain...), p)
	if err := s.expand(ctx, schema, next); err != nil {
		return nil, err
	}
	s.cache[p] = schema
	return schema, nil
}

func (s *Store) expand(ctx context.Context, schema *types.ActionSchema, chain []string) error {
	for _, arg := range schema.Arguments {
		if arg.Options == nil {
			continue
		}
		if ref := arg.Options.Provider; ref != nil {
			out, err := s.invoke(ctx, *ref, schema.Folder)
			if err != nil {
				return fmt.Errorf("%s: argument %q: %w", schema.DisplayName(), arg.Name, err)
			}
			set, err := types.OptionSetFromValue(out)
			if err != nil {
				return fmt.Errorf("%s: argument %q: provider %s: %w", schema.DisplayName(), arg.Name, ref, err)
			}
			arg.Options = set
		}

		kept := make([]types.OptionEntry, 0, len(arg.Options.Entries))
		for _, entry := range arg.Options.Entries {
			def := entry.Def
			if def == nil {
				kept = append(kept, entry)
				continue
			}
			nestedPath := schema.Name + "/" + entry.Key
			switch {
			case def.Disabled:
				continue
			case def.Conventional:
				nested, err := s.load(ctx, nestedPath, chain)
				switch {
				case errors.Is(err, ErrSchemaNotFound):
					s.logger.Debug("no conventional schema for option", slog.String("path", nestedPath))
				case err != nil:
					return &ReferenceError{From: schema.DisplayName(), Option: entry.Key, Ref: nestedPath, Err: err}
				default:
					def.Schema = nested
				}
				def.Conventional = false
			case def.Ref != "":
				nested, err := s.load(ctx, ActionPath(def.Ref), chain)
				if errors.Is(err, ErrSchemaNotFound) {
					err = ErrMissingReference
				}
				if err != nil {
					return &ReferenceError{From: schema.DisplayName(), Option: entry.Key, Ref: def.Ref, Err: err}
				}
				def.Schema = nested
				def.Ref = ""
			case def.Provider != nil:
				out, err := s.invoke(ctx, *def.Provider, schema.Folder)
				if err != nil {
					return fmt.Errorf("%s: option %q: %w", schema.DisplayName(), entry.Key, err)
				}
				nested, err := types.SchemaFromValue(out)
				if err != nil {
					return fmt.Errorf("%s: option %q: provider %s: %w", schema.DisplayName(), entry.Key, def.Provider, err)
				}
				s.adopt(schema, nested, nestedPath)
				if err := s.expand(ctx, nested, chain); err != nil {
					return err
				}
				def.Schema = nested
				def.Provider = nil
			case def.Schema != nil:
				s.adopt(schema, def.Schema, nestedPath)
				if err := s.expand(ctx, def.Schema, chain); err != nil {
					return err
				}
			}
			if def.Label == "" && def.Schema != nil {
				def.Label = def.Schema.Label
			}
			kept = append(kept, entry)
		}
		arg.Options.Entries = kept
	}
	return nil
}

// adopt gives an inline or provider-made schema the identity of its parent file.
func (s *Store) adopt(parent, nested *types.ActionSchema, p string) {
	nested.Name = p
	nested.Folder = parent.Folder
	nested.Source = parent.Source
}

func (s *Store) invoke(ctx context.Context, ref types.ProviderRef, folder string) (interface{}, error) {
	if s.providers == nil || !s.providers.Has(ref.Class) {
		return nil, fmt.Errorf("unknown provider class %q", ref.Class)
	}
	return s.providers.Invoke(ctx, ref, folder, nil)
}
