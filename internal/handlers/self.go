// SPDX-License-Identifier: AGPL-3.0-or-later
package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowd-org/ask/internal/engine"
	"github.com/flowd-org/ask/internal/indexer"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/flowd-org/ask/internal/types"
)

// ErrReentry is returned if the reserved entry point is ever invoked.
var ErrReentry = errors.New("the ask entry point cannot be dispatched to")

// Self is the dispatcher's own namespace.
type Self struct {
	roots    []schemastore.Root
	aliases  []types.ActionAlias
	registry *engine.Registry
	logger   *slog.Logger
}

// Auto is the reserved entry point; the dispatcher refuses to target it.
func (s *Self) Auto(context.Context, types.Options, types.Env) (interface{}, error) {
	return nil, ErrReentry
}

// Actions lists every discovered action name followed by alias names.
func (s *Self) Actions(context.Context, types.Options, types.Env) (interface{}, error) {
	res, err := indexer.Discover(s.roots, s.aliases)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		for _, de := range res.Errors {
			s.logger.Warn("action discovery", slog.String("path", de.Path), slog.String("error", de.Err))
		}
	}
	names := make([]string, 0, len(res.Actions)+len(res.Aliases))
	for _, a := range res.Actions {
		names = append(names, a.Name)
	}
	for _, a := range res.Aliases {
		names = append(names, a.Name+" -> "+a.Target)
	}
	return names, nil
}

// Handlers lists the registered handlers as namespace.method.
func (s *Self) Handlers(context.Context, types.Options, types.Env) (interface{}, error) {
	hs := s.registry.Handlers()
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, h.String())
	}
	return out, nil
}
