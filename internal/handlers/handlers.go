// SPDX-License-Identifier: AGPL-3.0-or-later

// Package handlers holds the handlers ask ships with.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/flowd-org/ask/internal/engine"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/flowd-org/ask/internal/types"
)

const (
	NamespaceScript = "script"
	NamespaceEcho   = "echo"
)

// Config carries what the built-in handlers need from the host.
type Config struct {
	Stdout        io.Writer
	Stderr        io.Writer
	SelfNamespace string
	Roots         []schemastore.Root
	Aliases       []types.ActionAlias
	Logger        *slog.Logger
}

// Register adds the built-in handlers to r.
func Register(r *engine.Registry, cfg Config) {
	engine.Method(r, NamespaceScript, "run", func() *Script {
		return &Script{Stdout: cfg.Stdout, Stderr: cfg.Stderr}
	}, (*Script).Run)
	r.Describe(NamespaceScript, "run", "Run params.script through params.interpreter")

	r.Func(NamespaceEcho, "options", EchoOptions)
	r.Describe(NamespaceEcho, "options", "Return the resolved options")

	if cfg.SelfNamespace != "" {
		self := &Self{roots: cfg.Roots, aliases: cfg.Aliases, registry: r, logger: cfg.Logger}
		r.Func(cfg.SelfNamespace, engine.DefaultReservedMethod, self.Auto)
		r.Describe(cfg.SelfNamespace, engine.DefaultReservedMethod, "Top-level entry point (not dispatchable)")
		r.Func(cfg.SelfNamespace, "actions", self.Actions)
		r.Describe(cfg.SelfNamespace, "actions", "List discovered actions")
		r.Func(cfg.SelfNamespace, "handlers", self.Handlers)
		r.Describe(cfg.SelfNamespace, "handlers", "List registered handlers")
	}
}

// EchoOptions returns the named options.
func EchoOptions(_ context.Context, opts types.Options, _ types.Env) (interface{}, error) {
	named, _ := opts.Named()
	return map[string]interface{}(named), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
