// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowd-org/ask/internal/argv"
	"github.com/flowd-org/ask/internal/configloader"
	"github.com/flowd-org/ask/internal/coredb"
	"github.com/flowd-org/ask/internal/engine"
	"github.com/flowd-org/ask/internal/events"
	"github.com/flowd-org/ask/internal/handlers"
	"github.com/flowd-org/ask/internal/logging"
	"github.com/flowd-org/ask/internal/paths"
	"github.com/flowd-org/ask/internal/prompt"
	"github.com/flowd-org/ask/internal/providers"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/flowd-org/ask/internal/types"
)

// App is the wired set of components behind one command run.
type App struct {
	Config      configloader.AppConfig
	Logger      *slog.Logger
	Roots       []schemastore.Root
	Store       *schemastore.Store
	Providers   *providers.Registry
	Registry    *engine.Registry
	Dispatcher  *engine.Dispatcher
	EnvDefaults map[string]string

	db      *coredb.DB
	journal *coredb.Journal
}

type appOptions struct {
	// withJournal opens the Core DB even if the run would not record events.
	withJournal bool
}

func newApp(ctx context.Context, g argv.Globals, s Streams, opts appOptions) (*App, error) {
	cfg, err := configloader.LoadAppConfig(configloader.LoadOptions{
		WorkingDirectory: s.WorkDir,
		ExplicitFilePath: g.ConfigFile,
	})
	if err != nil {
		return nil, err
	}

	levelName := cfg.LogLevel
	if g.LogLevel != "" {
		levelName = g.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger := logging.New(s.Err, logging.Verbosity(level, g.Verbose))
	if cfg.File != "" {
		logger.Debug("configuration loaded", slog.String("file", cfg.File))
	}

	if cfg.DataDir != "" {
		paths.SetDataDirOverride(cfg.Resolve(cfg.DataDir))
	}

	app := &App{Config: cfg, Logger: logger}
	app.Roots = schemaRoots(cfg)

	app.Providers = providers.NewRegistry(logger)
	providers.RegisterBuiltins(app.Providers)
	app.Store = schemastore.New(schemastore.NewLocator(app.Roots...), app.Providers, logger)

	app.Registry = engine.NewRegistry()
	handlers.Register(app.Registry, handlers.Config{
		Stdout:        s.Out,
		Stderr:        s.Err,
		SelfNamespace: cfg.SelfNamespace,
		Roots:         app.Roots,
		Aliases:       cfg.Aliases,
		Logger:        logger,
	})

	if cfg.Journal.Enabled && (opts.withJournal || !g.NoJournal) {
		db, err := coredb.Open(ctx, coredb.Options{JournalMaxBytes: cfg.Journal.MaxBytes})
		if err != nil {
			logger.Warn("dispatch journal unavailable", slog.String("error", err.Error()))
		} else {
			app.db = db
			app.journal = db.Journal()
		}
	}

	var sinks []events.Sink
	if g.Events {
		sinks = append(sinks, events.NewEmitter(s.Err, g.JSON))
	}
	if app.journal != nil && !g.NoJournal {
		if js := events.NewJournalSink(ctx, app.journal, logger); js != nil {
			sinks = append(sinks, js)
		}
	}

	envDefaults, err := configloader.LoadEnvDefaults(cfg.Resolve(cfg.EnvFile))
	if err != nil {
		app.Close()
		return nil, err
	}
	app.EnvDefaults = envDefaults

	var selfNamespaces []string
	if cfg.SelfNamespace != "" {
		selfNamespaces = []string{cfg.SelfNamespace}
	}
	app.Dispatcher = engine.New(engine.Options{
		Context: engine.DispatchContext{
			DefaultNamespace: cfg.DefaultNamespace,
			DefaultMethod:    cfg.DefaultMethod,
			SelfNamespaces:   selfNamespaces,
			FallbackEvents:   cfg.FallbackEvents,
		},
		Store:     app.Store,
		Registry:  app.Registry,
		Prompter:  prompt.NewEngine(s.In, s.Out, logger),
		Providers: app.Providers,
		Expander:  app.Store,
		Out:       s.Out,
		Sink:      events.NewCompositeSink(sinks...),
		Logger:    logger,
	})
	return app, nil
}

// schemaRoots orders contributors, the working-directory schema dir and the
// built-in schemas.
func schemaRoots(cfg configloader.AppConfig) []schemastore.Root {
	specs := make([]paths.RootSpec, 0, len(cfg.Contributors))
	for _, c := range cfg.Contributors {
		specs = append(specs, paths.RootSpec{Name: c.Name, Dir: c.Root})
	}
	roots := schemastore.RootsFromSpecs(paths.SchemaRoots(specs, cfg.BaseDir, cfg.SchemaDir))
	return append(roots, schemastore.BuiltinRoot())
}

// Journal returns the dispatch journal, nil when disabled or unavailable.
func (a *App) Journal() *coredb.Journal { return a.journal }

// DB returns the Core DB, nil when disabled or unavailable.
func (a *App) DB() *coredb.DB { return a.db }

// Close releases the Core DB.
func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Options merges env-file defaults under the supplied options.
func (a *App) Options(supplied types.Options) types.Options {
	opts := supplied.Clone()
	for k, v := range a.EnvDefaults {
		if _, ok := opts[k]; !ok {
			opts[k] = v
		}
	}
	return opts
}

// ResolveAction applies aliases and loads the schema, turning a top-level
// miss into NoActionError unless the name is a fallback event.
func (a *App) ResolveAction(ctx context.Context, name string) (string, *types.ActionSchema, error) {
	action := configloader.ResolveAlias(a.Config.Aliases, name)
	schema, err := a.Store.Resolve(ctx, action)
	if errors.Is(err, schemastore.ErrSchemaNotFound) {
		if a.Config.IsFallbackEvent(action) {
			return action, nil, nil
		}
		return action, nil, &NoActionError{Action: name}
	}
	if err != nil {
		return action, nil, err
	}
	return action, schema, nil
}

func runAction(ctx context.Context, s Streams, inv argv.Invocation) error {
	app, err := newApp(ctx, inv.Globals, s, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	action, _, err := app.ResolveAction(ctx, inv.Action)
	if err != nil {
		return err
	}
	env := types.Env{
		engine.EnvInvocationName: inv.Action,
		engine.EnvInvocationType: "cli",
		engine.EnvDispatchID:     events.GenerateDispatchID(),
	}
	_, err = app.Dispatcher.Run(ctx, action, app.Options(inv.Options), env)
	return err
}
