// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine turns a resolved action schema into a handler call.
//
// A dispatch moves through Idle, ResolvingArguments, Confirming (only with
// askConfirm), Ready, Invoking and Done. A rejected confirmation goes straight
// to Done with a nil result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/flowd-org/ask/internal/events"
	"github.com/flowd-org/ask/internal/resolver"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/flowd-org/ask/internal/types"
	"github.com/flowd-org/ask/internal/ui/style"
	"gopkg.in/yaml.v3"
)

// Env keys set by the dispatcher.
const (
	EnvAction         = "action"
	EnvInvocationName = "invocationName"
	EnvInvocationType = "invocationType"
	EnvDispatchID     = "dispatchId"
	EnvFolder         = "folder"
	EnvHandlerParams  = "handlerParams"
	EnvBinding        = "binding"
	EnvSink           = "events"
)

// Separator is printed before every dispatch.
var Separator = strings.Repeat("-", 48)

// State is a dispatch lifecycle state.
type State int

const (
	StateIdle State = iota
	StateResolvingArguments
	StateConfirming
	StateReady
	StateInvoking
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingArguments:
		return "resolving-arguments"
	case StateConfirming:
		return "confirming"
	case StateReady:
		return "ready"
	case StateInvoking:
		return "invoking"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SchemaResolver loads expanded schemas by action name.
type SchemaResolver interface {
	Resolve(ctx context.Context, action string) (*types.ActionSchema, error)
}

// Options wires a Dispatcher.
type Options struct {
	Context   DispatchContext
	Store     SchemaResolver
	Registry  *Registry
	Prompter  resolver.Prompter
	Providers resolver.ProviderInvoker
	Expander  resolver.Expander
	Out       io.Writer
	Sink      events.Sink
	Logger    *slog.Logger
}

// Dispatcher runs actions. One dispatch runs at a time.
type Dispatcher struct {
	dctx      DispatchContext
	store     SchemaResolver
	registry  *Registry
	prompter  resolver.Prompter
	providers resolver.ProviderInvoker
	expander  resolver.Expander
	out       io.Writer
	sink      events.Sink
	logger    *slog.Logger
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		dctx:      opts.Context.withDefaults(),
		store:     opts.Store,
		registry:  opts.Registry,
		prompter:  opts.Prompter,
		providers: opts.Providers,
		expander:  opts.Expander,
		out:       opts.Out,
		sink:      opts.Sink,
		logger:    opts.Logger,
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	if d.out == nil {
		d.out = io.Discard
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Context returns the dispatch context in effect.
func (d *Dispatcher) Context() DispatchContext { return d.dctx }

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Run resolves action through the schema store and dispatches it. A missing
// schema for a fallback event dispatches to DefaultNamespace with the action
// name as method; any other miss returns the ErrSchemaNotFound error.
func (d *Dispatcher) Run(ctx context.Context, action string, opts types.Options, env types.Env) (interface{}, error) {
	schema, err := d.resolveAction(ctx, action)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = types.Env{}
	}
	if _, ok := env[EnvAction]; !ok {
		env[EnvAction] = action
	}
	return d.Dispatch(ctx, schema, opts, env)
}

func (d *Dispatcher) resolveAction(ctx context.Context, action string) (*types.ActionSchema, error) {
	if d.store == nil {
		return nil, errors.New("engine: no schema store configured")
	}
	schema, err := d.store.Resolve(ctx, action)
	if errors.Is(err, schemastore.ErrSchemaNotFound) && d.dctx.IsFallbackEvent(action) {
		d.logger.Info("no schema for event, using default handler",
			slog.String("action", action),
			slog.String("namespace", d.dctx.DefaultNamespace))
		return &types.ActionSchema{
			Name:    schemastore.ActionPath(action),
			Handler: &types.HandlerRef{Namespace: d.dctx.DefaultNamespace, Method: action},
		}, nil
	}
	return schema, err
}

// Dispatch fills opts against schema, resolves and checks the handler, asks
// for confirmation when the schema wants it and invokes the handler. Handler
// errors are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, schema *types.ActionSchema, opts types.Options, env types.Env) (result interface{}, err error) {
	if schema == nil {
		return nil, errors.New("engine: nil schema")
	}
	if opts == nil {
		opts = types.Options{}
	}
	if env == nil {
		env = types.Env{}
	}
	id := dispatchID(env)
	action := schema.DisplayName()
	fmt.Fprintln(d.out, style.Muted(Separator))

	d.transition(id, StateIdle)
	d.emitStart(id, action)
	handlerName := ""
	defer func() {
		d.transition(id, StateDone)
		status := events.StatusCompleted
		switch {
		case err != nil:
			status = events.StatusFailed
		case result == nil && handlerName == "":
			status = events.StatusRejected
		}
		if d.sink != nil {
			d.sink.EmitDispatchFinish(id, handlerName, status, err)
		}
	}()

	d.transition(id, StateResolvingArguments)
	updates, err := d.fill(ctx, id, schema, opts)
	if err != nil {
		return nil, err
	}

	target, owner, err := d.resolveHandler(schema, opts)
	if err != nil {
		return nil, err
	}

	if schema.AskConfirm {
		d.transition(id, StateConfirming)
		accepted, err := d.confirm(ctx, id)
		if err != nil {
			return nil, err
		}
		if !accepted {
			d.logger.Info("confirmation rejected", slog.String("action", action))
			return nil, nil
		}
	}
	handler, err := d.checkHandler(action, target)
	if err != nil {
		return nil, err
	}
	d.logger.Info("handler resolved",
		slog.String("action", action),
		slog.String("handler", handler.String()),
		slog.String("kind", string(handler.Kind)))
	d.transition(id, StateReady)

	bind, err := Bind(schema, opts)
	if err != nil {
		return nil, err
	}
	env[EnvDispatchID] = id
	if _, ok := env[EnvFolder]; !ok {
		env[EnvFolder] = owner.Folder
	}
	env[EnvHandlerParams] = handlerParams(schema, owner)
	env[EnvBinding] = bind
	if d.sink != nil {
		env[EnvSink] = d.sink
	}
	d.logger.Debug("dispatch bound", slog.Int("updates", len(updates)), slog.String("dispatch_id", id))

	d.transition(id, StateInvoking)
	handlerName = handler.String()
	result, err = handler.Invoke(ctx, opts, env)
	if err != nil {
		return result, err
	}
	if schema.EchoResult {
		if err := d.echo(result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Plan fills opts and resolves the handler without confirming or invoking.
func (d *Dispatcher) Plan(ctx context.Context, schema *types.ActionSchema, opts types.Options) (types.Plan, error) {
	if opts == nil {
		opts = types.Options{}
	}
	updates, err := d.fill(ctx, "", schema, opts)
	if err != nil {
		return types.Plan{}, err
	}
	target, _, err := d.resolveHandler(schema, opts)
	if err != nil {
		return types.Plan{}, err
	}
	handler, err := d.checkHandler(schema.DisplayName(), target)
	if err != nil {
		return types.Plan{}, err
	}
	bind, err := Bind(schema, opts)
	if err != nil {
		return types.Plan{}, err
	}
	return BuildPlan("", schema, handler, bind, updates), nil
}

func (d *Dispatcher) fill(ctx context.Context, id string, schema *types.ActionSchema, opts types.Options) ([]resolver.Update, error) {
	r := resolver.New(d.prompter,
		resolver.WithProviders(d.providers),
		resolver.WithExpander(d.expander),
		resolver.WithLogger(d.logger),
		resolver.WithObserver(func(u resolver.Update) {
			if d.sink != nil && id != "" {
				d.sink.EmitArgumentResolved(id, u.Name, events.RedactValue(u.Value, u.Secret), string(u.Source))
			}
		}),
	)
	return r.Fill(ctx, schema, opts)
}

// resolveHandler picks the handler reference (through commandKey when set)
// and applies the ambient defaults. It also returns the schema that supplied
// the reference.
func (d *Dispatcher) resolveHandler(schema *types.ActionSchema, opts types.Options) (types.HandlerRef, *types.ActionSchema, error) {
	action := schema.DisplayName()
	owner := schema
	var ref *types.HandlerRef

	if key := schema.CommandKey; key != "" {
		arg := schema.Argument(key)
		if arg == nil {
			return types.HandlerRef{}, nil, &HandlerError{Action: action, Reason: fmt.Sprintf("commandKey %q is not a declared argument", key)}
		}
		if entry, ok := arg.Options.Lookup(opts.String(key)); ok && entry.Nested() != nil {
			owner = entry.Nested()
			ref = owner.Handler
		}
	} else {
		ref = schema.Handler
	}

	target := types.HandlerRef{Namespace: d.dctx.DefaultNamespace, Method: d.dctx.DefaultMethod}
	if ref != nil {
		target = *ref
		if target.Namespace == "" {
			target.Namespace = d.dctx.DefaultNamespace
		}
	}
	if target.Method == "" {
		return types.HandlerRef{}, nil, &HandlerError{Action: action, Namespace: target.Namespace, Reason: "no method resolvable"}
	}
	return target, owner, nil
}

// checkHandler applies the self-namespace guard and looks target up in the
// registry. Dispatch runs it after confirmation.
func (d *Dispatcher) checkHandler(action string, target types.HandlerRef) (Handler, error) {
	if d.dctx.IsSelf(target.Namespace) {
		if target.Method == d.dctx.ReservedMethod {
			return Handler{}, &HandlerError{Action: action, Namespace: target.Namespace, Method: target.Method, Reason: "re-entering the dispatch entry point is forbidden"}
		}
		if !d.registry.Has(target.Namespace, target.Method) {
			return Handler{}, &HandlerError{Action: action, Namespace: target.Namespace, Method: target.Method, Reason: "no such method on the dispatcher"}
		}
	}
	h, ok := d.registry.Lookup(target.Namespace, target.Method)
	if !ok {
		return Handler{}, &HandlerError{Action: action, Namespace: target.Namespace, Method: target.Method, Reason: "handler not registered"}
	}
	return h, nil
}

func (d *Dispatcher) confirm(ctx context.Context, id string) (bool, error) {
	if d.store == nil {
		return false, errors.New("engine: no schema store configured")
	}
	schema, err := d.store.Resolve(ctx, d.dctx.ConfirmAction)
	if err != nil {
		return false, fmt.Errorf("load %s schema: %w", d.dctx.ConfirmAction, err)
	}
	answers := types.Options{}
	if _, err := d.fill(ctx, "", schema, answers); err != nil {
		return false, err
	}
	accepted := answers.String(ConfirmArgument) == ConfirmYes
	if d.sink != nil {
		d.sink.EmitConfirm(id, accepted)
	}
	return accepted, nil
}

func (d *Dispatcher) echo(result interface{}) error {
	switch v := result.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(d.out, v)
		return err
	default:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("render result: %w", err)
		}
		_, err = d.out.Write(out)
		return err
	}
}

func (d *Dispatcher) transition(id string, s State) {
	d.logger.Debug("dispatch state", slog.String("dispatch_id", id), slog.String("state", s.String()))
}

func (d *Dispatcher) emitStart(id, action string) {
	if d.sink != nil {
		d.sink.EmitDispatchStart(id, action)
	}
}

func dispatchID(env types.Env) string {
	if id, ok := env[EnvDispatchID].(string); ok && id != "" {
		return id
	}
	id := events.GenerateDispatchID()
	env[EnvDispatchID] = id
	return id
}

// handlerParams merges the params of the top-level handler reference with
// those of the selected branch, the branch winning.
func handlerParams(schema, owner *types.ActionSchema) map[string]interface{} {
	out := map[string]interface{}{}
	if schema.Handler != nil {
		for k, v := range schema.Handler.Params {
			out[k] = v
		}
	}
	if owner != schema && owner.Handler != nil {
		for k, v := range owner.Handler.Params {
			out[k] = v
		}
	}
	return out
}
