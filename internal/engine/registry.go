// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"context"
	"sort"

	"github.com/flowd-org/ask/internal/types"
)

// HandlerFunc is the shape every handler is invoked through.
type HandlerFunc func(ctx context.Context, opts types.Options, env types.Env) (interface{}, error)

// Kind tells how a handler is called.
type Kind string

const (
	// KindStatic handlers are shared functions.
	KindStatic Kind = "static"
	// KindInstance handlers run on a fresh instance per call.
	KindInstance Kind = "instance"
)

// Handler is one registered (namespace, method) target.
type Handler struct {
	Namespace   string
	Method      string
	Kind        Kind
	Description string
	invoke      HandlerFunc
}

// Invoke calls the handler.
func (h Handler) Invoke(ctx context.Context, opts types.Options, env types.Env) (interface{}, error) {
	return h.invoke(ctx, opts, env)
}

func (h Handler) String() string {
	return h.Namespace + "." + h.Method
}

type handlerKey struct {
	namespace string
	method    string
}

// Registry maps (namespace, method) pairs to handlers. It is filled at
// startup and read-only afterwards.
type Registry struct {
	handlers map[handlerKey]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[handlerKey]Handler)}
}

// Func registers a static handler.
func (r *Registry) Func(namespace, method string, fn HandlerFunc) {
	r.put(Handler{Namespace: namespace, Method: method, Kind: KindStatic, invoke: fn})
}

// Method registers an instance handler: every call constructs a fresh T with
// newT (or new(T) when newT is nil) and calls fn on it.
func Method[T any](r *Registry, namespace, method string, newT func() *T, fn func(*T, context.Context, types.Options, types.Env) (interface{}, error)) {
	r.put(Handler{
		Namespace: namespace,
		Method:    method,
		Kind:      KindInstance,
		invoke: func(ctx context.Context, opts types.Options, env types.Env) (interface{}, error) {
			var inst *T
			if newT != nil {
				inst = newT()
			} else {
				inst = new(T)
			}
			return fn(inst, ctx, opts, env)
		},
	})
}

func (r *Registry) put(h Handler) {
	r.handlers[handlerKey{h.Namespace, h.Method}] = h
}

// Describe sets the one-line description shown by listings.
func (r *Registry) Describe(namespace, method, description string) {
	key := handlerKey{namespace, method}
	if h, ok := r.handlers[key]; ok {
		h.Description = description
		r.handlers[key] = h
	}
}

// Lookup returns the handler registered for namespace and method.
func (r *Registry) Lookup(namespace, method string) (Handler, bool) {
	if r == nil {
		return Handler{}, false
	}
	h, ok := r.handlers[handlerKey{namespace, method}]
	return h, ok
}

// Has reports whether a handler is registered.
func (r *Registry) Has(namespace, method string) bool {
	_, ok := r.Lookup(namespace, method)
	return ok
}

// Handlers lists every registered handler sorted by namespace and method.
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Method < out[j].Method
	})
	return out
}
