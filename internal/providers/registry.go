// SPDX-License-Identifier: AGPL-3.0-or-later

// Package providers hosts the dynamic option providers referenced from schema
// files through {providerClass, providerMethod, providerParams} descriptors.
package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/flowd-org/ask/internal/types"
)

var (
	ErrUnknownClass  = errors.New("providers: unknown provider class")
	ErrUnknownMethod = errors.New("providers: unknown provider method")
)

// Params are the accumulated parameters of one provider call. "folder" always
// holds the directory of the schema file that declared the provider.
type Params map[string]interface{}

// String returns params[key] as a string.
func (p Params) String(key string) string {
	return types.ValueString(p[key])
}

// Bool returns params[key] as a bool; strings "true"/"1"/"yes" count.
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "yes"
	default:
		return false
	}
}

// Provider is constructed fresh for each call and dispatches on method.
type Provider interface {
	Call(ctx context.Context, method string, params Params) (interface{}, error)
}

// Factory constructs a provider.
type Factory func() Provider

// Registry maps provider classes to factories.
type Registry struct {
	factories map[string]Factory
	logger    *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger uses slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{factories: make(map[string]Factory), logger: logger}
}

// Register binds class to f, replacing any previous binding.
func (r *Registry) Register(class string, f Factory) {
	r.factories[class] = f
}

// Has reports whether class can be constructed.
func (r *Registry) Has(class string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[class]
	return ok
}

// Classes lists registered classes, sorted.
func (r *Registry) Classes() []string {
	out := make([]string, 0, len(r.factories))
	for class := range r.factories {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// Invoke constructs ref.Class and calls ref.Method. Parameters are the
// accumulated values, overlaid with ref.Params, plus folder.
func (r *Registry) Invoke(ctx context.Context, ref types.ProviderRef, folder string, accumulated map[string]interface{}) (interface{}, error) {
	f, ok := r.factories[ref.Class]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownClass, ref.Class)
	}
	params := make(Params, len(accumulated)+len(ref.Params)+1)
	for k, v := range accumulated {
		params[k] = v
	}
	for k, v := range ref.Params {
		params[k] = v
	}
	params["folder"] = folder

	r.logger.Info("invoke option provider", slog.String("provider", ref.String()), slog.String("folder", folder))
	out, err := f().Call(ctx, ref.Method, params)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", ref.String(), err)
	}
	return out, nil
}
