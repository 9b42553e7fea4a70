// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/flowd-org/ask/internal/resolver"
	"github.com/flowd-org/ask/internal/types"
)

// Binding is the handler-facing view of a resolved option map.
type Binding struct {
	Values       map[string]interface{}
	ArgsJSON     string
	ScalarEnv    map[string]string // ARG_<UPPER> for scalar values only
	SecretNames  map[string]struct{}
	SecretValues []string
}

// Env renders ScalarEnv as sorted KEY=VALUE pairs.
func (b *Binding) Env() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.ScalarEnv))
	for k, v := range b.ScalarEnv {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Bind validates the resolved options against the schema branches they
// selected and derives the values handlers and scripts consume. Positional
// tokens are not part of the binding.
func Bind(schema *types.ActionSchema, opts types.Options) (*Binding, error) {
	declared := make(map[string]*types.ArgumentSchema)
	if err := collectDeclared(schema, opts, declared); err != nil {
		return nil, err
	}

	vals, keys := opts.Named()
	scalars := make(map[string]string)
	secretNames := make(map[string]struct{})
	var secretValues []string

	for _, name := range keys {
		v := vals[name]
		if arg := declared[name]; arg != nil && arg.Secret {
			secretNames[name] = struct{}{}
			if s := types.ValueString(v); s != "" {
				secretValues = append(secretValues, s)
			}
			continue
		}
		if s, ok := scalarString(v); ok {
			scalars[argEnvName(name)] = s
		}
	}

	argsJSON, err := json.Marshal(map[string]interface{}(vals))
	if err != nil {
		return nil, fmt.Errorf("encode args json: %w", err)
	}

	b := &Binding{Values: vals, ArgsJSON: string(argsJSON), ScalarEnv: scalars}
	if len(secretNames) > 0 {
		b.SecretNames = secretNames
	}
	if len(secretValues) > 0 {
		b.SecretValues = secretValues
	}
	return b, nil
}

// collectDeclared walks the arguments reachable with the current values.
func collectDeclared(schema *types.ActionSchema, opts types.Options, into map[string]*types.ArgumentSchema) error {
	if schema == nil {
		return nil
	}
	for _, arg := range schema.Arguments {
		// secret arguments may not carry a default
		if arg.Secret && arg.HasDefault {
			return &resolver.ArgError{Schema: schema.DisplayName(), Arg: arg.Name, Msg: "default forbidden for secret"}
		}
		into[arg.Name] = arg
		if entry, ok := arg.Options.Lookup(opts.String(arg.Name)); ok {
			if err := collectDeclared(entry.Nested(), opts, into); err != nil {
				return err
			}
		}
	}
	return nil
}

func scalarString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return fmt.Sprintf("%t", t), true
	case int, int64, int32, uint, uint64:
		return fmt.Sprintf("%d", t), true
	case float64, float32:
		return fmt.Sprintf("%v", t), true
	default:
		return "", false
	}
}

func argEnvName(name string) string {
	up := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", ":", "_").Replace(name))
	return "ARG_" + up
}
