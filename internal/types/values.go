// SPDX-License-Identifier: AGPL-3.0-or-later
package types

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Options is the flat option map threaded through one dispatch. Positional
// command-line tokens live under their decimal index ("0", "1", ...).
type Options map[string]interface{}

// Env carries auxiliary data handed to handlers next to the options.
type Env map[string]interface{}

// PositionalKey is the option-map key of the positional token at index i.
func PositionalKey(i int) string {
	return strconv.Itoa(i)
}

// IsPositionalKey reports whether key names a positional token.
func IsPositionalKey(key string) bool {
	if key == "" {
		return false
	}
	_, err := strconv.Atoi(key)
	return err == nil
}

// Has reports whether name holds a non-nil value.
func (o Options) Has(name string) bool {
	v, ok := o[name]
	return ok && v != nil
}

// Clone returns a shallow copy.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Named returns the options without positional entries, keys sorted.
func (o Options) Named() (Options, []string) {
	out := make(Options, len(o))
	keys := make([]string, 0, len(o))
	for k, v := range o {
		if IsPositionalKey(k) {
			continue
		}
		out[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return out, keys
}

// String returns the value of name as a string ("" when absent).
func (o Options) String(name string) string {
	return ValueString(o[name])
}

// ValueString renders an option value the way it is matched against option keys.
func ValueString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// OptionSetFromValue converts a provider result into an option set.
// Accepted shapes: *OptionSet, []string, []interface{} of scalars and
// map[string]interface{} (keyed, decoded like a schema file would be).
func OptionSetFromValue(v interface{}) (*OptionSet, error) {
	switch t := v.(type) {
	case *OptionSet:
		return t, nil
	case OptionSet:
		return &t, nil
	case []string:
		return NewOptionList(t...), nil
	case []interface{}:
		values := make([]string, 0, len(t))
		for _, item := range t {
			switch item.(type) {
			case string, bool, int, int64, float64:
				values = append(values, ValueString(item))
			default:
				return nil, fmt.Errorf("option value %v is not a scalar", item)
			}
		}
		return NewOptionList(values...), nil
	case map[string]interface{}:
		set := &OptionSet{}
		if err := redecode(t, set); err != nil {
			return nil, err
		}
		return set, nil
	default:
		return nil, fmt.Errorf("cannot use %T as an option set", v)
	}
}

// SchemaFromValue converts a provider result into an action schema.
func SchemaFromValue(v interface{}) (*ActionSchema, error) {
	switch t := v.(type) {
	case *ActionSchema:
		return t, nil
	case ActionSchema:
		return &t, nil
	case map[string]interface{}:
		schema := &ActionSchema{}
		if err := redecode(t, schema); err != nil {
			return nil, err
		}
		return schema, nil
	default:
		return nil, fmt.Errorf("cannot use %T as a schema", v)
	}
}

func redecode(in interface{}, out interface{}) error {
	var node yaml.Node
	if err := node.Encode(in); err != nil {
		return err
	}
	return node.Decode(out)
}

// ActionAlias maps a friendly action name onto a fully qualified one.
type ActionAlias struct {
	From        string `yaml:"from" mapstructure:"from" json:"from"`
	To          string `yaml:"to" mapstructure:"to" json:"to"`
	Description string `yaml:"description,omitempty" mapstructure:"description" json:"description,omitempty"`
}
