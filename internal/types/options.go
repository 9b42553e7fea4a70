// SPDX-License-Identifier: AGPL-3.0-or-later
package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OptionSet is the allowed value set of an argument. It is either a plain list
// of values or an ordered mapping of value to definition (Keyed). Before
// expansion it may instead hold a provider descriptor that yields the set.
type OptionSet struct {
	Entries  []OptionEntry
	Keyed    bool
	Provider *ProviderRef
}

// OptionEntry is one selectable value. Def is nil for plain list values.
type OptionEntry struct {
	Key string
	Def *OptionDefinition
}

// OptionDefinition describes a keyed option. Exactly one of the reference
// forms is set until the schema store expands it; afterwards only Schema
// (or nothing) remains.
type OptionDefinition struct {
	Label        string
	Schema       *ActionSchema
	Ref          string
	Conventional bool
	Disabled     bool
	Provider     *ProviderRef
}

// NewOptionList builds a plain list option set.
func NewOptionList(values ...string) *OptionSet {
	set := &OptionSet{}
	for _, v := range values {
		set.Entries = append(set.Entries, OptionEntry{Key: v})
	}
	return set
}

func (s *OptionSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		return nodeError(node, "options must be a list or a mapping")
	case yaml.SequenceNode:
		s.Keyed = false
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nodeError(item, "list options must be scalar values")
			}
			s.Entries = append(s.Entries, OptionEntry{Key: item.Value})
		}
		return nil
	case yaml.MappingNode:
		if isProviderNode(node) {
			var ref ProviderRef
			if err := node.Decode(&ref); err != nil {
				return err
			}
			s.Provider = &ref
			return nil
		}
		s.Keyed = true
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			def, err := decodeOptionDefinition(val)
			if err != nil {
				return fmt.Errorf("option %q: %w", key.Value, err)
			}
			s.Entries = append(s.Entries, OptionEntry{Key: key.Value, Def: def})
		}
		return nil
	default:
		return nodeError(node, "options must be a list or a mapping")
	}
}

func decodeOptionDefinition(node *yaml.Node) (*OptionDefinition, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return nil, nil
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return nil, err
			}
			if b {
				return &OptionDefinition{Conventional: true}, nil
			}
			return &OptionDefinition{Disabled: true}, nil
		case "!!str":
			return &OptionDefinition{Ref: node.Value}, nil
		default:
			return nil, nodeError(node, "unsupported option value %q", node.Value)
		}
	case yaml.MappingNode:
		if isProviderNode(node) {
			var ref ProviderRef
			if err := node.Decode(&ref); err != nil {
				return nil, err
			}
			return &OptionDefinition{Provider: &ref}, nil
		}
		schema := &ActionSchema{}
		if err := node.Decode(schema); err != nil {
			return nil, err
		}
		return &OptionDefinition{Label: schema.Label, Schema: schema}, nil
	default:
		return nil, nodeError(node, "unsupported option value")
	}
}

func (s OptionSet) MarshalYAML() (interface{}, error) {
	if s.Provider != nil {
		return s.Provider, nil
	}
	if !s.Keyed {
		return s.Keys(), nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range s.Entries {
		val := &yaml.Node{}
		var err error
		switch {
		case e.Def == nil:
			err = val.Encode(nil)
		case e.Def.Schema != nil:
			err = val.Encode(e.Def.Schema)
		case e.Def.Provider != nil:
			err = val.Encode(e.Def.Provider)
		case e.Def.Ref != "":
			err = val.Encode(e.Def.Ref)
		case e.Def.Disabled:
			err = val.Encode(false)
		case e.Def.Conventional:
			err = val.Encode(true)
		default:
			// a plain value; false would read back as disabled
			err = val.Encode(nil)
		}
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Key}, val)
	}
	return node, nil
}

// Len reports the number of selectable values.
func (s *OptionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Keys lists the accepted values in declared order.
func (s *OptionSet) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Key)
	}
	return out
}

// Lookup finds the entry whose key matches value literally.
func (s *OptionSet) Lookup(value string) (OptionEntry, bool) {
	if s == nil {
		return OptionEntry{}, false
	}
	for _, e := range s.Entries {
		if e.Key == value {
			return e, true
		}
	}
	return OptionEntry{}, false
}

// At returns the entry at the 1-based position, as shown in prompts.
func (s *OptionSet) At(position int) (OptionEntry, bool) {
	if s == nil || position < 1 || position > len(s.Entries) {
		return OptionEntry{}, false
	}
	return s.Entries[position-1], true
}

// Label is the display name of the entry, falling back to its key.
func (e OptionEntry) Label() string {
	if e.Def != nil && e.Def.Label != "" {
		return e.Def.Label
	}
	return e.Key
}

// Nested returns the sub-schema carried by the entry, if any.
func (e OptionEntry) Nested() *ActionSchema {
	if e.Def == nil {
		return nil
	}
	return e.Def.Schema
}
