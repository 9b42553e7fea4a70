// SPDX-License-Identifier: AGPL-3.0-or-later
package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DisplayType controls how enumerated options are rendered in a prompt.
type DisplayType string

const (
	DisplayArray DisplayType = "array"
	DisplayList  DisplayType = "list"
)

// ArgumentSchema describes one named argument of an action.
// Default is only meaningful when HasDefault is set; a null default is treated as absent.
type ArgumentSchema struct {
	Name            string
	Prompt          string
	Description     string
	PositionalIndex *int
	DisplayType     DisplayType
	Options         *OptionSet
	SelectByIndex   bool
	Default         interface{}
	HasDefault      bool
	Secret          bool
	Provider        *ProviderRef
}

type rawArgument struct {
	Prompt          string       `yaml:"prompt,omitempty"`
	Description     string       `yaml:"description,omitempty"`
	PositionalIndex *int         `yaml:"positionalIndex,omitempty"`
	DisplayType     DisplayType  `yaml:"displayType,omitempty"`
	Options         *OptionSet   `yaml:"options,omitempty"`
	SelectByIndex   bool         `yaml:"selectByIndex,omitempty"`
	Default         yaml.Node    `yaml:"default,omitempty"`
	DefaultValue    yaml.Node    `yaml:"defaultValue,omitempty"`
	Secret          bool         `yaml:"secret,omitempty"`
	Provider        *ProviderRef `yaml:"provider,omitempty"`
}

func (a *ArgumentSchema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return nodeError(node, "argument must be a mapping")
	}
	var raw rawArgument
	if err := node.Decode(&raw); err != nil {
		return err
	}
	a.Prompt = raw.Prompt
	a.Description = raw.Description
	a.PositionalIndex = raw.PositionalIndex
	a.DisplayType = raw.DisplayType
	a.Options = raw.Options
	a.SelectByIndex = raw.SelectByIndex
	a.Secret = raw.Secret
	a.Provider = raw.Provider

	if a.PositionalIndex != nil && *a.PositionalIndex < 0 {
		return nodeError(node, "positionalIndex must be non-negative")
	}
	switch a.DisplayType {
	case "":
		a.DisplayType = DisplayArray
	case DisplayArray, DisplayList:
	default:
		return nodeError(node, "unsupported displayType %q", a.DisplayType)
	}

	def := raw.Default
	if def.Kind == 0 {
		def = raw.DefaultValue
	}
	if def.Kind != 0 && def.Tag != "!!null" {
		var v interface{}
		if err := def.Decode(&v); err != nil {
			return err
		}
		a.Default = v
		a.HasDefault = true
	}
	return nil
}

func (a ArgumentSchema) MarshalYAML() (interface{}, error) {
	out := struct {
		Prompt          string       `yaml:"prompt,omitempty"`
		Description     string       `yaml:"description,omitempty"`
		PositionalIndex *int         `yaml:"positionalIndex,omitempty"`
		DisplayType     DisplayType  `yaml:"displayType,omitempty"`
		Options         *OptionSet   `yaml:"options,omitempty"`
		SelectByIndex   bool         `yaml:"selectByIndex,omitempty"`
		Default         interface{}  `yaml:"default,omitempty"`
		Secret          bool         `yaml:"secret,omitempty"`
		Provider        *ProviderRef `yaml:"provider,omitempty"`
	}{
		Prompt:          a.Prompt,
		Description:     a.Description,
		PositionalIndex: a.PositionalIndex,
		Options:         a.Options,
		SelectByIndex:   a.SelectByIndex,
		Secret:          a.Secret,
		Provider:        a.Provider,
	}
	if a.DisplayType != DisplayArray {
		out.DisplayType = a.DisplayType
	}
	if a.HasDefault {
		out.Default = a.Default
	}
	return out, nil
}

// PromptText is the text shown when the argument has to be asked for.
func (a *ArgumentSchema) PromptText() string {
	if a.Prompt != "" {
		return a.Prompt
	}
	if a.Description != "" {
		return a.Description
	}
	return a.Name
}

// Arguments keeps argument declarations in file order; resolution depends on it.
type Arguments []*ArgumentSchema

func (as *Arguments) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*as = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return nodeError(node, "arguments must be a mapping of name to argument")
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	out := make(Arguments, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		name := key.Value
		if name == "" {
			return nodeError(key, "argument name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return nodeError(key, "duplicate argument %q", name)
		}
		seen[name] = struct{}{}
		arg := &ArgumentSchema{}
		if err := val.Decode(arg); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
		if arg.DisplayType == "" {
			arg.DisplayType = DisplayArray
		}
		arg.Name = name
		out = append(out, arg)
	}
	*as = out
	return nil
}

func (as Arguments) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range as {
		val := &yaml.Node{}
		if err := val.Encode(a); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: a.Name},
			val,
		)
	}
	return node, nil
}

// Get returns the argument with the given name or nil.
func (as Arguments) Get(name string) *ArgumentSchema {
	for _, a := range as {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Names lists argument names in declared order.
func (as Arguments) Names() []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}
