// SPDX-License-Identifier: AGPL-3.0-or-later
package types

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionSchema describes one action or, when nested under an option, one sub-action.
// Name and Folder are filled in by the schema store and never read from the file.
type ActionSchema struct {
	Name        string      `yaml:"-"`
	Folder      string      `yaml:"-"`
	Source      string      `yaml:"-"`
	Label       string      `yaml:"label,omitempty"`
	Description string      `yaml:"description,omitempty"`
	Handler     *HandlerRef `yaml:"handler,omitempty"`
	CommandKey  string      `yaml:"commandKey,omitempty"`
	AskConfirm  bool        `yaml:"askConfirm,omitempty"`
	EchoResult  bool        `yaml:"echoResult,omitempty"`
	Arguments   Arguments   `yaml:"arguments,omitempty"`
}

// HandlerRef names the callable invoked once an action is fully resolved.
// An empty Namespace means the handler belongs to the invoking context.
type HandlerRef struct {
	Namespace string                 `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Method    string                 `yaml:"method" json:"method"`
	Params    map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
}

// UnmarshalYAML accepts the mapping form as well as the "namespace.method"
// and bare "method" shorthands.
func (h *HandlerRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		ref := strings.TrimSpace(node.Value)
		if idx := strings.LastIndex(ref, "."); idx >= 0 {
			h.Namespace = ref[:idx]
			h.Method = ref[idx+1:]
		} else {
			h.Method = ref
		}
		return nil
	}
	var raw struct {
		Namespace  string                 `yaml:"namespace"`
		Class      string                 `yaml:"class"`
		Method     string                 `yaml:"method"`
		MethodName string                 `yaml:"methodName"`
		Params     map[string]interface{} `yaml:"params"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	h.Namespace = firstNonEmpty(raw.Namespace, raw.Class)
	h.Method = firstNonEmpty(raw.Method, raw.MethodName)
	h.Params = raw.Params
	return nil
}

func (h HandlerRef) String() string {
	if h.Namespace == "" {
		return h.Method
	}
	return h.Namespace + "." + h.Method
}

// ProviderRef is a dynamic option provider descriptor. Invoking it yields an
// option set or a schema at resolution time.
type ProviderRef struct {
	Class  string                 `yaml:"providerClass" json:"providerClass"`
	Method string                 `yaml:"providerMethod" json:"providerMethod"`
	Params map[string]interface{} `yaml:"providerParams,omitempty" json:"providerParams,omitempty"`
}

func (p ProviderRef) String() string {
	return p.Class + "::" + p.Method
}

// Argument returns the named argument or nil.
func (s *ActionSchema) Argument(name string) *ArgumentSchema {
	if s == nil {
		return nil
	}
	return s.Arguments.Get(name)
}

// DisplayName is the action name in its colon-separated form.
func (s *ActionSchema) DisplayName() string {
	if s == nil {
		return ""
	}
	return strings.ReplaceAll(s.Name, "/", ":")
}

func isProviderNode(node *yaml.Node) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "providerClass" {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func nodeError(node *yaml.Node, format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...))
}
