package types

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const deploySchema = `description: Deploy a service
handler: deploy.run
commandKey: target
askConfirm: true
arguments:
  target:
    prompt: "Target?"
    positionalIndex: 0
    displayType: list
    selectByIndex: true
    options:
      staging:
        label: Staging cluster
        handler:
          namespace: deploy
          method: staging
        arguments:
          region:
            prompt: "Region?"
            options: [eu, us]
      production: true
      legacy: false
      custom: deploy/custom
      dynamic:
        providerClass: fs
        providerMethod: entries
        providerParams:
          path: envs
  name:
    prompt: "Name?"
  verbose:
    defaultValue: true
  token:
    secret: true
    default: null
`

func TestDecodeSchemaPreservesArgumentOrder(t *testing.T) {
	var s ActionSchema
	if err := yaml.Unmarshal([]byte(deploySchema), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := strings.Join(s.Arguments.Names(), ",")
	if got != "target,name,verbose,token" {
		t.Fatalf("unexpected argument order %q", got)
	}
	if s.Handler == nil || s.Handler.Namespace != "deploy" || s.Handler.Method != "run" {
		t.Fatalf("unexpected handler %#v", s.Handler)
	}
	if s.CommandKey != "target" || !s.AskConfirm || s.EchoResult {
		t.Fatalf("unexpected flags: %#v", s)
	}
}

func TestDecodeArgumentFields(t *testing.T) {
	var s ActionSchema
	if err := yaml.Unmarshal([]byte(deploySchema), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	target := s.Argument("target")
	if target.PositionalIndex == nil || *target.PositionalIndex != 0 {
		t.Fatalf("expected positionalIndex 0")
	}
	if target.DisplayType != DisplayList || !target.SelectByIndex {
		t.Fatalf("unexpected display settings %#v", target)
	}
	if s.Argument("name").DisplayType != DisplayArray {
		t.Fatalf("expected default display type array")
	}

	verbose := s.Argument("verbose")
	if !verbose.HasDefault || verbose.Default != true {
		t.Fatalf("expected defaultValue true, got %#v", verbose)
	}
	token := s.Argument("token")
	if token.HasDefault {
		t.Fatalf("null default must be treated as absent")
	}
	if !token.Secret {
		t.Fatalf("expected secret flag")
	}
}

func TestDecodeOptionDefinitions(t *testing.T) {
	var s ActionSchema
	if err := yaml.Unmarshal([]byte(deploySchema), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	opts := s.Argument("target").Options
	if !opts.Keyed || opts.Len() != 5 {
		t.Fatalf("expected 5 keyed options, got %d", opts.Len())
	}

	staging, ok := opts.Lookup("staging")
	if !ok || staging.Nested() == nil {
		t.Fatalf("expected inline schema for staging")
	}
	if staging.Label() != "Staging cluster" {
		t.Fatalf("unexpected label %q", staging.Label())
	}
	if staging.Nested().Handler.Method != "staging" {
		t.Fatalf("unexpected nested handler %#v", staging.Nested().Handler)
	}
	if region := staging.Nested().Argument("region"); region == nil || region.Options.Len() != 2 {
		t.Fatalf("expected nested region argument")
	}

	if e, _ := opts.Lookup("production"); e.Def == nil || !e.Def.Conventional {
		t.Fatalf("expected conventional placeholder for production")
	}
	if e, _ := opts.Lookup("legacy"); e.Def == nil || !e.Def.Disabled {
		t.Fatalf("expected disabled placeholder for legacy")
	}
	if e, _ := opts.Lookup("custom"); e.Def == nil || e.Def.Ref != "deploy/custom" {
		t.Fatalf("expected explicit reference for custom")
	}
	e, _ := opts.Lookup("dynamic")
	if e.Def == nil || e.Def.Provider == nil || e.Def.Provider.Class != "fs" || e.Def.Provider.Params["path"] != "envs" {
		t.Fatalf("expected provider descriptor for dynamic, got %#v", e.Def)
	}
}

func TestDecodeOptionsProviderDescriptor(t *testing.T) {
	var s ActionSchema
	src := `arguments:
  env:
    options:
      providerClass: static
      providerMethod: values
`
	if err := yaml.Unmarshal([]byte(src), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	opts := s.Argument("env").Options
	if opts.Provider == nil || opts.Provider.String() != "static::values" {
		t.Fatalf("expected options-level provider, got %#v", opts)
	}
}

func TestDecodeRejectsDuplicateAndNegativeIndex(t *testing.T) {
	cases := map[string]string{
		"negative index": "arguments:\n  a:\n    positionalIndex: -1\n",
		"bad display":    "arguments:\n  a:\n    displayType: grid\n",
		"scalar args":    "arguments: nope\n",
	}
	for name, src := range cases {
		var s ActionSchema
		if err := yaml.Unmarshal([]byte(src), &s); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestHandlerShorthand(t *testing.T) {
	var h HandlerRef
	if err := yaml.Unmarshal([]byte(`createWidget`), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Namespace != "" || h.Method != "createWidget" {
		t.Fatalf("unexpected handler %#v", h)
	}
	if err := yaml.Unmarshal([]byte("class: app\nmethodName: update\n"), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.String() != "app.update" {
		t.Fatalf("unexpected handler %s", h.String())
	}
}

func TestOptionSetFromValue(t *testing.T) {
	set, err := OptionSetFromValue([]interface{}{"a", 2, true})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if strings.Join(set.Keys(), ",") != "a,2,true" {
		t.Fatalf("unexpected keys %v", set.Keys())
	}
	keyed, err := OptionSetFromValue(map[string]interface{}{
		"b": map[string]interface{}{"label": "Bee"},
		"a": true,
	})
	if err != nil {
		t.Fatalf("convert keyed: %v", err)
	}
	if strings.Join(keyed.Keys(), ",") != "a,b" {
		t.Fatalf("unexpected keyed order %v", keyed.Keys())
	}
	if e, _ := keyed.Lookup("b"); e.Label() != "Bee" {
		t.Fatalf("unexpected label %q", e.Label())
	}
	if _, err := OptionSetFromValue(42); err == nil {
		t.Fatalf("expected error for scalar")
	}
}

func TestMarshalRoundTripKeepsOrder(t *testing.T) {
	var s ActionSchema
	if err := yaml.Unmarshal([]byte(deploySchema), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := yaml.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(out)
	if strings.Index(text, "target:") > strings.Index(text, "name:") {
		t.Fatalf("argument order lost:\n%s", text)
	}
	if !strings.Contains(text, "default: true") {
		t.Fatalf("expected default in output:\n%s", text)
	}
}

func TestMarshalOptionDefinitionForms(t *testing.T) {
	set := OptionSet{Keyed: true, Entries: []OptionEntry{
		{Key: "plain", Def: &OptionDefinition{}},
		{Key: "pending", Def: &OptionDefinition{Conventional: true}},
		{Key: "off", Def: &OptionDefinition{Disabled: true}},
		{Key: "bare"},
	}}
	out, err := yaml.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back OptionSet
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := map[string]string{"plain": "plain", "pending": "conventional", "off": "disabled", "bare": "plain"}
	for _, e := range back.Entries {
		got := "plain"
		switch {
		case e.Def != nil && e.Def.Disabled:
			got = "disabled"
		case e.Def != nil && e.Def.Conventional:
			got = "conventional"
		}
		if got != want[e.Key] {
			t.Fatalf("option %q read back as %s, want %s:\n%s", e.Key, got, want[e.Key], out)
		}
	}
	if len(back.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(back.Entries))
	}
}

func TestOptionsHelpers(t *testing.T) {
	o := Options{"0": "a", "name": "x", "empty": nil}
	if !o.Has("name") || o.Has("empty") || o.Has("missing") {
		t.Fatalf("unexpected Has results")
	}
	named, keys := o.Named()
	if len(keys) != 2 || keys[0] != "empty" || keys[1] != "name" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if _, ok := named["0"]; ok {
		t.Fatalf("positional key leaked into named options")
	}
	if ValueString(true) != "true" || ValueString(3) != "3" || ValueString(nil) != "" {
		t.Fatalf("unexpected ValueString rendering")
	}
}
