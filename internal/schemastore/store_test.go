package schemastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowd-org/ask/internal/configloader"
	"github.com/flowd-org/ask/internal/types"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeSchema(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

type countingProviders struct {
	calls  int
	result interface{}
	folder string
}

func (c *countingProviders) Has(class string) bool { return class == "count" }

func (c *countingProviders) Invoke(ctx context.Context, ref types.ProviderRef, folder string, acc map[string]interface{}) (interface{}, error) {
	c.calls++
	c.folder = folder
	return c.result, nil
}

func newStore(t *testing.T, providers ProviderInvoker, dirs ...string) *Store {
	t.Helper()
	roots := make([]Root, 0, len(dirs)+1)
	for i, d := range dirs {
		roots = append(roots, DirRoot("root"+string(rune('a'+i)), d))
	}
	roots = append(roots, BuiltinRoot())
	return New(NewLocator(roots...), providers, nil)
}

func TestResolveNamespacedActionFirstRootWins(t *testing.T) {
	child, parent := t.TempDir(), t.TempDir()
	writeSchema(t, child, "app/update.yaml", "description: child\n")
	writeSchema(t, parent, "app/update.yaml", "description: parent\n")
	writeSchema(t, parent, "app/remove.jsonc", `{"description": "parent only", /* c */}`)

	store := newStore(t, nil, child, parent)

	s, err := store.Resolve(context.Background(), "app:update")
	require.NoError(t, err)
	require.Equal(t, "child", s.Description)
	require.Equal(t, "app/update", s.Name)
	require.Equal(t, "app:update", s.DisplayName())
	require.Equal(t, filepath.Join(child, "app"), s.Folder)

	s, err = store.Resolve(context.Background(), "app:remove")
	require.NoError(t, err)
	require.Equal(t, "parent only", s.Description)
}

func TestResolveTopLevelMissIsNotFound(t *testing.T) {
	store := newStore(t, nil, t.TempDir())
	_, err := store.Resolve(context.Background(), "nope:missing")
	require.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestResolveBuiltinConfirm(t *testing.T) {
	store := newStore(t, nil, t.TempDir())
	s, err := store.Resolve(context.Background(), "confirm")
	require.NoError(t, err)
	require.Equal(t, []string{"y", "n"}, s.Argument("status").Options.Keys())
	require.Empty(t, s.Folder)
}

func TestExpandPlaceholders(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "make.yaml", `commandKey: type
arguments:
  type:
    options:
      widget: true
      gadget: true
      legacy: false
      shared: common/base
      inline:
        label: Inline thing
        arguments:
          size:
            options:
              big: true
`)
	writeSchema(t, root, "make/widget.yaml", "label: Widget\nhandler: createWidget\narguments:\n  color: {prompt: \"Color?\"}\n")
	writeSchema(t, root, "common/base.yml", "handler: shared.base\n")
	writeSchema(t, root, "make/inline/big.yaml", "description: big inline\n")

	store := newStore(t, nil, root)
	s, err := store.Resolve(context.Background(), "make")
	require.NoError(t, err)

	opts := s.Argument("type").Options
	require.Equal(t, []string{"widget", "gadget", "shared", "inline"}, opts.Keys())

	widget, _ := opts.Lookup("widget")
	require.NotNil(t, widget.Nested())
	require.Equal(t, "createWidget", widget.Nested().Handler.Method)
	require.Equal(t, "Widget", widget.Label())

	gadget, _ := opts.Lookup("gadget")
	require.Nil(t, gadget.Nested(), "missing conventional schema leaves a plain option")

	shared, _ := opts.Lookup("shared")
	require.Equal(t, "shared.base", shared.Nested().Handler.String())

	inline, _ := opts.Lookup("inline")
	require.Equal(t, "make/inline", inline.Nested().Name)
	require.Equal(t, "Inline thing", inline.Label())
	big, _ := inline.Nested().Argument("size").Options.Lookup("big")
	require.Equal(t, "big inline", big.Nested().Description)
}

func TestExpandedSchemaReadsBackWithLiveOptions(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "make.yaml", `arguments:
  type:
    options:
      widget: true
      gadget: true
      legacy: false
`)
	writeSchema(t, root, "make/widget.yaml", "handler: createWidget\n")

	s, err := newStore(t, nil, root).Resolve(context.Background(), "make")
	require.NoError(t, err)
	out, err := yaml.Marshal(s)
	require.NoError(t, err)

	back, err := configloader.DecodeSchema("make.yaml", out)
	require.NoError(t, err)
	opts := back.Argument("type").Options
	require.Equal(t, []string{"widget", "gadget"}, opts.Keys())
	gadget, ok := opts.Lookup("gadget")
	require.True(t, ok)
	require.Nil(t, gadget.Nested())
	if gadget.Def != nil {
		require.False(t, gadget.Def.Disabled, "plain option must not read back as disabled")
	}
	widget, _ := opts.Lookup("widget")
	require.Equal(t, "createWidget", widget.Nested().Handler.Method)
}

func TestExplicitMissingReferenceIsFatal(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "deploy.yaml", "arguments:\n  env:\n    options:\n      prod: deploy/prod\n")

	store := newStore(t, nil, root)
	_, err := store.Resolve(context.Background(), "deploy")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSchemaNotFound))
	require.True(t, errors.Is(err, ErrMissingReference))
	var refErr *ReferenceError
	require.True(t, errors.As(err, &refErr))
	require.Equal(t, "prod", refErr.Option)
}

func TestCyclicReferenceFailsFast(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "a.yaml", "arguments:\n  x:\n    options:\n      next: b\n")
	writeSchema(t, root, "b.yaml", "arguments:\n  y:\n    options:\n      back: a\n")

	store := newStore(t, nil, root)
	_, err := store.Resolve(context.Background(), "a")
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	require.Equal(t, []string{"a", "b", "a"}, cycle.Chain)
}

func TestMalformedSchemaReportsPath(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "broken.yaml", "arguments: [unterminated\n")

	store := newStore(t, nil, root)
	_, err := store.Resolve(context.Background(), "broken")
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, filepath.Join(root, "broken.yaml"), cfgErr.Path)
}

func TestProvidersAreMemoised(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "pick.yaml", `arguments:
  env:
    options:
      providerClass: count
      providerMethod: list
`)
	providers := &countingProviders{result: []string{"dev", "prod"}}
	store := newStore(t, providers, root)

	for i := 0; i < 3; i++ {
		s, err := store.Resolve(context.Background(), "pick")
		require.NoError(t, err)
		require.Equal(t, []string{"dev", "prod"}, s.Argument("env").Options.Keys())
	}
	require.Equal(t, 1, providers.calls)
	require.Equal(t, root, providers.folder)
}

func TestOptionProviderYieldsNestedSchema(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "gen.yaml", `arguments:
  kind:
    options:
      dynamic:
        providerClass: count
        providerMethod: schema
`)
	providers := &countingProviders{result: map[string]interface{}{
		"handler": "gen.dynamic",
		"arguments": map[string]interface{}{
			"depth": map[string]interface{}{"default": 2},
		},
	}}
	store := newStore(t, providers, root)
	s, err := store.Resolve(context.Background(), "gen")
	require.NoError(t, err)
	dyn, ok := s.Argument("kind").Options.Lookup("dynamic")
	require.True(t, ok)
	require.Equal(t, "gen.dynamic", dyn.Nested().Handler.String())
	require.Equal(t, "gen/dynamic", dyn.Nested().Name)
	require.True(t, dyn.Nested().Argument("depth").HasDefault)
}

func TestUnknownProviderClassIsFatal(t *testing.T) {
	root := t.TempDir()
	writeSchema(t, root, "pick.yaml", "arguments:\n  env:\n    options: {providerClass: nope, providerMethod: x}\n")
	store := newStore(t, &countingProviders{}, root)
	_, err := store.Resolve(context.Background(), "pick")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSchemaNotFound))
}

func TestActionPath(t *testing.T) {
	require.Equal(t, "app/update", ActionPath("app:update"))
	require.Equal(t, "a/b", ActionPath(" a/b "))
	require.Equal(t, "etc/passwd", ActionPath("../../etc/passwd"))
}
