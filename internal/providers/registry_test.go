package providers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowd-org/ask/internal/types"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	calls *int
	seen  *Params
}

func (p *recordingProvider) Call(ctx context.Context, method string, params Params) (interface{}, error) {
	*p.calls++
	*p.seen = params
	return []string{method}, nil
}

func TestInvokeMergesParamsAndFolder(t *testing.T) {
	calls := 0
	var seen Params
	r := NewRegistry(nil)
	r.Register("rec", func() Provider { return &recordingProvider{calls: &calls, seen: &seen} })

	out, err := r.Invoke(context.Background(), types.ProviderRef{
		Class:  "rec",
		Method: "list",
		Params: map[string]interface{}{"region": "eu"},
	}, "/schemas/app", map[string]interface{}{"region": "us", "name": "svc"})
	require.NoError(t, err)
	require.Equal(t, []string{"list"}, out)
	require.Equal(t, 1, calls)
	require.Equal(t, "eu", seen["region"], "descriptor params override accumulated values")
	require.Equal(t, "svc", seen["name"])
	require.Equal(t, "/schemas/app", seen["folder"])
}

func TestInvokeUnknownClass(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Invoke(context.Background(), types.ProviderRef{Class: "missing"}, "", nil)
	require.True(t, errors.Is(err, ErrUnknownClass))
	require.False(t, r.Has("missing"))
}

func TestFilesystemEntries(t *testing.T) {
	dir := t.TempDir()
	envs := filepath.Join(dir, "envs")
	require.NoError(t, os.MkdirAll(filepath.Join(envs, "nested"), 0o755))
	for _, name := range []string{"prod.yaml", "dev.yaml", "notes.txt", ".hidden.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(envs, name), []byte("x"), 0o644))
	}

	r := NewRegistry(nil)
	RegisterBuiltins(r)
	require.Equal(t, []string{"fs", "static"}, r.Classes())

	out, err := r.Invoke(context.Background(), types.ProviderRef{
		Class:  "fs",
		Method: "entries",
		Params: map[string]interface{}{"path": "envs", "ext": ".yaml", "trimExt": true},
	}, dir, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"dev", "prod"}, out)

	out, err = r.Invoke(context.Background(), types.ProviderRef{
		Class:  "fs",
		Method: "entries",
		Params: map[string]interface{}{"path": "envs", "dirs": true},
	}, dir, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"nested"}, out)

	_, err = r.Invoke(context.Background(), types.ProviderRef{Class: "fs", Method: "delete"}, dir, nil)
	require.True(t, errors.Is(err, ErrUnknownMethod))
}

func TestStaticValues(t *testing.T) {
	r := NewRegistry(nil)
	RegisterBuiltins(r)
	out, err := r.Invoke(context.Background(), types.ProviderRef{
		Class:  "static",
		Method: "values",
		Params: map[string]interface{}{"values": []interface{}{"a", "b"}},
	}, "", nil)
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, out)
}
