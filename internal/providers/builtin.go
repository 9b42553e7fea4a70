// SPDX-License-Identifier: AGPL-3.0-or-later
package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RegisterBuiltins adds the providers shipped with ask.
func RegisterBuiltins(r *Registry) {
	r.Register("fs", func() Provider { return &filesystem{} })
	r.Register("static", func() Provider { return &static{} })
}

// filesystem lists directory entries, e.g. to offer the available
// environments of a deploy action as options.
//
//	providerParams: {path: envs, ext: .yaml, trimExt: true, dirs: false}
type filesystem struct{}

func (p *filesystem) Call(ctx context.Context, method string, params Params) (interface{}, error) {
	switch method {
	case "entries":
		return p.entries(params)
	default:
		return nil, fmt.Errorf("%w %q on fs", ErrUnknownMethod, method)
	}
}

func (p *filesystem) entries(params Params) (interface{}, error) {
	dir := params.String("path")
	if dir == "" {
		dir = "."
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(params.String("folder"), dir)
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	ext := params.String("ext")
	dirsOnly := params.Bool("dirs")
	trim := params.Bool("trimExt")

	out := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if dirsOnly != item.IsDir() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		if trim {
			name = strings.TrimSuffix(name, filepath.Ext(name))
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// static returns its "values" (or "schema") parameter unchanged.
type static struct{}

func (p *static) Call(ctx context.Context, method string, params Params) (interface{}, error) {
	switch method {
	case "values":
		v, ok := params["values"]
		if !ok {
			return nil, fmt.Errorf("static.values: missing values parameter")
		}
		return v, nil
	case "schema":
		v, ok := params["schema"]
		if !ok {
			return nil, fmt.Errorf("static.schema: missing schema parameter")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w %q on static", ErrUnknownMethod, method)
	}
}
