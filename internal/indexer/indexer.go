// SPDX-License-Identifier: AGPL-3.0-or-later

// Package indexer lists the actions available across the schema roots.
package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/flowd-org/ask/internal/configloader"
	"github.com/flowd-org/ask/internal/schemastore"
	"github.com/flowd-org/ask/internal/types"
)

// ActionInfo summarizes a discovered action.
// Name is the colon-separated action name; Source is the file it resolves to.
type ActionInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Handler     string `json:"handler,omitempty"`
	Arguments   int    `json:"arguments"`
	Root        string `json:"root"`
	Source      string `json:"source"`
}

// DiscoveryError captures parsing or validation errors.
type DiscoveryError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Result bundles discovered actions and any errors encountered.
type Result struct {
	Actions      []ActionInfo               `json:"actions"`
	Shadowed     map[string][]string        `json:"shadowed,omitempty"`
	Aliases      []AliasInfo                `json:"aliases,omitempty"`
	AliasInvalid map[string]AliasValidation `json:"alias_invalid,omitempty"`
	Errors       []DiscoveryError           `json:"errors,omitempty"`
}

// Lookup returns the action with the given name.
func (r Result) Lookup(name string) (ActionInfo, bool) {
	for _, a := range r.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionInfo{}, false
}

// Discover walks every root for schema files. Roots are searched in the same
// precedence order as the schema store: an action found in an earlier root
// shadows the same name in later roots.
func Discover(roots []schemastore.Root, aliases []types.ActionAlias) (Result, error) {
	var res Result
	seen := make(map[string]bool)

	for _, root := range roots {
		files, err := schemaFiles(root)
		if err != nil {
			return res, fmt.Errorf("walk root %s: %w", root.Name, err)
		}
		for _, file := range files {
			loc := schemastore.Location{Root: root, Path: file}
			name := actionName(file)
			if seen[name] {
				if res.Shadowed == nil {
					res.Shadowed = make(map[string][]string)
				}
				res.Shadowed[name] = append(res.Shadowed[name], loc.String())
				continue
			}
			info, err := describe(loc, name)
			if err != nil {
				res.Errors = append(res.Errors, DiscoveryError{Path: loc.String(), Err: err.Error()})
				seen[name] = true
				continue
			}
			seen[name] = true
			res.Actions = append(res.Actions, info)
		}
	}

	sort.Slice(res.Actions, func(i, j int) bool {
		return res.Actions[i].Name < res.Actions[j].Name
	})

	if len(aliases) > 0 {
		index, errs := BuildAliasIndex(res.Actions, aliases)
		res.Aliases = index.Entries
		res.AliasInvalid = index.Invalid
		res.Errors = append(res.Errors, errs...)
	}
	return res, nil
}

// schemaFiles lists schema files in root, one per action: when several
// extensions exist for the same name the lookup order decides.
func schemaFiles(root schemastore.Root) ([]string, error) {
	if root.FS == nil {
		return nil, nil
	}
	byAction := make(map[string]string)
	rank := func(p string) int {
		ext := strings.ToLower(path.Ext(p))
		for i, e := range configloader.SchemaExtensions {
			if e == ext {
				return i
			}
		}
		return -1
	}

	err := fs.WalkDir(root.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == "." {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if rank(p) < 0 || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		key := strings.TrimSuffix(p, path.Ext(p))
		if prev, ok := byAction[key]; !ok || rank(p) < rank(prev) {
			byAction[key] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(byAction))
	for _, p := range byAction {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func describe(loc schemastore.Location, name string) (ActionInfo, error) {
	data, err := loc.Read()
	if err != nil {
		return ActionInfo{}, fmt.Errorf("read schema: %w", err)
	}
	schema, err := configloader.DecodeSchema(loc.Path, data)
	if err != nil {
		return ActionInfo{}, err
	}
	info := ActionInfo{
		Name:        name,
		Description: schema.Description,
		Arguments:   len(schema.Arguments),
		Root:        loc.Root.Name,
		Source:      loc.String(),
	}
	if info.Description == "" {
		info.Description = schema.Label
	}
	if schema.Handler != nil {
		info.Handler = schema.Handler.String()
	}
	return info, nil
}

func actionName(file string) string {
	return strings.ReplaceAll(strings.TrimSuffix(file, path.Ext(file)), "/", ":")
}
