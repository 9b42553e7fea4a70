// SPDX-License-Identifier: AGPL-3.0-or-later
package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowd-org/ask/internal/types"
)

// AliasInfo describes a resolved alias entry.
type AliasInfo struct {
	Name        string `json:"name"`
	Target      string `json:"target"`
	Description string `json:"description,omitempty"`
}

// AliasIndex summarizes valid aliases and invalid ones keyed by alias name.
type AliasIndex struct {
	Entries []AliasInfo
	Invalid map[string]AliasValidation
}

// AliasValidation captures structured metadata for invalid alias definitions keyed by alias name.
type AliasValidation struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

const aliasSource = "ask.yaml (aliases)"

// BuildAliasIndex validates alias definitions against discovered actions and
// returns normalized alias entries plus any discovery errors encountered.
func BuildAliasIndex(actions []ActionInfo, aliases []types.ActionAlias) (AliasIndex, []DiscoveryError) {
	if len(aliases) == 0 {
		return AliasIndex{}, nil
	}

	known := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		known[a.Name] = struct{}{}
	}

	invalid := make(map[string]AliasValidation)
	var errs []DiscoveryError
	var entries []AliasInfo

	reject := func(name, code, detail string) {
		invalid[name] = AliasValidation{Code: code, Detail: detail}
		errs = append(errs, DiscoveryError{Path: aliasSource, Err: detail})
	}

	for _, alias := range aliases {
		name := strings.TrimSpace(alias.From)
		target := normalizeAliasTarget(alias.To)
		switch {
		case name == "" || target == "":
			errs = append(errs, DiscoveryError{Path: aliasSource, Err: "alias entries must include from and to"})
		case strings.HasPrefix(name, ":"):
			reject(name, "alias.reserved", fmt.Sprintf("alias name %q uses reserved prefix", name))
		case strings.ContainsAny(name, "/ "):
			reject(name, "alias.name.invalid", fmt.Sprintf("alias name %q must not contain '/' or spaces", name))
		default:
			if _, ok := known[name]; ok {
				reject(name, "alias.name.conflict", fmt.Sprintf("alias name %q conflicts with an action", name))
				continue
			}
			if _, ok := known[target]; !ok {
				reject(name, "alias.target.invalid", fmt.Sprintf("alias %q target %q not found", name, alias.To))
				continue
			}
			entries = append(entries, AliasInfo{Name: name, Target: target, Description: alias.Description})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	sort.Slice(errs, func(i, j int) bool { return errs[i].Err < errs[j].Err })
	if len(invalid) == 0 {
		invalid = nil
	}
	return AliasIndex{Entries: entries, Invalid: invalid}, errs
}

// normalizeAliasTarget accepts "a/b", "a:b" and "a\b" spellings and returns
// the colon form.
func normalizeAliasTarget(to string) string {
	normalized := strings.TrimSpace(to)
	normalized = strings.ReplaceAll(normalized, "\\", "/")
	normalized = strings.ReplaceAll(normalized, ":", "/")
	normalized = strings.ReplaceAll(normalized, "//", "/")
	normalized = strings.Trim(normalized, "/")
	return strings.ReplaceAll(normalized, "/", ":")
}
