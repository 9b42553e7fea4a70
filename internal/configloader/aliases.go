// SPDX-License-Identifier: AGPL-3.0-or-later
package configloader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowd-org/ask/internal/types"
)

// NormaliseAliases trims, validates and de-duplicates alias entries and
// returns them sorted by name. An alias may not point at another alias.
func NormaliseAliases(aliases []types.ActionAlias) ([]types.ActionAlias, error) {
	if len(aliases) == 0 {
		return nil, nil
	}
	out := make([]types.ActionAlias, 0, len(aliases))
	byName := make(map[string]string, len(aliases))
	for _, alias := range aliases {
		from := strings.TrimSpace(alias.From)
		to := strings.TrimSpace(alias.To)
		if from == "" || to == "" {
			return nil, fmt.Errorf("alias entries must include from and to")
		}
		if prev, ok := byName[from]; ok {
			if prev != to {
				return nil, fmt.Errorf("alias %q declared twice (%q and %q)", from, prev, to)
			}
			continue
		}
		byName[from] = to
		out = append(out, types.ActionAlias{
			From:        from,
			To:          to,
			Description: strings.TrimSpace(alias.Description),
		})
	}
	for _, alias := range out {
		if _, chained := byName[alias.To]; chained {
			return nil, fmt.Errorf("invalid alias %q -> %q: target is itself an alias", alias.From, alias.To)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].From < out[j].From
	})
	return out, nil
}

// ResolveAlias returns the target of action, or action itself.
func ResolveAlias(aliases []types.ActionAlias, action string) string {
	for _, alias := range aliases {
		if alias.From == action {
			return alias.To
		}
	}
	return action
}
