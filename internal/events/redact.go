// SPDX-License-Identifier: AGPL-3.0-or-later
package events

import (
	"sort"
	"strings"
)

const secretToken = "[secret]"

// SecretToken is the placeholder written in place of secret values.
func SecretToken() string { return secretToken }

// RedactSecrets returns values with every name in secretNames masked. The
// input map is returned as is when nothing needs masking.
func RedactSecrets(values map[string]interface{}, secretNames map[string]struct{}) map[string]interface{} {
	if len(secretNames) == 0 || len(values) == 0 {
		return values
	}
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		_, secret := secretNames[k]
		out[k] = RedactValue(v, secret)
	}
	return out
}

// RedactValue hides value when secret is set. Empty secrets stay empty so a
// skipped answer is still visible as such.
func RedactValue(value interface{}, secret bool) interface{} {
	if !secret {
		return value
	}
	if s, ok := value.(string); ok && s == "" {
		return s
	}
	return secretToken
}

// NewLineRedactor masks any occurrence of the given secret values in a line.
// It returns nil when there is nothing to mask.
func NewLineRedactor(secretValues []string) func(string) string {
	uniq := make(map[string]struct{}, len(secretValues))
	for _, v := range secretValues {
		if v != "" {
			uniq[v] = struct{}{}
		}
	}
	if len(uniq) == 0 {
		return nil
	}
	ordered := make([]string, 0, len(uniq))
	for v := range uniq {
		ordered = append(ordered, v)
	}
	// longest first so a secret containing another is masked whole
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	pairs := make([]string, 0, 2*len(ordered))
	for _, v := range ordered {
		pairs = append(pairs, v, secretToken)
	}
	return strings.NewReplacer(pairs...).Replace
}
