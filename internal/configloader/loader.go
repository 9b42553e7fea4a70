// SPDX-License-Identifier: AGPL-3.0-or-later

package configloader

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/flowd-org/ask/internal/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// SchemaExtensions lists the recognised schema file extensions in lookup order.
var SchemaExtensions = []string{".yaml", ".yml", ".jsonc", ".json"}

// DecodeSchema parses a schema file body. JSON and JSONC files are stripped of
// comments and trailing commas and then decoded by the YAML decoder so that
// argument order is kept for every format.
func DecodeSchema(name string, data []byte) (*types.ActionSchema, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	var schema types.ActionSchema
	if len(bytes.TrimSpace(data)) == 0 {
		return &schema, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if schema.CommandKey != "" && schema.Argument(schema.CommandKey) == nil {
		return nil, fmt.Errorf("decode schema: commandKey %q is not a declared argument", schema.CommandKey)
	}
	return &schema, nil
}
