//go:generate go run ../build/gen-config-schema.go schema.json

// Package config embeds the JSON schema of ftbundle configuration files: a
// map of bundle targets (birch, foldingtext) with their entry points,
// output, loader rules, module aliases and watch settings.
package config

import (
	_ "embed"
)

//go:embed "schema.json"
var schema []byte

// Schema returns the embedded bundle configuration schema. "ftbundle config
// schema" prints it, and internal/config validates config files against it.
func Schema() []byte {
	return schema
}
