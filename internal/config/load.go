package config

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/foldingtext/ftbundle/internal/jsonpatch"
)

// LoadOptions select the configuration layers applied on top of the
// built-in targets.
type LoadOptions struct {
	Base    string   // base directory; relative paths are joined onto it
	Files   []string // YAML or JSON files (or directories of them), merged in order
	Patches []string // JSON patch files, applied after merging
	Strict  bool     // fail when two files set different values for the same path
}

// Load returns the effective configuration. Without files and patches it is
// exactly Default(opts.Base).
func Load(opts LoadOptions) (*Root, error) {
	if len(opts.Files) == 0 && len(opts.Patches) == 0 {
		return Default(opts.Base), nil
	}

	base, err := json.Marshal(Default(opts.Base))
	if err != nil {
		return nil, err
	}

	merged, err := MergeFiles(base, opts.Files, opts.Strict)
	if err != nil {
		return nil, err
	}

	if len(opts.Patches) > 0 {
		doc, err := yaml.YAMLToJSON(merged)
		if err != nil {
			return nil, fmt.Errorf("failed to convert merged configuration: %w", err)
		}
		for _, name := range opts.Patches {
			p, err := jsonpatch.ReadFile(name)
			if err != nil {
				return nil, fmt.Errorf("patch %s: %w", name, err)
			}
			if doc, err = jsonpatch.Apply(p, doc); err != nil {
				return nil, fmt.Errorf("patch %s: %w", name, err)
			}
		}
		merged = doc
	}

	root, err := Parse(merged)
	if err != nil {
		return nil, err
	}
	root.Rebase(opts.Base)
	return root, nil
}
