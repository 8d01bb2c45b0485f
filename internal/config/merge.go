package config

import (
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

// Files expands the given configuration paths into the list of files they
// name; directories are walked and every regular file found is included in
// lexical order.
func Files(configFiles []string) ([]string, error) {
	var paths []string
	for _, f := range configFiles {
		if err := filepath.WalkDir(f, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			paths = append(paths, path)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// MergeFiles reads the given configuration files and merges them on top of
// base, which may be nil. Later documents override earlier ones unless
// conflictError is set, in which case any differing value is an error.
func MergeFiles(base []byte, configFiles []string, conflictError bool) ([]byte, error) {
	paths, err := Files(configFiles)
	if err != nil {
		return nil, err
	}

	docs := make([][]byte, 0, len(paths)+1)
	if base != nil {
		docs = append(docs, base)
	}
	for _, f := range paths {
		bs, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %v: %v", f, err)
		}
		docs = append(docs, bs)
	}
	return Merge(docs, conflictError)
}

// Merge deep-merges YAML (or JSON) documents into one YAML document.
func Merge(docs [][]byte, conflictError bool) ([]byte, error) {
	maps_ := make([]map[string]any, 0, len(docs))
	for i, bs := range docs {
		var x map[string]any
		if err := yaml.Unmarshal(bs, &x); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration document %d: %v", i, err)
		}
		maps_ = append(maps_, x)
	}

	merged, err := merge(maps_, "", conflictError)
	if err != nil {
		return nil, err
	}

	bs, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged configuration: %v", err)
	}

	return bs, nil
}

func merge(docs []map[string]any, path string, conflictError bool) (map[string]any, error) {
	result := make(map[string]any)
	for _, doc := range docs {
		for _, key := range slices.Sorted(maps.Keys(doc)) { // Sort keys to ensure deterministic merge errors.
			value := doc[key]
			if existing, ok := result[key]; ok {
				if existingMap, ok1 := existing.(map[string]any); ok1 {
					if valueMap, ok2 := value.(map[string]any); ok2 {
						var err error
						result[key], err = merge([]map[string]any{existingMap, valueMap}, path+"/"+key, conflictError)
						if err != nil {
							return nil, err
						}
						continue
					}
				}

				if conflictError && !reflect.DeepEqual(existing, value) {
					return nil, fmt.Errorf("conflict for config path %s", path+"/"+key)
				}
			}
			result[key] = value
		}
	}
	return result, nil
}
