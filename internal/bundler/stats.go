package bundler

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/olekukonko/tablewriter"
)

// Metafile is the subset of esbuild's metafile the statistics are built
// from.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
}

type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
}

type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Asset is one emitted file.
type Asset struct {
	Name    string // relative to the base directory
	Bytes   int
	Modules int
	Entry   string
}

// Stats summarizes a finished bundling pass.
type Stats struct {
	Target      string
	Duration    time.Duration
	Assets      []Asset
	Modules     int
	InputBytes  int
	Warnings    []string
	CacheHits   int64
	CacheMisses int64
}

func newStats(target, base string, res api.BuildResult) (*Stats, error) {
	var mf Metafile
	if res.Metafile != "" {
		if err := json.Unmarshal([]byte(res.Metafile), &mf); err != nil {
			return nil, fmt.Errorf("metafile: %w", err)
		}
	}

	s := Stats{Target: target, Modules: len(mf.Inputs)}
	for _, in := range mf.Inputs {
		s.InputBytes += in.Bytes
	}
	for _, name := range slices.Sorted(maps.Keys(mf.Outputs)) {
		out := mf.Outputs[name]
		s.Assets = append(s.Assets, Asset{Name: name, Bytes: out.Bytes, Modules: len(out.Inputs), Entry: out.EntryPoint})
	}
	for _, w := range res.Warnings {
		s.Warnings = append(s.Warnings, formatMessage(w))
	}
	return &s, nil
}

// OutputBytes is the total size of all assets.
func (s *Stats) OutputBytes() int64 {
	var n int64
	for _, a := range s.Assets {
		n += int64(a.Bytes)
	}
	return n
}

// Summary renders the statistics for humans: a headline, a table of the
// emitted assets and any warnings.
func (s *Stats) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d modules (%s) bundled in %s\n",
		s.Target, s.Modules, humanize.Bytes(uint64(s.InputBytes)), s.Duration.Round(time.Millisecond))

	table := tablewriter.NewWriter(&sb)
	table.Header("Asset", "Size", "Modules", "Entry")
	for _, a := range s.Assets {
		_ = table.Append(a.Name, humanize.Bytes(uint64(a.Bytes)), fmt.Sprint(a.Modules), a.Entry)
	}
	_ = table.Render()

	if s.CacheHits+s.CacheMisses > 0 {
		fmt.Fprintf(&sb, "transform cache: %d hits, %d misses\n", s.CacheHits, s.CacheMisses)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(&sb, "WARNING %s\n", w)
	}
	return strings.TrimRight(sb.String(), "\n")
}
