package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Target names of the two browser libraries built by ftbundle.
const (
	TargetBirch       = "birch"
	TargetFoldingText = "foldingtext"
)

// Directory layout shared by both targets, relative to the base directory.
const (
	SourceDir = "lib-browser"
	DistDir   = "lib-browser/dist"
	ShimDir   = "lib-browser/shims"
)

// Shims lists the logical modules redirected to browser stand-ins.
var Shims = []string{"fs", "less", "atom", "grim"}

// Root is the top-level configuration structure: the set of bundle targets,
// keyed by target name.
type Root struct {
	Targets map[string]*Bundle `json:"targets,omitempty"`
}

// Bundle describes a single bundling pass: where to start, where to write
// the output, how to transform sources and how to resolve imports.
type Bundle struct {
	Name    string            `json:"-"`
	Entry   map[string]string `json:"entry"`
	Output  Output            `json:"output"`
	Rules   []Rule            `json:"rules,omitempty"`
	Resolve Resolve           `json:"resolve"`
	Cache   bool              `json:"cache,omitempty"`
	Watch   *Watch            `json:"watch,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

type Output struct {
	Filename      string `json:"filename"`                 // pattern with a [name] token
	Path          string `json:"path"`                     // output directory
	PublicPath    string `json:"public_path,omitempty"`    // URL prefix for emitted assets
	ChunkFilename string `json:"chunk_filename,omitempty"` // pattern with a content-hash token

	_ struct{} `additionalProperties:"false"`
}

// Rule maps a file pattern to a source transform. Rules are ordered: the
// first rule whose Test matches a file wins.
type Rule struct {
	Test    string         `json:"test"`
	Loader  string         `json:"loader"`
	Options map[string]any `json:"options,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

type Resolve struct {
	Alias      map[string]string `json:"alias,omitempty"`
	Extensions []string          `json:"extensions,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Watch holds the file selection used by watch mode.
type Watch struct {
	Include  []string `json:"include,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	Debounce Duration `json:"debounce,omitempty"`

	_ struct{} `additionalProperties:"false"`
}

// Default returns the built-in configuration for both targets, rooted at base.
func Default(base string) *Root {
	birch, ft := Birch(base), FoldingText(base)
	return &Root{Targets: map[string]*Bundle{
		birch.Name: &birch,
		ft.Name:    &ft,
	}}
}

// Birch returns the bundle configuration of the birch library.
func Birch(base string) Bundle {
	return newBrowserBundle(base, TargetBirch)
}

// FoldingText returns the bundle configuration of the foldingtext library.
func FoldingText(base string) Bundle {
	return newBrowserBundle(base, TargetFoldingText)
}

func newBrowserBundle(base, name string) Bundle {
	alias := make(map[string]string, len(Shims))
	for _, shim := range Shims {
		alias[shim] = filepath.Join(base, ShimDir, shim)
	}

	return Bundle{
		Name:  name,
		Entry: map[string]string{name: "./" + SourceDir + "/" + name},
		Output: Output{
			Filename:      "[name].js",
			Path:          filepath.Join(base, DistDir),
			PublicPath:    "browser/dist/",
			ChunkFilename: "[chunkhash].js",
		},
		Rules: []Rule{
			{Test: `\.coffee$`, Loader: LoaderCoffee},
			{Test: `\.(coffee\.md|litcoffee)$`, Loader: LoaderCoffee, Options: map[string]any{"literate": true}},
		},
		Resolve: Resolve{
			Alias:      alias,
			Extensions: []string{"", ".js", ".json", ".coffee"},
		},
		Cache: true,
		Watch: &Watch{
			Include:  []string{SourceDir + "/**"},
			Exclude:  []string{DistDir + "/**"},
			Debounce: Duration(200 * time.Millisecond),
		},
	}
}

// Clone returns a deep copy of the bundle. Callers handing a configuration
// to the bundler pass a clone, so the record they hold is never touched.
func (b Bundle) Clone() Bundle {
	c := b
	c.Entry = maps.Clone(b.Entry)
	if b.Rules != nil {
		c.Rules = make([]Rule, len(b.Rules))
		for i, r := range b.Rules {
			c.Rules[i] = Rule{Test: r.Test, Loader: r.Loader, Options: cloneOptions(r.Options)}
		}
	}
	c.Resolve.Alias = maps.Clone(b.Resolve.Alias)
	c.Resolve.Extensions = slices.Clone(b.Resolve.Extensions)
	if b.Watch != nil {
		w := *b.Watch
		w.Include = slices.Clone(b.Watch.Include)
		w.Exclude = slices.Clone(b.Watch.Exclude)
		c.Watch = &w
	}
	return c
}

func cloneOptions(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case map[string]any:
			out[k] = cloneOptions(v)
		case []any:
			out[k] = slices.Clone(v)
		default:
			out[k] = v
		}
	}
	return out
}

// EntryName returns the single entry name and path of the bundle. Bundles
// with several entries report the lexically first one.
func (b *Bundle) EntryName() (string, string) {
	keys := slices.Sorted(maps.Keys(b.Entry))
	if len(keys) == 0 {
		return "", ""
	}
	return keys[0], b.Entry[keys[0]]
}

// Rebase joins every relative filesystem path of the bundle onto base.
// Entry paths stay relative: they are resolved from the base directory by
// the bundler itself.
func (b *Bundle) Rebase(base string) {
	if b.Output.Path != "" && !filepath.IsAbs(b.Output.Path) {
		b.Output.Path = filepath.Join(base, b.Output.Path)
	}
	for k, v := range b.Resolve.Alias {
		if !filepath.IsAbs(v) {
			b.Resolve.Alias[k] = filepath.Join(base, v)
		}
	}
}

func (r *Root) UnmarshalYAML(bs []byte) error {
	type rawRoot Root // avoid recursive calls to UnmarshalYAML by type aliasing
	var raw rawRoot

	if err := yaml.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode Root: %w", err)
	}

	*r = Root(raw)
	return r.unmarshal()
}

func (r *Root) UnmarshalJSON(bs []byte) error {
	type rawRoot Root
	var raw rawRoot

	if err := json.Unmarshal(bs, &raw); err != nil {
		return fmt.Errorf("failed to decode Root: %w", err)
	}

	*r = Root(raw)
	return r.unmarshal()
}

func (r *Root) unmarshal() error {
	for name := range r.Targets {
		r.Targets[name] = cmp.Or(r.Targets[name], &Bundle{})
		r.Targets[name].Name = name
		for i := range r.Targets[name].Rules {
			rule := &r.Targets[name].Rules[i]
			loader, opts := ParseLoader(rule.Loader)
			rule.Loader = loader
			if len(opts) > 0 {
				if rule.Options == nil {
					rule.Options = make(map[string]any, len(opts))
				}
				for k, v := range opts {
					if _, ok := rule.Options[k]; !ok {
						rule.Options[k] = v
					}
				}
			}
		}
	}
	return nil
}

// Rebase applies Bundle.Rebase to every target.
func (r *Root) Rebase(base string) {
	for _, b := range r.Targets {
		b.Rebase(base)
	}
}

// SortedTargets iterates the targets in a fixed order: the built-in targets
// first (birch, then foldingtext), then any others by name.
func (r *Root) SortedTargets() iter.Seq2[int, *Bundle] {
	names := slices.SortedFunc(maps.Keys(r.Targets), func(a, b string) int {
		return cmp.Or(cmp.Compare(targetRank(a), targetRank(b)), strings.Compare(a, b))
	})
	return func(yield func(int, *Bundle) bool) {
		for i, name := range names {
			if !yield(i, r.Targets[name]) {
				return
			}
		}
	}
}

func targetRank(name string) int {
	switch name {
	case TargetBirch:
		return 0
	case TargetFoldingText:
		return 1
	}
	return 2
}

// Target returns a copy of the named bundle.
func (r *Root) Target(name string) (Bundle, bool) {
	b, ok := r.Targets[name]
	if !ok || b == nil {
		return Bundle{}, false
	}
	return b.Clone(), true
}

// Instead of marshaling and unmarshaling as int64 it uses strings, like "5m" or "0.5s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	val, err := time.ParseDuration(str)
	*d = Duration(val)
	return err
}

func (d *Duration) UnmarshalYAML(bs []byte) error {
	var s string
	if err := yaml.Unmarshal(bs, &s); err != nil {
		return err
	}
	val, err := time.ParseDuration(s)
	*d = Duration(val)
	return err
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func ParseFile(filename string) (*Root, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	return Parse(bs)
}

// Parse validates the document against the configuration schema, decodes it
// and checks the bundle invariants.
func Parse(bs []byte) (*Root, error) {
	if err := Validate(bs); err != nil {
		return nil, err
	}

	var root Root
	if err := yaml.Unmarshal(bs, &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := root.Check(); err != nil {
		return nil, err
	}
	return &root, nil
}

// Marshal renders the root as YAML.
func (r *Root) Marshal() ([]byte, error) {
	return yaml.MarshalWithOptions(r, yaml.Indent(2), yaml.IndentSequence(true))
}
