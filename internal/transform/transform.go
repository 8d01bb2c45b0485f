// Package transform applies the ordered loader rules of a bundle to source
// files before they reach the bundler.
package transform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/foldingtext/ftbundle/internal/config"
)

// Result is the transformed source of a file together with the bundler
// loader that should parse it.
type Result struct {
	Contents string
	Loader   string
}

// Loader turns the source of a file into a Result.
type Loader interface {
	Load(ctx context.Context, path string, src []byte) (Result, error)
}

// Rule is a compiled config.Rule.
type Rule struct {
	Test    *regexp.Regexp
	Name    string
	Options map[string]any
	loader  Loader
}

// Rules is an ordered rule list; the first match wins.
type Rules []Rule

// Match returns the first rule whose pattern matches path.
func (rs Rules) Match(path string) (*Rule, bool) {
	i := slices.IndexFunc(rs, func(r Rule) bool { return r.Test.MatchString(path) })
	if i < 0 {
		return nil, false
	}
	return &rs[i], true
}

// Transformer holds the compiled rules of a bundle and an optional cache of
// transform results.
type Transformer struct {
	rules  Rules
	cache  *lru.Cache
	runner Runner
	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*Transformer)

// WithCache keeps up to size transform results, keyed by content.
func WithCache(size int) Option {
	return func(t *Transformer) {
		if size <= 0 {
			return
		}
		c, err := lru.New(size)
		if err == nil {
			t.cache = c
		}
	}
}

// WithRunner replaces the command runner used by external loaders.
func WithRunner(r Runner) Option {
	return func(t *Transformer) {
		t.runner = r
	}
}

// New compiles rules. Patterns and loader names are checked here, so a
// broken rule fails before any file is read.
func New(rules []config.Rule, opts ...Option) (*Transformer, error) {
	t := &Transformer{runner: execRunner}
	for _, o := range opts {
		o(t)
	}

	t.rules = make(Rules, 0, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Test)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		l, err := t.newLoader(r.Loader, r.Options)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		t.rules = append(t.rules, Rule{Test: re, Name: r.Loader, Options: r.Options, loader: l})
	}
	return t, nil
}

func (t *Transformer) newLoader(name string, opts map[string]any) (Loader, error) {
	switch name {
	case config.LoaderCoffee:
		return newCoffeeLoader(opts, t.runner)
	default:
		if !config.KnownLoader(name) {
			return nil, fmt.Errorf("unknown loader %q", name)
		}
		return passthrough(name), nil
	}
}

// Rules returns the compiled rules.
func (t *Transformer) Rules() Rules {
	return t.rules
}

// Transform runs the first matching rule on a file. ok is false when no rule
// matches, in which case the bundler loads the file itself.
func (t *Transformer) Transform(ctx context.Context, path string, src []byte) (res Result, ok bool, err error) {
	rule, ok := t.rules.Match(path)
	if !ok {
		return Result{}, false, nil
	}

	key := ""
	if t.cache != nil {
		key = cacheKey(rule, path, src)
		if v, found := t.cache.Get(key); found {
			t.hits.Add(1)
			return v.(Result), true, nil
		}
		t.misses.Add(1)
	}

	res, err = rule.loader.Load(ctx, path, src)
	if err != nil {
		return Result{}, true, err
	}
	if t.cache != nil {
		t.cache.Add(key, res)
	}
	return res, true, nil
}

// CacheStats reports cache hits and misses since the transformer was created.
func (t *Transformer) CacheStats() (hits, misses int64) {
	return t.hits.Load(), t.misses.Load()
}

func cacheKey(rule *Rule, path string, src []byte) string {
	h := sha256.New()
	opts, _ := json.Marshal(rule.Options) // map keys are sorted
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", rule.Name, opts, path)
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}

type passthrough string

func (p passthrough) Load(_ context.Context, _ string, src []byte) (Result, error) {
	return Result{Contents: string(src), Loader: string(p)}, nil
}
