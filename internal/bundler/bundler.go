// Package bundler runs a single bundling pass for a bundle configuration
// using esbuild's Go API.
package bundler

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/sync/semaphore"

	"github.com/foldingtext/ftbundle/internal/config"
	"github.com/foldingtext/ftbundle/internal/logging"
	"github.com/foldingtext/ftbundle/internal/metrics"
	"github.com/foldingtext/ftbundle/internal/resolve"
	"github.com/foldingtext/ftbundle/internal/shims"
	"github.com/foldingtext/ftbundle/internal/transform"
)

// Result is the outcome of a bundling pass. Exactly one of Stats and Err is
// set.
type Result struct {
	Stats *Stats
	Err   error
}

// Bundler starts a bundling pass. The returned channel delivers exactly one
// Result and is then closed.
type Bundler interface {
	Start(ctx context.Context, cfg config.Bundle) <-chan Result
}

// MessagesError carries the error messages reported by esbuild.
type MessagesError struct {
	Target   string
	Messages []api.Message
}

func (e *MessagesError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("bundle %q failed", e.Target)
	}
	msg := formatMessage(e.Messages[0])
	if n := len(e.Messages) - 1; n > 0 {
		return fmt.Sprintf("%s (and %d more)", msg, n)
	}
	return msg
}

// Unwrap returns the errors plugins failed with, if any.
func (e *MessagesError) Unwrap() []error {
	var errs []error
	for _, m := range e.Messages {
		if err, ok := m.Detail.(error); ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// Details renders all messages the way esbuild prints them.
func (e *MessagesError) Details() string {
	return strings.Join(api.FormatMessages(e.Messages, api.FormatMessagesOptions{Kind: api.ErrorMessage}), "")
}

func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}

// ESBuild is the Bundler backed by esbuild. It runs at most one pass at a
// time; further passes wait for the running one to finish.
type ESBuild struct {
	base      string
	sem       *semaphore.Weighted
	log       *logging.Logger
	runner    transform.Runner
	cacheSize int
	write     bool

	// transformers keeps the transformer of each cached target across
	// passes. Guarded by sem.
	transformers map[string]*cachedTransformer
}

type cachedTransformer struct {
	rules []config.Rule
	t     *transform.Transformer
}

func NewESBuild(base string) *ESBuild {
	return &ESBuild{
		base:      base,
		sem:       semaphore.NewWeighted(1),
		log:       logging.NewNop(),
		cacheSize: 512,
		write:     true,

		transformers: map[string]*cachedTransformer{},
	}
}

func (b *ESBuild) WithLogger(log *logging.Logger) *ESBuild {
	b.log = log
	return b
}

// WithRunner replaces the command runner of external loaders.
func (b *ESBuild) WithRunner(r transform.Runner) *ESBuild {
	b.runner = r
	return b
}

func (b *ESBuild) WithCacheSize(n int) *ESBuild {
	b.cacheSize = n
	return b
}

// WithWrite controls whether output files are written to disk. Without it
// the outputs are only measured.
func (b *ESBuild) WithWrite(write bool) *ESBuild {
	b.write = write
	return b
}

func (b *ESBuild) Start(ctx context.Context, cfg config.Bundle) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		stats, err := b.build(ctx, cfg)
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Stats: stats}
	}()
	return ch
}

func (b *ESBuild) build(ctx context.Context, cfg config.Bundle) (*Stats, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)

	start := time.Now()
	metrics.BundleBuildStarted(cfg.Name, start)

	stats, err := b.run(ctx, cfg, start)
	if err != nil {
		metrics.BundleBuildFailure(cfg.Name)
		return nil, err
	}
	metrics.BundleBuildSucceeded(cfg.Name, start, stats.OutputBytes())
	return stats, nil
}

func (b *ESBuild) run(ctx context.Context, cfg config.Bundle, start time.Time) (*Stats, error) {
	t, err := b.transformer(cfg)
	if err != nil {
		return nil, err
	}
	hits, misses := t.CacheStats()

	opts, err := buildOptions(b.base, cfg)
	if err != nil {
		return nil, err
	}

	src := shims.Overlay(b.base)
	r := resolve.New(b.base, src, cfg.Resolve)
	opts.Plugins = []api.Plugin{
		aliasPlugin(r),
		rulesPlugin(ctx, b.base, src, t),
	}

	b.log.Debugf("bundling %q into %s", cfg.Name, cfg.Output.Path)
	res := api.Build(opts)
	if len(res.Errors) > 0 {
		return nil, &MessagesError{Target: cfg.Name, Messages: res.Errors}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := newStats(cfg.Name, b.base, res)
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(start)
	h, m := t.CacheStats()
	stats.CacheHits, stats.CacheMisses = h-hits, m-misses
	if stats.CacheHits > 0 {
		metrics.TransformCacheHits.WithLabelValues(cfg.Name).Add(float64(stats.CacheHits))
	}

	if b.write {
		if err := WriteOutputs(res.OutputFiles); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// transformer returns the transformer for a pass. Targets with caching
// enabled reuse theirs as long as the rules stay the same.
func (b *ESBuild) transformer(cfg config.Bundle) (*transform.Transformer, error) {
	var opts []transform.Option
	if b.runner != nil {
		opts = append(opts, transform.WithRunner(b.runner))
	}
	if !cfg.Cache {
		return transform.New(cfg.Rules, opts...)
	}

	if c, ok := b.transformers[cfg.Name]; ok && reflect.DeepEqual(c.rules, cfg.Rules) {
		return c.t, nil
	}
	t, err := transform.New(cfg.Rules, append(opts, transform.WithCache(b.cacheSize))...)
	if err != nil {
		return nil, err
	}
	b.transformers[cfg.Name] = &cachedTransformer{rules: cfg.Clone().Rules, t: t}
	return t, nil
}
