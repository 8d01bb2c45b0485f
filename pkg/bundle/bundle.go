package bundle

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/foldingtext/ftbundle/internal/build"
	"github.com/foldingtext/ftbundle/internal/bundler"
	"github.com/foldingtext/ftbundle/internal/config"
	"github.com/foldingtext/ftbundle/internal/logging"
)

type (
	Config  = config.Bundle
	Output  = config.Output
	Rule    = config.Rule
	Resolve = config.Resolve
	Stats   = bundler.Stats
	Asset   = bundler.Asset

	// Error is returned by Build when bundling fails.
	Error = build.Error
)

// Birch returns the built-in configuration of the birch library.
func Birch(base string) Config {
	return config.Birch(base)
}

// FoldingText returns the built-in configuration of the foldingtext library.
func FoldingText(base string) Config {
	return config.FoldingText(base)
}

// Builder bundles configurations rooted at one base directory. It is safe
// for concurrent use; passes run one at a time.
type Builder struct {
	esb *bundler.ESBuild
}

func New(base string) *Builder {
	return &Builder{esb: bundler.NewESBuild(base)}
}

// WithWrite controls whether output files are written.
func (b *Builder) WithWrite(write bool) *Builder {
	b.esb.WithWrite(write)
	return b
}

// WithLogger sends debug output of the bundler to l.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.esb.WithLogger(logging.FromZerolog(l))
	return b
}

// Build runs one bundling pass for cfg. cfg is copied; the caller's value is
// never modified.
func (b *Builder) Build(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	res := <-b.esb.Start(ctx, cfg.Clone())
	if res.Err != nil {
		return nil, &Error{Target: cfg.Name, Err: res.Err}
	}
	return res.Stats, nil
}
