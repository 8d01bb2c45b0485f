// Package bundle builds the birch and foldingtext browser libraries from Go
// programs, without going through the ftbundle command line.
//
// A bundle is described by a Config. The built-in configurations resolve
// their entry points, output directory and shim aliases against a base
// directory:
//
// # Basic Usage
//
//	import "github.com/foldingtext/ftbundle/pkg/bundle"
//
//	b := bundle.New("/path/to/project")
//	stats, err := b.Build(ctx, bundle.Birch("/path/to/project"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(stats.Summary())
//
// Sources matching a rule are transformed before bundling; the built-in
// rules compile CoffeeScript with the coffee command found on PATH. The
// modules fs, less, atom and grim resolve to lib-browser/shims, falling back
// to stand-ins shipped with ftbundle.
//
// # Dry Runs
//
// WithWrite(false) bundles without writing any file; the returned Stats
// still describe the assets that would have been written.
package bundle
