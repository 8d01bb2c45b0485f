package bundler

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/foldingtext/ftbundle/internal/resolve"
	"github.com/foldingtext/ftbundle/internal/transform"
)

// shimNamespace holds files that only exist in the embedded shim overlay.
const shimNamespace = "shim"

// aliasPlugin redirects aliased imports to the files the resolver finds for
// them. Embedded shims are served from the shim namespace.
func aliasPlugin(r *resolve.Resolver) api.Plugin {
	return api.Plugin{
		Name: "alias",
		Setup: func(build api.PluginBuild) {
			names := r.Names()
			if len(names) == 0 {
				return
			}
			quoted := make([]string, len(names))
			for i, n := range names {
				quoted[i] = regexp.QuoteMeta(n)
			}
			filter := "^(" + strings.Join(quoted, "|") + ")(/.*)?$"

			build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				res, ok, err := r.Resolve(args.Path)
				if err != nil {
					return api.OnResolveResult{}, err
				}
				if !ok {
					return api.OnResolveResult{}, nil
				}
				if res.OnDisk {
					return api.OnResolveResult{Path: res.Path}, nil
				}
				return api.OnResolveResult{Path: res.Rel, Namespace: shimNamespace}, nil
			})
		},
	}
}

// rulesPlugin runs the transform rules over the files the bundler loads.
// Files no rule matches are left to the bundler, except in the shim
// namespace, which the bundler cannot read itself.
func rulesPlugin(ctx context.Context, base string, src fs.FS, t *transform.Transformer) api.Plugin {
	return api.Plugin{
		Name: "rules",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				if _, ok := t.Rules().Match(args.Path); !ok {
					return api.OnLoadResult{}, nil
				}
				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				return load(ctx, t, args.Path, data)
			})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: shimNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				data, err := fs.ReadFile(src, args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				abs := filepath.Join(base, filepath.FromSlash(args.Path))
				dir := filepath.Dir(abs)

				if _, ok := t.Rules().Match(abs); ok {
					res, err := load(ctx, t, abs, data)
					res.ResolveDir = dir
					return res, err
				}
				contents := string(data)
				return api.OnLoadResult{Contents: &contents, ResolveDir: dir, Loader: loaderForExt(path.Base(args.Path))}, nil
			})
		},
	}
}

func load(ctx context.Context, t *transform.Transformer, name string, data []byte) (api.OnLoadResult, error) {
	res, _, err := t.Transform(ctx, name, data)
	if err != nil {
		return api.OnLoadResult{}, err
	}
	loader, err := esbuildLoader(res.Loader)
	if err != nil {
		return api.OnLoadResult{}, err
	}
	return api.OnLoadResult{Contents: &res.Contents, Loader: loader}, nil
}
