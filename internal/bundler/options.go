package bundler

import (
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/foldingtext/ftbundle/internal/config"
)

// nameTokens maps output name tokens onto esbuild placeholders. All hash
// flavours collapse into esbuild's content hash.
var nameTokens = strings.NewReplacer(
	"[chunkhash]", "[hash]",
	"[contenthash]", "[hash]",
)

// NamePattern translates an output filename pattern into an esbuild name
// template. The extension is dropped; esbuild derives it from the output.
func NamePattern(pattern string) string {
	if pattern == "" {
		return ""
	}
	pattern = strings.TrimSuffix(pattern, path.Ext(pattern))
	return nameTokens.Replace(pattern)
}

func buildOptions(base string, cfg config.Bundle) (api.BuildOptions, error) {
	if len(cfg.Entry) == 0 {
		return api.BuildOptions{}, errors.New("no entry points")
	}
	if cfg.Output.Path == "" {
		return api.BuildOptions{}, errors.New("no output path")
	}

	entries := make([]api.EntryPoint, 0, len(cfg.Entry))
	for _, name := range slices.Sorted(maps.Keys(cfg.Entry)) {
		entries = append(entries, api.EntryPoint{InputPath: cfg.Entry[name], OutputPath: name})
	}

	var exts []string
	for _, ext := range cfg.Resolve.Extensions {
		if ext != "" { // esbuild always tries the path as given first
			exts = append(exts, ext)
		}
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       base,
		Outdir:              cfg.Output.Path,
		EntryNames:          NamePattern(cfg.Output.Filename),
		ChunkNames:          NamePattern(cfg.Output.ChunkFilename),
		PublicPath:          cfg.Output.PublicPath,
		ResolveExtensions:   exts,
		Bundle:              true,
		Platform:            api.PlatformBrowser,
		Format:              api.FormatIIFE,
		Metafile:            true,
		Write:               false,
		LogLevel:            api.LogLevelSilent,
	}
	return opts, nil
}

var loaders = map[string]api.Loader{
	config.LoaderJS:      api.LoaderJS,
	config.LoaderJSX:     api.LoaderJSX,
	config.LoaderTS:      api.LoaderTS,
	config.LoaderTSX:     api.LoaderTSX,
	config.LoaderJSON:    api.LoaderJSON,
	config.LoaderCSS:     api.LoaderCSS,
	config.LoaderText:    api.LoaderText,
	config.LoaderFile:    api.LoaderFile,
	config.LoaderDataURL: api.LoaderDataURL,
	config.LoaderBase64:  api.LoaderBase64,
	config.LoaderBinary:  api.LoaderBinary,
	config.LoaderCopy:    api.LoaderCopy,
	config.LoaderEmpty:   api.LoaderEmpty,
}

func esbuildLoader(name string) (api.Loader, error) {
	l, ok := loaders[name]
	if !ok {
		return api.LoaderNone, fmt.Errorf("loader %q produces no bundler input", name)
	}
	return l, nil
}

// loaderForExt picks the loader of an embedded file by its extension.
func loaderForExt(name string) api.Loader {
	switch path.Ext(name) {
	case ".json":
		return api.LoaderJSON
	case ".css":
		return api.LoaderCSS
	default:
		return api.LoaderJS
	}
}
