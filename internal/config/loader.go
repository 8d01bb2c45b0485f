package config

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Loader identifiers accepted in rules. Apart from LoaderCoffee, which runs
// an external compiler, they map one-to-one onto the bundler's own loaders.
const (
	LoaderCoffee  = "coffee"
	LoaderJS      = "js"
	LoaderJSX     = "jsx"
	LoaderTS      = "ts"
	LoaderTSX     = "tsx"
	LoaderJSON    = "json"
	LoaderCSS     = "css"
	LoaderText    = "text"
	LoaderFile    = "file"
	LoaderDataURL = "dataurl"
	LoaderBase64  = "base64"
	LoaderBinary  = "binary"
	LoaderCopy    = "copy"
	LoaderEmpty   = "empty"
)

var loaders = []string{
	LoaderCoffee, LoaderJS, LoaderJSX, LoaderTS, LoaderTSX, LoaderJSON, LoaderCSS,
	LoaderText, LoaderFile, LoaderDataURL, LoaderBase64, LoaderBinary, LoaderCopy, LoaderEmpty,
}

// KnownLoader reports whether name is a loader a rule may refer to.
func KnownLoader(name string) bool {
	return slices.Contains(loaders, name)
}

// ParseLoader splits a loader reference in the "name-loader?query" form into
// the bare loader name and its options. Flags without a value become true,
// numeric and boolean values are decoded.
//
//	coffee-loader?literate     => coffee, {literate: true}
//	text?encoding=utf8&raw=0   => text, {encoding: "utf8", raw: 0}
func ParseLoader(s string) (string, map[string]any) {
	name, query, _ := strings.Cut(strings.TrimSpace(s), "?")
	name = strings.TrimSuffix(name, "-loader")
	if query == "" {
		return name, nil
	}

	opts := map[string]any{}
	for part := range strings.SplitSeq(query, "&") {
		if part == "" {
			continue
		}
		k, v, hasValue := strings.Cut(part, "=")
		if uk, err := url.QueryUnescape(k); err == nil {
			k = uk
		}
		if !hasValue {
			opts[k] = true
			continue
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		opts[k] = scalar(v)
	}
	return name, opts
}

func scalar(v string) any {
	if b, err := strconv.ParseBool(v); err == nil && (v == "true" || v == "false") {
		return b
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return v
}
