package config

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError reports a configuration that is well-formed but violates
// a bundle invariant.
type ValidationError struct {
	Target string
	Field  string
	Msg    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("target %q: %s: %s", e.Target, e.Field, e.Msg)
}

// Check verifies the invariants of every target and joins all violations.
func (r *Root) Check() error {
	var errs []error
	for _, b := range r.SortedTargets() {
		errs = append(errs, b.Check())
	}
	return errors.Join(errs...)
}

// Check verifies the invariants of a single bundle. The built-in bundles
// always pass; loaded files may not.
func (b *Bundle) Check() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Target: b.Name, Field: field, Msg: fmt.Sprintf(format, args...)})
	}

	if len(b.Entry) == 0 {
		fail("entry", "at least one entry is required")
	}
	for name, path := range b.Entry {
		if strings.TrimSpace(name) == "" {
			fail("entry", "entry name must not be empty")
		}
		if path == "" {
			fail("entry", "entry %q has no path", name)
		}
	}

	if !strings.Contains(b.Output.Filename, "[name]") && len(b.Entry) > 1 {
		fail("output.filename", "pattern %q needs a [name] token for multiple entries", b.Output.Filename)
	}
	if b.Output.Path == "" {
		fail("output.path", "output directory is required")
	}

	for i, rule := range b.Rules {
		if _, err := regexp.Compile(rule.Test); err != nil {
			fail(fmt.Sprintf("rules[%d].test", i), "%v", err)
		}
		if !KnownLoader(rule.Loader) {
			fail(fmt.Sprintf("rules[%d].loader", i), "unknown loader %q", rule.Loader)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(b.Resolve.Alias)) {
		if name == "" || b.Resolve.Alias[name] == "" {
			fail("resolve.alias", "alias %q must map a name to a path", name)
		}
	}

	seen := make(map[string]struct{}, len(b.Resolve.Extensions))
	for _, ext := range b.Resolve.Extensions {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			fail("resolve.extensions", "extension %q must start with a dot", ext)
		}
		if _, dup := seen[ext]; dup {
			fail("resolve.extensions", "duplicate extension %q", ext)
		}
		seen[ext] = struct{}{}
	}

	if b.Watch != nil {
		for _, pattern := range slices.Concat(b.Watch.Include, b.Watch.Exclude) {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				fail("watch", "invalid pattern %q: %v", pattern, err)
			}
		}
	}

	return errors.Join(errs...)
}
