// Package preset holds the four named FlagBag presets spec.md §3 defines:
// safe, fast, minimal, conservative.
package preset

import (
	"fmt"
	"sort"

	"github.com/pdbsync/pdbsync/internal/flagbag"
)

// Descriptor is a preset's name plus a short human-readable summary, used
// by the `pdbsync config presets` command.
type Descriptor struct {
	Name    string
	Summary string
}

var registry = map[string]flagbag.Bag{
	"safe": {
		Delete:   flagbag.WithBool(false),
		Compress: flagbag.WithBool(true),
		Checksum: flagbag.WithBool(true),
		Partial:  flagbag.WithBool(true),
		Backup:   flagbag.WithBool(false),
		Verbose:  flagbag.WithBool(true),
		Quiet:    flagbag.WithBool(false),
	},
	"fast": {
		Delete:   flagbag.WithBool(true),
		Compress: flagbag.WithBool(true),
		Checksum: flagbag.WithBool(false),
		Partial:  flagbag.WithBool(true),
		Backup:   flagbag.WithBool(false),
		Verbose:  flagbag.WithBool(false),
		Quiet:    flagbag.WithBool(true),
	},
	"minimal": {
		Delete:   flagbag.WithBool(false),
		Compress: flagbag.WithBool(false),
		Checksum: flagbag.WithBool(false),
		Partial:  flagbag.WithBool(false),
		Backup:   flagbag.WithBool(false),
		Verbose:  flagbag.WithBool(false),
		Quiet:    flagbag.WithBool(false),
	},
	"conservative": {
		Delete:   flagbag.WithBool(false),
		Compress: flagbag.WithBool(true),
		Checksum: flagbag.WithBool(true),
		Partial:  flagbag.WithBool(true),
		Backup:   flagbag.WithBool(true),
		Verbose:  flagbag.WithBool(true),
		Quiet:    flagbag.WithBool(false),
	},
}

var summaries = map[string]string{
	"safe":         "checksum verification, no deletions, partial transfers kept on interrupt",
	"fast":         "minimal verification, deletes extraneous files, quiet output",
	"minimal":      "every optional behavior off; closest to a plain rsync -av",
	"conservative": "safe plus a backup of every file it would otherwise overwrite or delete",
}

// Get returns the named preset's FlagBag. The returned Bag is a copy;
// callers are free to Merge CLI overrides on top of it.
func Get(name string) (flagbag.Bag, bool) {
	b, ok := registry[name]
	return b, ok
}

// List returns every preset's descriptor, sorted by name.
func List() []Descriptor {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, Descriptor{Name: name, Summary: summaries[name]})
	}
	return out
}

// MustGet is a convenience wrapper for callers (config defaults, tests)
// that already know the name is one of the four built-ins.
func MustGet(name string) flagbag.Bag {
	b, ok := Get(name)
	if !ok {
		panic(fmt.Sprintf("preset: unknown built-in preset %q", name))
	}
	return b
}
