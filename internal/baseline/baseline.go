// Package baseline persists accepted diagnostics so reruns only surface new
// findings. Entries match by (message, identifier, template path) signature;
// the count is informational and only written, never used for matching.
package baseline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"tplcheck/internal/diag"
	"tplcheck/internal/source"
)

// Ext is the required baseline file extension.
const Ext = ".toml"

// Entry is one persisted suppression.
type Entry struct {
	Message    string `toml:"message"`
	Identifier string `toml:"identifier,omitempty"`
	Path       string `toml:"path"`
	Count      int    `toml:"count"`
}

type fileFormat struct {
	Entries []Entry `toml:"entry"`
}

type signature struct {
	message    string
	identifier string
	path       string
}

// Set is the loaded suppression lookup.
type Set struct {
	index map[signature]bool
}

// Len returns the number of distinct signatures.
func (s *Set) Len() int {
	return len(s.index)
}

// Has reports whether the signature is suppressed. path must be the
// template's POSIX-style path relative to the project base.
func (s *Set) Has(message, identifier, path string) bool {
	if s == nil {
		return false
	}
	return s.index[signature{message, identifier, path}]
}

// Load reads a baseline file. A missing file is not an error and yields an
// empty set, so a fresh project needs no setup.
func Load(path string) (*Set, error) {
	set := &Set{index: make(map[signature]bool)}
	var ff fileFormat
	if _, err := toml.DecodeFile(path, &ff); err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("cannot load baseline %s: %w", path, err)
	}
	for _, e := range ff.Entries {
		set.index[signature{e.Message, e.Identifier, e.Path}] = true
	}
	return set, nil
}

// Generate groups the suppressible diagnostics by signature and counts
// occurrences. A suppressible diagnostic without a resolved chain violates a
// pipeline invariant and is fatal.
func Generate(diags []diag.Diagnostic, relPath func(source.FileID) string) ([]Entry, error) {
	counts := make(map[signature]int)
	var order []signature
	for _, d := range diags {
		if !d.Suppressible {
			continue
		}
		final := d.Template()
		if final.IsZero() {
			return nil, fmt.Errorf("%s: diagnostic %q has no source chain and cannot be baselined",
				diag.IntUnmappableEntry.ID(), d.Message)
		}
		sig := signature{d.Message, d.Identifier, relPath(final.File)}
		if _, seen := counts[sig]; !seen {
			order = append(order, sig)
		}
		counts[sig]++
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.path != b.path {
			return a.path < b.path
		}
		if a.identifier != b.identifier {
			return a.identifier < b.identifier
		}
		return a.message < b.message
	})

	entries := make([]Entry, 0, len(order))
	for _, sig := range order {
		entries = append(entries, Entry{
			Message:    sig.message,
			Identifier: sig.identifier,
			Path:       sig.path,
			Count:      counts[sig],
		})
	}
	return entries, nil
}

// Write replaces the baseline file atomically. Generation is not additive:
// the written file holds exactly the given entries.
func Write(path string, entries []Entry) error {
	if filepath.Ext(path) != Ext {
		return fmt.Errorf("baseline path %q must have the %s extension", path, Ext)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-baseline-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := toml.NewEncoder(f)
	if err := enc.Encode(fileFormat{Entries: entries}); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
