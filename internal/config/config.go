// Package config loads the project manifest (tplcheck.toml), discovered by
// walking up from the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the project manifest file name.
const ManifestName = "tplcheck.toml"

// Project configures template discovery.
type Project struct {
	// TemplateRoots are directories searched when resolving references;
	// relative paths are anchored at the manifest directory.
	TemplateRoots []string `toml:"template_roots"`
	// AppPaths are application source trees scanned during the collection
	// pass for render calls and variable types.
	AppPaths []string `toml:"app_paths"`
}

// Checker configures the external checker invocation.
type Checker struct {
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
}

// FilterRules configures the noise filter and message transformer.
type FilterRules struct {
	IgnoreIdentifiers []string    `toml:"ignore_identifiers"`
	IgnoreMessages    []string    `toml:"ignore_messages"`
	Rewrite           [][2]string `toml:"rewrite"`
}

// Baseline configures suppression.
type Baseline struct {
	Path string `toml:"path"`
}

// Config is the full manifest.
type Config struct {
	Project  Project     `toml:"project"`
	Checker  Checker     `toml:"checker"`
	Filter   FilterRules `toml:"filter"`
	Baseline Baseline    `toml:"baseline"`

	// Dir is the manifest's directory, the anchor for relative paths.
	Dir string `toml:"-"`
}

// Default returns the configuration used when no manifest exists.
func Default(dir string) *Config {
	return &Config{
		Checker:  Checker{Binary: "phpstan"},
		Baseline: Baseline{Path: "tplcheck-baseline.toml"},
		Dir:      dir,
	}
}

// FindManifest walks up from startDir to locate tplcheck.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load discovers and parses the manifest. Without one, defaults anchored at
// startDir apply.
func Load(startDir string) (*Config, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		abs, err := filepath.Abs(startDir)
		if err != nil {
			abs = startDir
		}
		return Default(abs), nil
	}

	cfg := Default(filepath.Dir(path))
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// AbsTemplateRoots returns the template roots as absolute paths.
func (c *Config) AbsTemplateRoots() []string {
	return c.absPaths(c.Project.TemplateRoots)
}

// AbsAppPaths returns the application paths as absolute paths.
func (c *Config) AbsAppPaths() []string {
	return c.absPaths(c.Project.AppPaths)
}

// AbsBaselinePath anchors the configured baseline path at the manifest dir.
func (c *Config) AbsBaselinePath() string {
	if filepath.IsAbs(c.Baseline.Path) {
		return c.Baseline.Path
	}
	return filepath.Join(c.Dir, c.Baseline.Path)
}

func (c *Config) absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.Dir, p)
		}
		out = append(out, p)
	}
	return out
}
