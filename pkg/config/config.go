// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the list of archives served by zipview.
//
// The primary format is TOML. YAML documents and the legacy ZipViewList XML
// document are accepted as well; the format is picked from the file
// extension, or from the content when the extension does not tell.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/yeetrun/zipview/pkg/ftdetect"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPoolSize is the number of handles kept per archive.
	DefaultPoolSize = 10
	// DefaultFlushInterval is how often idle handles are closed.
	DefaultFlushInterval = 15 * time.Minute
	// DefaultListen is the address the server listens on.
	DefaultListen = ":8080"

	// ResourceVDir is the reserved virtual directory of the resource zip.
	ResourceVDir = ".resource"

	defaultConfigName = ".zipview.toml"
	legacyConfigName  = ".zipviewservlet.conf"
)

// Config is a loaded configuration.
type Config struct {
	// ResourceZip holds the style sheets and images used by generated pages.
	ResourceZip   string        `toml:"resource_zip,omitempty" yaml:"resource_zip,omitempty"`
	PoolSize      int           `toml:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	FlushInterval time.Duration `toml:"flush_interval,omitempty" yaml:"flush_interval,omitempty"`
	Listen        string        `toml:"listen,omitempty" yaml:"listen,omitempty"`
	Archives      []Archive     `toml:"archive" yaml:"archive"`

	// Path is the file the configuration was read from.
	Path string `toml:"-" yaml:"-"`
}

// Archive describes one served zip file.
type Archive struct {
	VDir         string       `toml:"vdir" yaml:"vdir"`
	File         string       `toml:"file" yaml:"file"`
	Description  string       `toml:"description,omitempty" yaml:"description,omitempty"`
	DefaultEntry string       `toml:"default_entry,omitempty" yaml:"default_entry,omitempty"`
	PoolSize     int          `toml:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	EntryPoints  []EntryPoint `toml:"entry_point,omitempty" yaml:"entry_point,omitempty"`
}

// EntryPoint is a document inside an archive worth linking to.
type EntryPoint struct {
	URL         string `toml:"url" yaml:"url"`
	Description string `toml:"description,omitempty" yaml:"description,omitempty"`
}

// ErrInvalid is wrapped by every validation error returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// DefaultPath returns the configuration file used when none is given. It is
// ~/.zipview.toml, unless only the legacy ~/.zipviewservlet.conf exists.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	path := filepath.Join(home, defaultConfigName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	legacy := filepath.Join(home, legacyConfigName)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}
	return path, nil
}

// Load reads, normalizes and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(formatOf(path, raw), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	cfg.resolve(filepath.Dir(abs))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatXML  Format = "xml"
)

// formatOf picks the syntax of a configuration file from its name, falling
// back to its content for names such as the legacy .conf file.
func formatOf(path string, raw []byte) Format {
	switch ftdetect.Detect(path, raw) {
	case ftdetect.YAML:
		return FormatYAML
	case ftdetect.XML:
		return FormatXML
	default:
		return FormatTOML
	}
}

// Parse decodes raw in the given format and applies defaults. It does not
// resolve relative paths or validate the result.
func Parse(format Format, raw []byte) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(raw), &cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case FormatXML:
		c, err := parseLegacy(raw)
		if err != nil {
			return nil, err
		}
		cfg = *c
	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	for i := range c.Archives {
		if c.Archives[i].PoolSize == 0 {
			c.Archives[i].PoolSize = c.PoolSize
		}
	}
}

func (c *Config) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.ResourceZip = abs(c.ResourceZip)
	for i := range c.Archives {
		c.Archives[i].File = abs(c.Archives[i].File)
	}
}

// Validate reports every problem found in c. The returned error wraps
// ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}
	if c.PoolSize <= 0 {
		bad("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.FlushInterval <= 0 {
		bad("flush_interval must be positive, got %v", c.FlushInterval)
	}
	seen := make(map[string]bool, len(c.Archives))
	for i, a := range c.Archives {
		switch {
		case a.VDir == "":
			bad("archive %d: vdir is required", i)
		case strings.Contains(a.VDir, "/"):
			bad("archive %q: vdir must not contain '/'", a.VDir)
		case a.VDir == ResourceVDir || a.VDir == "." || a.VDir == "..":
			bad("archive %q: vdir is reserved", a.VDir)
		case seen[a.VDir]:
			bad("archive %q: duplicate vdir", a.VDir)
		}
		seen[a.VDir] = true
		if a.File == "" {
			bad("archive %d: file is required", i)
		}
		if a.PoolSize < 0 {
			bad("archive %q: pool_size must be positive, got %d", a.VDir, a.PoolSize)
		}
		for j, ep := range a.EntryPoints {
			if ep.URL == "" {
				bad("archive %q: entry point %d: url is required", a.VDir, j)
			}
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the configured archive with the given vdir.
func (c *Config) Lookup(vdir string) (Archive, bool) {
	for _, a := range c.Archives {
		if a.VDir == vdir {
			return a, true
		}
	}
	return Archive{}, false
}
