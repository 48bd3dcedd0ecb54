package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the decoded bitspec.toml. Fields missing from the file keep
// their DefaultManifest values.
type Manifest struct {
	// Path of the manifest file, empty for the built-in defaults.
	Path  string
	Check CheckConfig
	// Endian is the target byte order: "little" or "big".
	Endian string
	Cache  CacheConfig
}

// CheckConfig is the [check] section.
type CheckConfig struct {
	MaxDiagnostics int
	// Jobs bounds concurrent file checks; 0 means GOMAXPROCS.
	Jobs   int
	Format string
}

// CacheConfig is the [cache] section.
type CacheConfig struct {
	Enabled bool
	// Dir overrides the cache location; relative paths are taken from the
	// manifest's directory.
	Dir string
}

// Formats accepted by [check].format and `bitspec check --format`.
var Formats = []string{"pretty", "short", "json"}

var (
	// ErrInvalidValue marks a manifest value outside its allowed set.
	ErrInvalidValue = errors.New("invalid value")
	// ErrUnknownKey marks a key the manifest format does not define.
	ErrUnknownKey = errors.New("unknown key")
)

type manifestFile struct {
	Check struct {
		MaxDiagnostics int    `toml:"max_diagnostics"`
		Jobs           int    `toml:"jobs"`
		Format         string `toml:"format"`
	} `toml:"check"`
	Target struct {
		Endian string `toml:"endian"`
	} `toml:"target"`
	Cache struct {
		Enabled bool   `toml:"enabled"`
		Dir     string `toml:"dir"`
	} `toml:"cache"`
}

// DefaultManifest is used when no bitspec.toml is found.
func DefaultManifest() Manifest {
	return Manifest{
		Check: CheckConfig{
			MaxDiagnostics: 100,
			Format:         "pretty",
		},
		Endian: "little",
	}
}

// LoadManifest parses path over DefaultManifest.
func LoadManifest(path string) (Manifest, error) {
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Manifest{}, fmt.Errorf("%s: %w %q", path, ErrUnknownKey, undecoded[0].String())
	}

	m := DefaultManifest()
	m.Path = path
	if meta.IsDefined("check", "max_diagnostics") {
		if cfg.Check.MaxDiagnostics < 0 {
			return Manifest{}, fmt.Errorf("%s: %w for [check].max_diagnostics: %d", path, ErrInvalidValue, cfg.Check.MaxDiagnostics)
		}
		m.Check.MaxDiagnostics = cfg.Check.MaxDiagnostics
	}
	if meta.IsDefined("check", "jobs") {
		if cfg.Check.Jobs < 0 {
			return Manifest{}, fmt.Errorf("%s: %w for [check].jobs: %d", path, ErrInvalidValue, cfg.Check.Jobs)
		}
		m.Check.Jobs = cfg.Check.Jobs
	}
	if meta.IsDefined("check", "format") {
		format := strings.TrimSpace(cfg.Check.Format)
		if !slices.Contains(Formats, format) {
			return Manifest{}, fmt.Errorf("%s: %w for [check].format: %q (expected: %s)", path, ErrInvalidValue, format, strings.Join(Formats, "|"))
		}
		m.Check.Format = format
	}
	if meta.IsDefined("target", "endian") {
		endian := strings.TrimSpace(cfg.Target.Endian)
		if endian != "little" && endian != "big" {
			return Manifest{}, fmt.Errorf("%s: %w for [target].endian: %q (expected: big|little)", path, ErrInvalidValue, endian)
		}
		m.Endian = endian
	}
	if meta.IsDefined("cache") {
		m.Cache.Enabled = cfg.Cache.Enabled
		if dir := strings.TrimSpace(cfg.Cache.Dir); dir != "" {
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(filepath.Dir(path), dir)
			}
			m.Cache.Dir = dir
		}
	}
	return m, nil
}

// Discover finds and loads the manifest governing startDir. Without one it
// returns DefaultManifest and ok=false.
func Discover(startDir string) (m Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return Manifest{}, false, err
	}
	if !ok {
		return DefaultManifest(), false, nil
	}
	m, err = LoadManifest(path)
	if err != nil {
		return Manifest{}, true, err
	}
	return m, true, nil
}
