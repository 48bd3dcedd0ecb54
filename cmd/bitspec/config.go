package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bitspec/internal/driver"
	"bitspec/internal/layout"
	"bitspec/internal/project"
)

// settings are the manifest values with command-line overrides applied.
type settings struct {
	manifest       project.Manifest
	fromFile       bool
	format         string
	maxDiagnostics int
	jobs           int
	timings        bool
	target         layout.Target
	cache          bool
	cacheDir       string
}

// loadSettings reads --config, or discovers bitspec.toml above input, and
// lets explicitly set flags win.
func loadSettings(cmd *cobra.Command, input string) (settings, error) {
	root := cmd.Root().PersistentFlags()
	configPath, err := root.GetString("config")
	if err != nil {
		return settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var (
		m  project.Manifest
		ok bool
	)
	switch {
	case configPath != "":
		m, err = project.LoadManifest(configPath)
		ok = err == nil
	case input == "-" || input == "":
		m, ok, err = project.Discover(".")
	default:
		m, ok, err = project.Discover(input)
	}
	if err != nil {
		return settings{}, err
	}

	s := settings{
		manifest:       m,
		fromFile:       ok,
		format:         m.Check.Format,
		maxDiagnostics: m.Check.MaxDiagnostics,
		jobs:           m.Check.Jobs,
		cache:          m.Cache.Enabled,
		cacheDir:       m.Cache.Dir,
	}
	endian, _ := layout.ParseEndian(m.Endian)
	s.target = layout.TargetFor(endian)

	if root.Changed("max-diagnostics") {
		if s.maxDiagnostics, err = root.GetInt("max-diagnostics"); err != nil {
			return settings{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	if s.timings, err = root.GetBool("timings"); err != nil {
		return settings{}, fmt.Errorf("failed to get timings flag: %w", err)
	}

	flags := cmd.Flags()
	if f := flags.Lookup("format"); f != nil && f.Changed {
		s.format = f.Value.String()
	}
	if f := flags.Lookup("jobs"); f != nil && f.Changed {
		if s.jobs, err = flags.GetInt("jobs"); err != nil {
			return settings{}, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if f := flags.Lookup("endian"); f != nil && f.Changed {
		e, ok := layout.ParseEndian(f.Value.String())
		if !ok {
			return settings{}, fmt.Errorf("invalid --endian value %q (expected: big|little)", f.Value.String())
		}
		s.target = layout.TargetFor(e)
	}
	if f := flags.Lookup("cache"); f != nil && f.Changed {
		if s.cache, err = flags.GetBool("cache"); err != nil {
			return settings{}, fmt.Errorf("failed to get cache flag: %w", err)
		}
	}
	return s, nil
}

// driverOptions opens the cache when enabled.
func (s settings) driverOptions() (driver.Options, error) {
	opts := driver.Options{Target: s.target, Jobs: s.jobs, Timings: s.timings}
	if !s.cache {
		return opts, nil
	}
	var (
		c   *driver.DiskCache
		err error
	)
	if s.cacheDir != "" {
		c, err = driver.OpenDiskCacheAt(filepath.Clean(s.cacheDir))
	} else {
		c, err = driver.OpenDiskCache("bitspec")
	}
	if err != nil {
		return opts, fmt.Errorf("failed to open cache: %w", err)
	}
	opts.Cache = c
	return opts, nil
}
