// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads and persists the engine's user-facing
// configuration: score thresholds, the package whitelist, and the
// ignore-list that suppresses specific signal IDs or whole categories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/traur/internal/paths"
	"github.com/kraklabs/traur/pkg/scoring"
	"gopkg.in/yaml.v3"
)

// ThresholdConfig names a warn tier and a block tier. They are loaded and
// saved with the rest of the config; no command in this repository reads
// them, and the hook blocks on Malicious and prompts otherwise.
type ThresholdConfig struct {
	BlockAt string `yaml:"block_at"`
	WarnAt  string `yaml:"warn_at"`
}

// WhitelistConfig is the set of packages exempted from scanning.
type WhitelistConfig struct {
	Packages []string `yaml:"packages"`
}

// IgnoredConfig suppresses specific signal IDs or whole categories from
// every scan's result.
type IgnoredConfig struct {
	Signals    []string `yaml:"signals"`
	Categories []string `yaml:"categories"`
}

// Config is the engine's full user-facing configuration document.
type Config struct {
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Whitelist  WhitelistConfig `yaml:"whitelist"`
	Ignored    IgnoredConfig   `yaml:"ignored"`
}

// Default returns the configuration used when no config file is present:
// no whitelist, no ignored signals, warn at Sketchy, block at Suspicious.
func Default() *Config {
	return &Config{
		Thresholds: ThresholdConfig{
			BlockAt: string(scoring.TierSuspicious),
			WarnAt:  string(scoring.TierSketchy),
		},
	}
}

// Load reads the config document from path, or returns Default() when path
// doesn't exist. A malformed document is a Parse error per spec §7: the
// caller decides whether to fall back or abort.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault loads the config from the resolved per-user config file.
func LoadDefault() (*Config, error) {
	return Load(paths.ConfigFile())
}

// Save writes cfg to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := paths.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// SaveDefault writes cfg to the resolved per-user config file.
func SaveDefault(cfg *Config) error {
	return Save(cfg, paths.ConfigFile())
}

// AddToWhitelist adds pkg to cfg's whitelist, keeping it sorted and
// deduplicated. Returns false if pkg was already present.
func (c *Config) AddToWhitelist(pkg string) bool {
	if c.IsWhitelisted(pkg) {
		return false
	}
	c.Whitelist.Packages = append(c.Whitelist.Packages, pkg)
	sort.Strings(c.Whitelist.Packages)
	return true
}

// IsWhitelisted reports whether pkg is exempt from scanning.
func (c *Config) IsWhitelisted(pkg string) bool {
	for _, p := range c.Whitelist.Packages {
		if p == pkg {
			return true
		}
	}
	return false
}

// IsIgnoredSignal reports whether id should be suppressed: directly listed,
// or, for an IS- prefixed id, listed under its bare form. Listing X
// suppresses both X and IS-X; listing IS-X suppresses only IS-X.
func (c *Config) IsIgnoredSignal(id string) bool {
	bare := strings.TrimPrefix(id, "IS-")
	for _, s := range c.Ignored.Signals {
		if s == id || s == bare || "IS-"+s == id {
			return true
		}
	}
	return false
}

// IsIgnoredCategory reports whether every signal in category should be
// suppressed.
func (c *Config) IsIgnoredCategory(category scoring.Category) bool {
	for _, cat := range c.Ignored.Categories {
		if scoring.Category(cat) == category {
			return true
		}
	}
	return false
}

// FilterSignals removes every signal ignored by id or by category,
// preserving the input order.
func (c *Config) FilterSignals(signals []scoring.Signal) []scoring.Signal {
	out := make([]scoring.Signal, 0, len(signals))
	for _, s := range signals {
		if c.IsIgnoredSignal(s.ID) || c.IsIgnoredCategory(s.Category) {
			continue
		}
		out = append(out, s)
	}
	return out
}
