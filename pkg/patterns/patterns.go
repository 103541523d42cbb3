// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package patterns compiles the regex rule sets the four pattern-driven
// analyzers share: pkgbuild_analysis, install_script_analysis,
// source_url_analysis, and gtfobins_analysis. Rules are authored once in
// rules.yaml, embedded into the binary, and compiled lazily, once per
// section per process.
package patterns

import (
	"embed"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/kraklabs/traur/pkg/scoring"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesFile embed.FS

const (
	SectionPkgbuild      = "pkgbuild_analysis"
	SectionInstallScript = "install_script_analysis"
	SectionSourceURL     = "source_url_analysis"
	SectionGtfobins      = "gtfobins_analysis"
)

var allSections = []string{SectionPkgbuild, SectionInstallScript, SectionSourceURL, SectionGtfobins}

// Rule is one regex-backed signal definition as authored in rules.yaml.
type Rule struct {
	ID           string `yaml:"id"`
	Pattern      string `yaml:"pattern"`
	Points       int    `yaml:"points"`
	Description  string `yaml:"description"`
	OverrideGate bool   `yaml:"override_gate"`
}

type ruleDocument struct {
	PkgbuildAnalysis      []Rule `yaml:"pkgbuild_analysis"`
	InstallScriptAnalysis []Rule `yaml:"install_script_analysis"`
	SourceUrlAnalysis     []Rule `yaml:"source_url_analysis"`
	GtfobinsAnalysis      []Rule `yaml:"gtfobins_analysis"`
}

// CompiledRule pairs a Rule with its compiled regex.
type CompiledRule struct {
	Rule
	Regex *regexp.Regexp
}

// Database is the compiled pattern rule set. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Database struct {
	logger *slog.Logger

	loadOnce sync.Once
	doc      ruleDocument
	loadErr  error

	mu          sync.Mutex
	compileOnce map[string]*sync.Once
	compiled    map[string][]CompiledRule
}

// New returns a Database backed by the embedded rule document. logger may
// be nil, in which case slog.Default() is used.
func New(logger *slog.Logger) *Database {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Database{
		logger:      logger,
		compileOnce: make(map[string]*sync.Once, len(allSections)),
		compiled:    make(map[string][]CompiledRule, len(allSections)),
	}
	for _, s := range allSections {
		d.compileOnce[s] = &sync.Once{}
	}
	return d
}

func (d *Database) load() {
	d.loadOnce.Do(func() {
		raw, err := rulesFile.ReadFile("rules.yaml")
		if err != nil {
			d.loadErr = err
			d.logger.Error("patterns.load.error", "err", err)
			return
		}
		if err := yaml.Unmarshal(raw, &d.doc); err != nil {
			d.loadErr = err
			d.logger.Error("patterns.parse.error", "err", err)
		}
	})
}

func (d *Database) rulesFor(section string) []Rule {
	d.load()
	switch section {
	case SectionPkgbuild:
		return d.doc.PkgbuildAnalysis
	case SectionInstallScript:
		return d.doc.InstallScriptAnalysis
	case SectionSourceURL:
		return d.doc.SourceUrlAnalysis
	case SectionGtfobins:
		return d.doc.GtfobinsAnalysis
	default:
		return nil
	}
}

// Compiled returns the compiled rule set for section, compiling it on first
// use and caching the result for the life of the process. A rule whose
// pattern fails to compile is dropped and logged rather than failing the
// whole section.
func (d *Database) Compiled(section string) []CompiledRule {
	once, ok := d.compileOnce[section]
	if !ok {
		return nil
	}
	once.Do(func() {
		rules := d.rulesFor(section)
		compiled := make([]CompiledRule, 0, len(rules))
		for _, r := range rules {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				d.logger.Warn("patterns.rule.malformed", "section", section, "id", r.ID, "err", err)
				continue
			}
			compiled = append(compiled, CompiledRule{Rule: r, Regex: re})
		}
		d.mu.Lock()
		d.compiled[section] = compiled
		d.mu.Unlock()
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compiled[section]
}

// Match runs every compiled rule in section against content and returns one
// Signal per match, in declaration order. Every pattern-driven signal is
// categorized Pkgbuild regardless of which section produced it, matching
// the four analyzers' shared categorization.
func (d *Database) Match(section, content string) []scoring.Signal {
	compiled := d.Compiled(section)
	if len(compiled) == 0 {
		return nil
	}
	signals := make([]scoring.Signal, 0, len(compiled))
	for _, cr := range compiled {
		if !cr.Regex.MatchString(content) {
			continue
		}
		signals = append(signals, scoring.Signal{
			ID:             cr.ID,
			Category:       scoring.CategoryPkgbuild,
			Points:         cr.Points,
			Description:    cr.Description,
			IsOverrideGate: cr.OverrideGate,
			MatchedLine:    matchedLine(cr.Regex, content),
		})
	}
	return signals
}

// Definitions satisfies scoring.PatternProvider: every rule across every
// section, without requiring the caller to compile anything.
func (d *Database) Definitions() []scoring.Definition {
	d.load()
	var defs []scoring.Definition
	for _, section := range allSections {
		for _, r := range d.rulesFor(section) {
			defs = append(defs, scoring.Definition{
				ID:             r.ID,
				Category:       scoring.CategoryPkgbuild,
				Points:         r.Points,
				Description:    r.Description,
				IsOverrideGate: r.OverrideGate,
			})
		}
	}
	return defs
}

// matchedLine returns the source line containing re's first match in
// content, trimmed of surrounding whitespace, for inclusion in a Signal's
// MatchedLine field. Returns "" if re does not match.
func matchedLine(re *regexp.Regexp, content string) string {
	loc := re.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	start := strings.LastIndexByte(content[:loc[0]], '\n') + 1
	rest := content[loc[1]:]
	end := strings.IndexByte(rest, '\n')
	if end == -1 {
		return strings.TrimSpace(content[start:])
	}
	return strings.TrimSpace(content[start : loc[1]+end])
}
