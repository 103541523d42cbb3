// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package analyzers implements the fixed roster of analyzers the scan
// coordinator runs against every package. Each analyzer is total and
// side-effect-free: given a PackageContext it returns the signals it finds,
// or nil, and never errors — missing input (absent metadata, no git log,
// no install script) means "nothing to say", not failure.
package analyzers

import (
	"log/slog"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/patterns"
	"github.com/kraklabs/traur/pkg/scoring"
)

// Analyzer is one independent check run against a PackageContext.
type Analyzer interface {
	Name() string
	Analyze(ctx *aurctx.PackageContext) []scoring.Signal
}

// All returns the fixed analyzer roster in the order the coordinator runs
// them. db is the shared pattern database backing the four pattern-driven
// analyzers; logger may be nil.
func All(db *patterns.Database, logger *slog.Logger) []Analyzer {
	if db == nil {
		db = patterns.New(logger)
	}
	return []Analyzer{
		PkgbuildPatterns{DB: db},
		InstallScriptPatterns{DB: db},
		SourceURLPatterns{DB: db},
		Checksum{},
		Metadata{},
		NameHeuristics{},
		Maintainer{},
		OrphanTakeover{},
		GitHistory{},
		PkgbuildDiff{},
		Shell{},
		GtfobinsPatterns{DB: db},
		BinSourceVerification{},
		GithubStars{},
		AurComments{},
	}
}
