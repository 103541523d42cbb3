// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package scoring

import (
	"sort"
	"strings"
)

// Definition describes one signal ID the system can emit, independent of
// whether it comes from a compiled pattern rule or a hardcoded analyzer.
type Definition struct {
	ID             string
	Category       Category
	Points         int
	Description    string
	IsOverrideGate bool
}

// PatternProvider supplies pattern-derived signal definitions without
// requiring the caller to compile any regex. Satisfied by
// *patterns.Database.
type PatternProvider interface {
	Definitions() []Definition
}

// Registry catalogs every signal ID the engine can emit. Used by the
// ignore-list CLI to validate user input and by the registry introspection
// command.
type Registry struct {
	byID map[string]Definition
	all  []Definition
}

// NewRegistry builds a Registry from the compiled pattern database plus the
// hardcoded table of non-pattern-driven analyzer signals. Pattern and
// hardcoded IDs are assumed disjoint; a collision keeps the pattern
// definition and is not treated as an error, matching the lenient posture
// the rest of this engine takes toward malformed input.
func NewRegistry(patterns PatternProvider) *Registry {
	r := &Registry{byID: make(map[string]Definition)}

	for _, d := range hardcodedSignals {
		r.byID[d.ID] = d
	}
	if patterns != nil {
		for _, d := range patterns.Definitions() {
			r.byID[d.ID] = d
		}
	}

	r.all = make([]Definition, 0, len(r.byID))
	for _, d := range r.byID {
		r.all = append(r.all, d)
	}
	sort.Slice(r.all, func(i, j int) bool { return r.all[i].ID < r.all[j].ID })

	return r
}

// All returns every known signal definition, sorted by ID.
func (r *Registry) All() []Definition {
	return r.all
}

// IsKnown reports whether id names a registered signal. Accepts both "X"
// and "IS-X" when "X" is registered: the IS- prefix is a mechanical rewrite
// for pattern-driven signals that fired against the install script instead
// of the recipe, and the ignore-list treats the two as aliases even though
// the scoring engine itself treats them as independent signals.
func (r *Registry) IsKnown(id string) bool {
	if _, ok := r.byID[id]; ok {
		return true
	}
	if stripped, ok := strings.CutPrefix(id, "IS-"); ok {
		_, ok := r.byID[stripped]
		return ok
	}
	return false
}

// Lookup returns the definition for id, stripping a leading "IS-" if the
// bare ID isn't registered directly.
func (r *Registry) Lookup(id string) (Definition, bool) {
	if d, ok := r.byID[id]; ok {
		return d, true
	}
	if stripped, ok := strings.CutPrefix(id, "IS-"); ok {
		d, ok := r.byID[stripped]
		return d, ok
	}
	return Definition{}, false
}

// hardcodedSignals is the complete table of non-pattern-driven signal
// definitions: every signal an analyzer other than the four pattern-driven
// ones can emit. Grounded on signal_registry.rs's hardcoded_signals().
var hardcodedSignals = []Definition{
	// Metadata Analyzer (4.4.1)
	{"M-VOTES-ZERO", CategoryMetadata, 30, "Package has zero votes", false},
	{"M-VOTES-LOW", CategoryMetadata, 20, "Package has fewer than 5 votes", false},
	{"M-POP-ZERO", CategoryMetadata, 25, "Package has zero popularity", false},
	{"M-NO-MAINTAINER", CategoryMetadata, 20, "Package has no maintainer", false},
	{"M-NO-URL", CategoryMetadata, 15, "Package has no upstream URL", false},
	{"M-NO-LICENSE", CategoryMetadata, 10, "Package has no license", false},
	{"M-OUT-OF-DATE", CategoryMetadata, 5, "Package is flagged out of date", false},

	// Name Analyzer (4.4.2)
	{"B-NAME-IMPERSONATE", CategoryBehavioral, 65, "Package name impersonates a known brand", false},
	{"B-TYPOSQUAT", CategoryBehavioral, 55, "Package name resembles a popular package name", false},

	// Maintainer Analyzer (4.4.3)
	{"B-MAINTAINER-NEW", CategoryBehavioral, 30, "Maintainer's only package, account under 30 days old", false},
	{"B-MAINTAINER-SINGLE", CategoryBehavioral, 15, "Maintainer's only package", false},
	{"B-MAINTAINER-BATCH", CategoryBehavioral, 45, "Maintainer submitted a batch of packages in a short window", false},

	// Orphan-Takeover Analyzer (4.4.4)
	{"B-SUBMITTER-CHANGED", CategoryBehavioral, 15, "Package submitter differs from current maintainer", false},
	{"B-ORPHAN-TAKEOVER", CategoryBehavioral, 50, "Established package taken over by a new, previously absent author", false},

	// Git-History Analyzer (4.4.5)
	{"T-SINGLE-COMMIT", CategoryTemporal, 20, "Recipe repository has only one commit", false},
	{"T-NEW-PACKAGE", CategoryTemporal, 25, "Package was submitted less than 7 days ago", false},
	{"T-MALICIOUS-DIFF", CategoryTemporal, 55, "Latest commit newly introduces a network-execution primitive", false},
	{"T-AUTHOR-CHANGE", CategoryTemporal, 25, "Recipe history has more than one commit author", false},

	// Pkgbuild Diff Analyzer (4.4.6)
	{"T-DIFF-NEW-SUSPICIOUS", CategoryTemporal, 40, "Latest commit introduces a new high-severity pattern match", false},
	{"T-DIFF-CHECKSUM-REMOVED", CategoryTemporal, 35, "Latest commit removed or weakened checksum verification", false},
	{"T-DIFF-SOURCE-DOMAIN-CHANGED", CategoryTemporal, 30, "Latest commit introduces a new source host", false},
	{"T-DIFF-MAJOR-REWRITE", CategoryTemporal, 15, "Latest commit rewrites most of the recipe", false},

	// Shell Analyzer (4.4.8)
	{"SA-VAR-CONCAT-EXEC", CategoryPkgbuild, 85, "Variable concatenation hides a download-and-execute pipe", true},
	{"SA-VAR-CONCAT-CMD", CategoryPkgbuild, 55, "Variable concatenation hides a dangerous command", false},
	{"SA-INDIRECT-EXEC", CategoryPkgbuild, 70, "A dangerous command is invoked indirectly through a variable", false},
	{"SA-CHARBYCHAR-CONSTRUCT", CategoryPkgbuild, 75, "A command is constructed character by character", false},
	{"SA-DATA-BLOB-HEX", CategoryPkgbuild, 50, "A long hex-encoded data blob is embedded outside any checksum array", false},
	{"SA-DATA-BLOB-BASE64", CategoryPkgbuild, 50, "A long base64-encoded data blob is embedded in the recipe", false},
	{"SA-HIGH-ENTROPY-HEREDOC", CategoryPkgbuild, 55, "A heredoc body has entropy consistent with an encoded payload", false},
	{"SA-BINARY-DOWNLOAD-NOCOMPILE", CategoryPkgbuild, 60, "A binary is downloaded and made executable with no build step", false},

	// Checksum Analyzer (4.4.9)
	{"P-NO-CHECKSUMS", CategoryPkgbuild, 30, "No checksum array is present", false},
	{"P-SKIP-ALL", CategoryPkgbuild, 25, "Every checksum entry is SKIP", false},
	{"P-WEAK-CHECKSUMS", CategoryPkgbuild, 10, "Only a weak checksum algorithm is present", false},
	{"P-CHECKSUM-MISMATCH", CategoryPkgbuild, 25, "Checksum array length does not match the source array", false},

	// Bin-Source-Verification Analyzer (4.4.10)
	{"B-BIN-GITHUB-ORG-MISMATCH", CategoryBehavioral, 50, "Binary package source repository org differs from upstream URL org", false},
	{"B-BIN-DOMAIN-MISMATCH", CategoryBehavioral, 30, "Binary package source domain differs from upstream URL domain", false},

	// Upstream-Stars Analyzer (4.4.11)
	{"M-GITHUB-NOT-FOUND", CategoryMetadata, 25, "Upstream code-host repository was not found", false},
	{"M-GITHUB-STARS-ZERO", CategoryMetadata, 20, "Upstream repository has zero stars", false},
	{"M-GITHUB-STARS-LOW", CategoryMetadata, 10, "Upstream repository has fewer than 10 stars", false},

	// Comments Analyzer (4.4.12)
	{"M-COMMENTS-SECURITY", CategoryMetadata, 40, "A recent comment mentions a security concern", false},
}
