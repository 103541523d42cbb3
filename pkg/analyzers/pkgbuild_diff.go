// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"regexp"
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/patterns"
	"github.com/kraklabs/traur/pkg/scoring"
)

var (
	diffChecksumRE = regexp.MustCompile(`(?m)^(md5|sha1|sha224|sha256|sha384|sha512|b2)sums(_[a-z0-9_]+)?=`)
	diffSourceRE   = regexp.MustCompile(`(?m)^source(_[a-z0-9_]+)?\s*=\s*\(([^)]*)\)`)
	diffURLHostRE  = regexp.MustCompile(`https?://([^/\s'"]+)`)
)

// PkgbuildDiff compares the latest committed PKGBUILD against its
// immediate predecessor, looking for the signature edits of a supply-chain
// takeover: a newly introduced high-severity pattern, checksum
// verification removed or weakened to SKIP, a new source domain, or a
// rewrite touching most of the file.
type PkgbuildDiff struct{ DB *patterns.Database }

func (PkgbuildDiff) Name() string { return "pkgbuild_diff_analysis" }

func (a PkgbuildDiff) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !ctx.HasPriorPkgbuild || !ctx.HasPkgbuild {
		return nil
	}
	oldContent, newContent := ctx.PriorPkgbuildContent, ctx.PkgbuildContent
	if oldContent == newContent {
		return nil
	}

	var signals []scoring.Signal

	if s, ok := a.newSuspiciousPattern(oldContent, newContent); ok {
		signals = append(signals, s)
	}
	if s, ok := checksumRemoved(oldContent, newContent); ok {
		signals = append(signals, s)
	}
	if s, ok := sourceDomainChanged(oldContent, newContent); ok {
		signals = append(signals, s)
	}
	if s, ok := majorRewrite(oldContent, newContent); ok {
		signals = append(signals, s)
	}

	return signals
}

// newSuspiciousPattern fires once, on the first high-severity pkgbuild
// pattern (points >= 60) that matches the new content but not the old.
func (a PkgbuildDiff) newSuspiciousPattern(oldContent, newContent string) (scoring.Signal, bool) {
	db := a.DB
	if db == nil {
		db = patterns.New(nil)
	}
	for _, cr := range db.Compiled(patterns.SectionPkgbuild) {
		if cr.Points < 60 {
			continue
		}
		if cr.Regex.MatchString(newContent) && !cr.Regex.MatchString(oldContent) {
			return scoring.Signal{
				ID: "T-DIFF-NEW-SUSPICIOUS", Category: scoring.CategoryTemporal, Points: 40,
				Description: "Latest commit introduces a new high-severity pattern match",
				MatchedLine: firstMatchedLine(cr.Regex, newContent),
			}, true
		}
	}
	return scoring.Signal{}, false
}

func checksumRemoved(oldContent, newContent string) (scoring.Signal, bool) {
	hadChecksums := diffChecksumRE.MatchString(oldContent)
	hasChecksums := diffChecksumRE.MatchString(newContent)

	if hadChecksums && !hasChecksums {
		return scoring.Signal{
			ID: "T-DIFF-CHECKSUM-REMOVED", Category: scoring.CategoryTemporal, Points: 35,
			Description: "Latest commit removed or weakened checksum verification",
		}, true
	}
	if hadChecksums && hasChecksums && !hasOnlySkipChecksums(oldContent) && hasOnlySkipChecksums(newContent) {
		return scoring.Signal{
			ID: "T-DIFF-CHECKSUM-REMOVED", Category: scoring.CategoryTemporal, Points: 35,
			Description: "Latest commit removed or weakened checksum verification",
		}, true
	}
	return scoring.Signal{}, false
}

var checksumArrayRE = regexp.MustCompile(`(?m)^(md5|sha1|sha224|sha256|sha384|sha512|b2)sums(_[a-z0-9_]+)?\s*=\s*\(([^)]*)\)`)

func hasOnlySkipChecksums(content string) bool {
	matches := checksumArrayRE.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		for _, tok := range strings.Fields(m[3]) {
			tok = strings.Trim(tok, `'"`)
			if tok == "" {
				continue
			}
			if tok != "SKIP" {
				return false
			}
		}
	}
	return true
}

func sourceDomainChanged(oldContent, newContent string) (scoring.Signal, bool) {
	oldDomains := sourceDomains(oldContent)
	newDomains := sourceDomains(newContent)

	for d := range newDomains {
		if _, ok := oldDomains[d]; !ok {
			return scoring.Signal{
				ID: "T-DIFF-SOURCE-DOMAIN-CHANGED", Category: scoring.CategoryTemporal, Points: 30,
				Description: "Latest commit introduces a new source host",
				MatchedLine: d,
			}, true
		}
	}
	return scoring.Signal{}, false
}

func sourceDomains(content string) map[string]struct{} {
	domains := make(map[string]struct{})
	for _, m := range diffSourceRE.FindAllStringSubmatch(content, -1) {
		for _, hm := range diffURLHostRE.FindAllStringSubmatch(m[2], -1) {
			host := strings.ToLower(hm[1])
			if strings.Contains(host, "$") {
				continue
			}
			domains[host] = struct{}{}
		}
	}
	return domains
}

func majorRewrite(oldContent, newContent string) (scoring.Signal, bool) {
	oldLines := nonEmptyLineSet(oldContent)
	newLines := nonEmptyLineSet(newContent)
	maxSide := len(oldLines)
	if len(newLines) > maxSide {
		maxSide = len(newLines)
	}
	if maxSide == 0 {
		return scoring.Signal{}, false
	}

	shared := 0
	for l := range oldLines {
		if _, ok := newLines[l]; ok {
			shared++
		}
	}
	symDiff := len(oldLines) + len(newLines) - 2*shared

	if float64(symDiff)/float64(maxSide) > 0.5 {
		return scoring.Signal{
			ID: "T-DIFF-MAJOR-REWRITE", Category: scoring.CategoryTemporal, Points: 15,
			Description: "Latest commit rewrites most of the recipe",
		}, true
	}
	return scoring.Signal{}, false
}

func nonEmptyLineSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = struct{}{}
		}
	}
	return set
}
