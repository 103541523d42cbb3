// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

var (
	hasChecksumsRE       = regexp.MustCompile(`(?m)^(md5|sha1|sha224|sha256|sha384|sha512|b2)sums=`)
	weakChecksumsRE      = regexp.MustCompile(`(?m)^(md5|sha1)sums=`)
	strongChecksumsRE    = regexp.MustCompile(`(?m)^(sha(256|384|512)|b2)sums=`)
	checksumEntryArrayRE = regexp.MustCompile(`(?m)^(md5|sha1|sha224|sha256|sha384|sha512|b2)sums(_[a-z0-9_]+)?\s*=\s*\(([^)]*)\)`)
	sourceArrayRE        = regexp.MustCompile(`(?m)^source(_[a-z0-9_]+)?\s*=\s*\(([^)]*)\)`)
)

// Checksum flags a recipe with no checksum array at all, one whose
// checksums are entirely SKIP, one relying only on a weak algorithm, and
// one whose checksum count doesn't match its source count. VCS-suffixed
// packages (-git, -svn, -hg, -bzr) are exempt from the "missing" checks:
// their sources are live checkouts with no fixed tarball to hash.
type Checksum struct{}

func (Checksum) Name() string { return "checksum_analysis" }

func (Checksum) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !ctx.HasPkgbuild {
		return nil
	}
	content := ctx.PkgbuildContent
	isVCS := aurctx.HasVCSSuffix(ctx.Name)

	var signals []scoring.Signal

	hasChecksums := hasChecksumsRE.MatchString(content)
	if !hasChecksums && !isVCS {
		signals = append(signals, scoring.Signal{
			ID: "P-NO-CHECKSUMS", Category: scoring.CategoryPkgbuild, Points: 30,
			Description: "No checksum array is present",
		})
		return signals
	}
	if !hasChecksums {
		return nil
	}

	if !isVCS && hasOnlySkipChecksums(content) {
		signals = append(signals, scoring.Signal{
			ID: "P-SKIP-ALL", Category: scoring.CategoryPkgbuild, Points: 25,
			Description: "Every checksum entry is SKIP",
		})
	}

	if weakChecksumsRE.MatchString(content) && !strongChecksumsRE.MatchString(content) {
		signals = append(signals, scoring.Signal{
			ID: "P-WEAK-CHECKSUMS", Category: scoring.CategoryPkgbuild, Points: 10,
			Description: "Only a weak checksum algorithm is present",
		})
	}

	if s, ok := checksumCountMismatch(content); ok {
		signals = append(signals, s)
	}

	return signals
}

// checksumCountMismatch compares each checksum array's entry count against
// the source array of the *same* suffix (empty, "_x86_64", etc.), not a
// single global source count: a suffixed recipe legitimately carries
// several independent source/checksum pairs, one per suffix.
func checksumCountMismatch(content string) (scoring.Signal, bool) {
	sourceCounts := make(map[string]int)
	for _, m := range sourceArrayRE.FindAllStringSubmatch(content, -1) {
		sourceCounts[m[1]] = len(strings.Fields(m[2]))
	}
	if len(sourceCounts) == 0 {
		return scoring.Signal{}, false
	}

	for _, m := range checksumEntryArrayRE.FindAllStringSubmatch(content, -1) {
		suffix := m[2]
		count := len(strings.Fields(m[3]))
		if count == 0 {
			continue
		}
		sourceCount, ok := sourceCounts[suffix]
		if !ok || count == sourceCount {
			continue
		}
		algo := m[1] + "sums" + suffix
		return scoring.Signal{
			ID: "P-CHECKSUM-MISMATCH", Category: scoring.CategoryPkgbuild, Points: 25,
			Description: "Source count (" + strconv.Itoa(sourceCount) + ") != " + algo + " count (" + strconv.Itoa(count) + ")",
		}, true
	}
	return scoring.Signal{}, false
}
