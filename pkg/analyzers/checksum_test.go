// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	aurhelp "github.com/kraklabs/traur/internal/testing"
)

func TestChecksum_NoChecksumsArray(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"pkgname=foo\npkgver=1.0\npkgrel=1\nsource=(\"foo.tar.gz::https://example.com/foo.tar.gz\")\n")
	assert.Contains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-NO-CHECKSUMS")
}

func TestChecksum_VCSPackageExempt(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo-git"),
		"pkgname=foo-git\npkgver=1.0\npkgrel=1\nsource=(\"foo::git+https://example.com/foo.git\")\n")
	assert.Empty(t, Checksum{}.Analyze(ctx))
}

func TestChecksum_AllSkip(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"pkgname=foo\nsource=(\"foo.tar.gz::https://example.com/foo.tar.gz\")\nsha256sums=('SKIP')\n")
	assert.Contains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-SKIP-ALL")
}

func TestChecksum_WeakOnly(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"pkgname=foo\nsource=(\"foo.tar.gz::https://example.com/foo.tar.gz\")\nmd5sums=('abc123')\n")
	assert.Contains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-WEAK-CHECKSUMS")
}

func TestChecksum_StrongOnlyNoWeakSignal(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), aurhelp.BenignPkgbuild("foo"))
	assert.NotContains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-WEAK-CHECKSUMS")
}

func TestChecksum_CountMismatch(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"pkgname=foo\n"+
			"source=(\"a.tar.gz::https://example.com/a.tar.gz\" \"b.tar.gz::https://example.com/b.tar.gz\")\n"+
			"sha256sums=('abc123')\n")
	assert.Contains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-CHECKSUM-MISMATCH")
}

func TestChecksum_MultiSuffixPairedCorrectlyNoSignal(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"pkgname=foo\n"+
			"source=(\"a.tar.gz::https://example.com/a.tar.gz\" \"b.tar.gz::https://example.com/b.tar.gz\")\n"+
			"source_x86_64=(\"c.tar.gz::https://example.com/c.tar.gz\")\n"+
			"sha256sums=('h1' 'h2')\n"+
			"sha256sums_x86_64=('h1')\n")
	assert.NotContains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-CHECKSUM-MISMATCH")
}

func TestChecksum_MultiSuffixMismatchOnSuffixedArray(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"pkgname=foo\n"+
			"source=(\"a.tar.gz::https://example.com/a.tar.gz\" \"b.tar.gz::https://example.com/b.tar.gz\")\n"+
			"source_x86_64=(\"c.tar.gz::https://example.com/c.tar.gz\")\n"+
			"sha256sums=('h1' 'h2')\n"+
			"sha256sums_x86_64=('h1' 'h2')\n")
	assert.Contains(t, signalIDs(Checksum{}.Analyze(ctx)), "P-CHECKSUM-MISMATCH")
}

func TestChecksum_BenignNoSignals(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), aurhelp.BenignPkgbuild("foo"))
	assert.Empty(t, Checksum{}.Analyze(ctx))
}
