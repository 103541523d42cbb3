// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testing supplies shared fixture builders for the analyzer and
// coordinator test suites so individual _test.go files don't each redefine
// a minimal PackageContext by hand.
package testing

import (
	"testing"

	"github.com/kraklabs/traur/pkg/aurctx"
)

// NewContext returns a PackageContext with no metadata and no recipe,
// suitable as a base for tests to layer fields onto with With* helpers.
func NewContext(t *testing.T, name string) *aurctx.PackageContext {
	t.Helper()
	return &aurctx.PackageContext{Name: name}
}

// WithMetadata attaches metadata to ctx and returns it for chaining.
func WithMetadata(ctx *aurctx.PackageContext, votes int, popularity float64, maintainer string) *aurctx.PackageContext {
	ctx.Metadata = &aurctx.Metadata{
		Name:       ctx.Name,
		NumVotes:   votes,
		Popularity: popularity,
		Maintainer: maintainer,
		URL:        "https://example.com/" + ctx.Name,
		License:    []string{"MIT"},
	}
	return ctx
}

// WithPkgbuild sets the current recipe text and returns ctx for chaining.
func WithPkgbuild(ctx *aurctx.PackageContext, content string) *aurctx.PackageContext {
	ctx.PkgbuildContent = content
	ctx.HasPkgbuild = true
	return ctx
}

// WithPriorPkgbuild sets the prior-revision recipe text and returns ctx for
// chaining.
func WithPriorPkgbuild(ctx *aurctx.PackageContext, content string) *aurctx.PackageContext {
	ctx.PriorPkgbuildContent = content
	ctx.HasPriorPkgbuild = true
	return ctx
}

// WithInstallScript sets the side-install script text and returns ctx for
// chaining.
func WithInstallScript(ctx *aurctx.PackageContext, content string) *aurctx.PackageContext {
	ctx.InstallScriptContent = content
	ctx.HasInstallScript = true
	return ctx
}

// WithGitLog sets the commit log (newest first) and returns ctx for
// chaining.
func WithGitLog(ctx *aurctx.PackageContext, commits ...aurctx.Commit) *aurctx.PackageContext {
	ctx.GitLog = commits
	return ctx
}

// BenignPkgbuild returns a minimal, well-formed recipe body used as a
// negative-case fixture across several analyzer test suites: a code-host
// source, a strong checksum, no dangerous shell constructs.
func BenignPkgbuild(pkgname string) string {
	return "" +
		"pkgname=" + pkgname + "\n" +
		"pkgver=1.0.0\n" +
		"pkgrel=1\n" +
		"arch=('x86_64')\n" +
		"url=\"https://github.com/example/" + pkgname + "\"\n" +
		"license=('MIT')\n" +
		"source=(\"$pkgname-$pkgver.tar.gz::https://github.com/example/$pkgname/archive/v$pkgver.tar.gz\")\n" +
		"sha256sums=('" + benignSha256 + "')\n" +
		"\n" +
		"build() {\n" +
		"  cd \"$pkgname-$pkgver\"\n" +
		"  make\n" +
		"}\n" +
		"\n" +
		"package() {\n" +
		"  cd \"$pkgname-$pkgver\"\n" +
		"  make DESTDIR=\"$pkgdir\" install\n" +
		"}\n"
}

const benignSha256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
