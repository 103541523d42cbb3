// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"math"
	"regexp"
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

// pkgbuildStandardVars are the names makepkg itself assigns; excluded from
// variable-resolution since they're never attacker-controlled concatenation
// targets.
var pkgbuildStandardVars = map[string]struct{}{
	"pkgname": {}, "pkgbase": {}, "pkgver": {}, "pkgrel": {}, "epoch": {},
	"pkgdesc": {}, "arch": {}, "url": {}, "license": {}, "groups": {},
	"depends": {}, "makedepends": {}, "checkdepends": {}, "optdepends": {},
	"provides": {}, "conflicts": {}, "replaces": {}, "backup": {}, "options": {},
	"install": {}, "changelog": {}, "source": {}, "noextract": {},
	"md5sums": {}, "sha1sums": {}, "sha256sums": {}, "sha512sums": {},
	"srcdir": {}, "pkgdir": {}, "startdir": {},
}

var dangerousCommands = []string{
	"curl", "wget", "nc", "ncat", "bash", "sh", "python", "python3", "python2",
	"perl", "ruby", "php", "lua", "socat", "telnet",
}

type dangerousPipe struct{ downloader, executor string }

var dangerousPipes = []dangerousPipe{
	{"curl", "bash"}, {"curl", "sh"}, {"curl", "python"}, {"curl", "python3"},
	{"wget", "bash"}, {"wget", "sh"}, {"wget", "python"}, {"wget", "python3"},
}

var buildCommands = []string{
	"make", "cmake", "cargo", "gcc", "g++", "go build", "go install", "rustc",
	"javac", "mvn", "gradle", "meson", "ninja", "configure", "python setup.py",
	"pip install", "npm run build", "yarn build", "qmake", "scons", "waf",
}

var (
	shellAssignRE            = regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)
	shellVarRefRE            = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)
	shellPrintfSubshellRE    = regexp.MustCompile(`\$\(\s*printf\s+['"]?\\x[0-9a-fA-F]{2}`)
	shellEchoSubshellRE      = regexp.MustCompile(`\$\(\s*echo\s+(-e\s+)?['"]?\\x[0-9a-fA-F]{2}`)
	shellLongHexRE           = regexp.MustCompile(`[0-9a-fA-F]{129,}`)
	shellChecksumLineRE      = regexp.MustCompile(`(?m)^(md5|sha1|sha224|sha256|sha384|sha512|b2)sums(_[a-z0-9_]+)?\s*=`)
	shellChecksumArrayOpenRE = regexp.MustCompile(`(?m)^(md5|sha1|sha224|sha256|sha384|sha512|b2)sums(_[a-z0-9_]+)?\s*=\s*\(`)
	shellLongBase64RE        = regexp.MustCompile(`[A-Za-z0-9+/]{100,}={0,3}`)
	shellHeredocStartRE      = regexp.MustCompile(`<<-?\s*['"]?(\w+)['"]?`)
	shellCurlOutputFlagRE    = regexp.MustCompile(`curl[^\n|;&]*(-o\b|-O\b|--output\b)`)
	shellWgetOutputFlagRE    = regexp.MustCompile(`wget[^\n|;&]*-O\b`)
	shellCurlRedirectRE      = regexp.MustCompile(`curl[^\n|;&]*>\s*\S+`)
	shellChmodExecRE         = regexp.MustCompile(`chmod\s+(\+x|[0-7]*[1357](\s|$))`)
	shellIndirectExecSepRE   = regexp.MustCompile(`[|;&]\s*\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)
	shellIndirectExecStartRE = regexp.MustCompile(`(?m)^\s*\$\{?([A-Za-z_][A-Za-z0-9_]*)\}?`)
)

// Shell runs six sub-analyses — variable-resolution, indirect execution,
// character-by-character construction, embedded data blobs, high-entropy
// heredocs, and no-build-step binary downloads — against both the recipe and the
// install script. Signals from the install script carry an "IS-" ID
// prefix and an "(in install script)" description suffix, matching the
// install script's own, separately scoped threat surface.
type Shell struct{}

func (Shell) Name() string { return "shell_analysis" }

func (Shell) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	var signals []scoring.Signal
	if ctx.HasPkgbuild {
		signals = append(signals, analyzeShellContent(ctx.PkgbuildContent, "", "")...)
	}
	if ctx.HasInstallScript {
		signals = append(signals, analyzeShellContent(ctx.InstallScriptContent, "IS-", " (in install script)")...)
	}
	return signals
}

func analyzeShellContent(content, idPrefix, descSuffix string) []scoring.Signal {
	var signals []scoring.Signal
	signals = append(signals, analyzeVariableResolution(content, idPrefix, descSuffix)...)
	signals = append(signals, analyzeIndirectExecution(content, idPrefix, descSuffix)...)
	signals = append(signals, analyzeCharByCharConstruction(content, idPrefix, descSuffix)...)
	signals = append(signals, analyzeDataBlobs(content, idPrefix, descSuffix)...)
	signals = append(signals, analyzeHeredocEntropy(content, idPrefix, descSuffix)...)
	signals = append(signals, analyzeBinaryDownload(content, idPrefix, descSuffix)...)
	return signals
}

// buildAssignmentEnv maps every non-standard assigned variable to its
// (unresolved) right-hand side, for a single pass of literal substitution.
func buildAssignmentEnv(content string) map[string]string {
	env := make(map[string]string)
	for _, m := range shellAssignRE.FindAllStringSubmatch(content, -1) {
		name, value := m[1], m[2]
		if _, ok := pkgbuildStandardVars[name]; ok {
			continue
		}
		env[name] = strings.Trim(strings.TrimSpace(value), `'"`)
	}
	return env
}

// pipePresent reports whether content contains p.downloader piped (|)
// directly into p.executor on the same line.
func pipePresent(content string, p dangerousPipe) bool {
	for _, line := range strings.Split(content, "\n") {
		dIdx := strings.Index(line, p.downloader)
		if dIdx == -1 {
			continue
		}
		pipeIdx := strings.IndexByte(line[dIdx:], '|')
		if pipeIdx == -1 {
			continue
		}
		if strings.Contains(line[dIdx+pipeIdx:], p.executor) {
			return true
		}
	}
	return false
}

func resolveVars(s string, env map[string]string) string {
	return shellVarRefRE.ReplaceAllStringFunc(s, func(ref string) string {
		name := strings.Trim(ref, "${}")
		if v, ok := env[name]; ok {
			return v
		}
		return ref
	})
}

// analyzeVariableResolution resolves one pass of variable substitution on
// each non-assignment line and re-checks it for a hidden
// download-and-execute pipe or a hidden dangerous command, comparing
// against that same line before substitution. The two outcomes are
// mutually exclusive per line: a hidden pipe always wins, and only the
// first satisfying line of each kind is reported.
func analyzeVariableResolution(content, idPrefix, descSuffix string) []scoring.Signal {
	env := buildAssignmentEnv(content)
	if len(env) == 0 {
		return nil
	}

	var cmdLine string
	for _, line := range strings.Split(content, "\n") {
		if shellAssignRE.MatchString(line) {
			continue
		}
		resolvedLine := resolveVars(line, env)

		for _, p := range dangerousPipes {
			if pipePresent(resolvedLine, p) && !pipePresent(line, p) {
				return []scoring.Signal{{
					ID: idPrefix + "SA-VAR-CONCAT-EXEC", Category: scoring.CategoryPkgbuild, Points: 85,
					Description:    "Variable concatenation hides a download-and-execute pipe" + descSuffix,
					IsOverrideGate: true,
					MatchedLine:    strings.TrimSpace(line),
				}}
			}
		}

		if cmdLine == "" {
			for _, cmd := range dangerousCommands {
				if strings.Contains(resolvedLine, cmd) && !strings.Contains(line, cmd) {
					cmdLine = line
					break
				}
			}
		}
	}

	if cmdLine != "" {
		return []scoring.Signal{{
			ID: idPrefix + "SA-VAR-CONCAT-CMD", Category: scoring.CategoryPkgbuild, Points: 55,
			Description: "Variable concatenation hides a dangerous command" + descSuffix,
			MatchedLine: strings.TrimSpace(cmdLine),
		}}
	}
	return nil
}

// analyzeIndirectExecution finds a variable whose value is exactly a
// dangerous command and that is then invoked in execution position:
// line-start, or right after a pipe, semicolon, or boolean operator.
func analyzeIndirectExecution(content, idPrefix, descSuffix string) []scoring.Signal {
	env := buildAssignmentEnv(content)
	if len(env) == 0 {
		return nil
	}

	isDangerous := func(name string) bool {
		value, ok := env[name]
		if !ok {
			return false
		}
		for _, cmd := range dangerousCommands {
			if value == cmd {
				return true
			}
		}
		return false
	}

	for _, m := range shellIndirectExecStartRE.FindAllStringSubmatch(content, -1) {
		if isDangerous(m[1]) {
			return []scoring.Signal{{
				ID: idPrefix + "SA-INDIRECT-EXEC", Category: scoring.CategoryPkgbuild, Points: 70,
				Description: "A dangerous command is invoked indirectly through a variable" + descSuffix,
			}}
		}
	}
	for _, m := range shellIndirectExecSepRE.FindAllStringSubmatch(content, -1) {
		if isDangerous(m[1]) {
			return []scoring.Signal{{
				ID: idPrefix + "SA-INDIRECT-EXEC", Category: scoring.CategoryPkgbuild, Points: 70,
				Description: "A dangerous command is invoked indirectly through a variable" + descSuffix,
			}}
		}
	}
	return nil
}

// analyzeCharByCharConstruction flags a line assembling a string from
// three or more printf/echo hex-escape subshells, a common obfuscation
// for building a command byte by byte.
func analyzeCharByCharConstruction(content, idPrefix, descSuffix string) []scoring.Signal {
	for _, line := range strings.Split(content, "\n") {
		count := len(shellPrintfSubshellRE.FindAllString(line, -1)) + len(shellEchoSubshellRE.FindAllString(line, -1))
		if count >= 3 {
			return []scoring.Signal{{
				ID: idPrefix + "SA-CHARBYCHAR-CONSTRUCT", Category: scoring.CategoryPkgbuild, Points: 75,
				Description: "A command is constructed character by character" + descSuffix,
				MatchedLine: strings.TrimSpace(line),
			}}
		}
	}
	return nil
}

// analyzeDataBlobs looks for a long hex blob outside any checksum array
// and a long base64 blob on any line. Hex is checked first; a line already
// flagged as hex is excluded from the base64 pass, which does not skip
// checksum arrays. Each fires at most once.
func analyzeDataBlobs(content, idPrefix, descSuffix string) []scoring.Signal {
	lines := strings.Split(content, "\n")
	inChecksumArray := false
	hexMatched := make(map[int]bool)
	var signals []scoring.Signal
	hexFired := false

	for i, line := range lines {
		if shellChecksumArrayOpenRE.MatchString(line) {
			inChecksumArray = !strings.Contains(line, ")")
			continue
		}
		if inChecksumArray {
			if strings.Contains(line, ")") {
				inChecksumArray = false
			}
			continue
		}
		if shellChecksumLineRE.MatchString(line) {
			continue
		}
		if shellLongHexRE.MatchString(line) {
			hexMatched[i] = true
			if !hexFired {
				hexFired = true
				signals = append(signals, scoring.Signal{
					ID: idPrefix + "SA-DATA-BLOB-HEX", Category: scoring.CategoryPkgbuild, Points: 50,
					Description: "A long hex-encoded data blob is embedded outside any checksum array" + descSuffix,
					MatchedLine: strings.TrimSpace(line),
				})
			}
		}
	}

	for i, line := range lines {
		if hexMatched[i] {
			continue
		}
		if shellLongBase64RE.MatchString(line) {
			signals = append(signals, scoring.Signal{
				ID: idPrefix + "SA-DATA-BLOB-BASE64", Category: scoring.CategoryPkgbuild, Points: 50,
				Description: "A long base64-encoded data blob is embedded in the recipe" + descSuffix,
				MatchedLine: strings.TrimSpace(line),
			})
			break
		}
	}

	return signals
}

// analyzeHeredocEntropy flags a heredoc body over 200 bytes whose Shannon
// entropy exceeds 5.0 bits/byte, consistent with an encoded payload rather
// than human-authored shell.
func analyzeHeredocEntropy(content, idPrefix, descSuffix string) []scoring.Signal {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		m := shellHeredocStartRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		marker := m[1]
		var body strings.Builder
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == marker {
				break
			}
			body.WriteString(lines[j])
			body.WriteByte('\n')
		}
		bodyStr := body.String()
		if len(bodyStr) <= 200 {
			continue
		}
		if shannonEntropy(bodyStr) > 5.0 {
			return []scoring.Signal{{
				ID: idPrefix + "SA-HIGH-ENTROPY-HEREDOC", Category: scoring.CategoryPkgbuild, Points: 55,
				Description: "A heredoc body has entropy consistent with an encoded payload" + descSuffix,
			}}
		}
	}
	return nil
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	total := float64(len(s))
	var entropy float64
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// analyzeBinaryDownload flags a download-to-file followed by chmod +x
// with no recognized build command anywhere in the content: a prebuilt
// binary run without ever being compiled.
func analyzeBinaryDownload(content, idPrefix, descSuffix string) []scoring.Signal {
	downloadsToFile := shellCurlOutputFlagRE.MatchString(content) ||
		shellWgetOutputFlagRE.MatchString(content) ||
		shellCurlRedirectRE.MatchString(content)
	if !downloadsToFile {
		return nil
	}
	if !shellChmodExecRE.MatchString(content) {
		return nil
	}
	for _, cmd := range buildCommands {
		if strings.Contains(content, cmd) {
			return nil
		}
	}
	return []scoring.Signal{{
		ID: idPrefix + "SA-BINARY-DOWNLOAD-NOCOMPILE", Category: scoring.CategoryPkgbuild, Points: 60,
		Description: "A binary is downloaded and made executable with no build step" + descSuffix,
	}}
}
