// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/patterns"
	"github.com/kraklabs/traur/pkg/scoring"
)

// PkgbuildPatterns runs the shared threat-model pattern set against the
// recipe body: download-and-execute pipes, reverse shells, credential
// theft, persistence, privilege escalation, C2/exfiltration, crypto
// mining, and reconnaissance.
type PkgbuildPatterns struct{ DB *patterns.Database }

func (PkgbuildPatterns) Name() string { return "pkgbuild_analysis" }

func (a PkgbuildPatterns) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !ctx.HasPkgbuild {
		return nil
	}
	return a.DB.Match(patterns.SectionPkgbuild, ctx.PkgbuildContent)
}

// InstallScriptPatterns runs the install-script-scoped rule set (rules
// already IS--prefixed in their own right) against a .install file.
type InstallScriptPatterns struct{ DB *patterns.Database }

func (InstallScriptPatterns) Name() string { return "install_script_analysis" }

func (a InstallScriptPatterns) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !ctx.HasInstallScript {
		return nil
	}
	return a.DB.Match(patterns.SectionInstallScript, ctx.InstallScriptContent)
}

// SourceURLPatterns flags suspicious source hosts: raw IP literals,
// non-HTTPS transport, paste sites, URL shorteners, free hosting,
// dynamic DNS, raw gists, and CDN-hosted payloads. It runs only against
// the contents of source=() arrays, never the full recipe text, so a
// suspicious-looking host mentioned in a comment can never fire a
// signal.
type SourceURLPatterns struct{ DB *patterns.Database }

func (SourceURLPatterns) Name() string { return "source_url_analysis" }

func (a SourceURLPatterns) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !ctx.HasPkgbuild {
		return nil
	}
	body := sourceArrayBodies(ctx.PkgbuildContent)
	if body == "" {
		return nil
	}
	return a.DB.Match(patterns.SectionSourceURL, body)
}

// sourceArrayBodies concatenates the bracketed contents of every
// source=()/source_arch=() array in the recipe, one entry per line, so
// regex rules written for whole-line matching still anchor correctly.
func sourceArrayBodies(content string) string {
	var lines []string
	for _, m := range sourceArrayRE.FindAllStringSubmatch(content, -1) {
		for _, tok := range strings.Fields(m[2]) {
			lines = append(lines, strings.Trim(tok, `'"`))
		}
	}
	return strings.Join(lines, "\n")
}

// GtfobinsPatterns flags use of well-known GTFOBins living-off-the-land
// techniques: reverse/bind shells, pipe-to-interpreter, non-obvious
// command execution, and file operations abused for privilege escalation.
type GtfobinsPatterns struct{ DB *patterns.Database }

func (GtfobinsPatterns) Name() string { return "gtfobins_analysis" }

func (a GtfobinsPatterns) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !ctx.HasPkgbuild {
		return nil
	}
	return a.DB.Match(patterns.SectionGtfobins, ctx.PkgbuildContent)
}
