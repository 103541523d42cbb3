// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"regexp"
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

var (
	binSourceArraysRE  = regexp.MustCompile(`(?m)^source(_[a-z0-9_]+)?\s*=\s*\(([^)]*)\)`)
	binURLVarRE        = regexp.MustCompile(`\$\{?url\}?`)
	binUnresolvedVarRE = regexp.MustCompile(`\$\{?[A-Za-z_][A-Za-z0-9_]*\}?`)
)

// BinSourceVerification only examines -bin packages: it compares every
// resolvable source array entry against the metadata URL, looking for a
// prebuilt binary fetched from a different GitHub org, or a different
// domain entirely, than the project's own upstream.
type BinSourceVerification struct{}

func (BinSourceVerification) Name() string { return "bin_source_verification" }

func (BinSourceVerification) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if !aurctx.IsBinPackage(ctx.Name) || !ctx.HasPkgbuild || ctx.Metadata == nil || ctx.Metadata.URL == "" {
		return nil
	}

	upstreamURL := stripScheme(ctx.Metadata.URL)
	upstreamHost, upstreamPath := splitHostPath(upstreamURL)

	var orgMismatch, domainMismatch *scoring.Signal
	for _, entry := range binSourceEntries(ctx.PkgbuildContent, ctx.Metadata.URL) {
		host, path := splitHostPath(stripSourcePrefixes(entry))
		if host == "" {
			continue
		}
		if strings.EqualFold(host, "github.com") && strings.EqualFold(upstreamHost, "github.com") {
			if !strings.EqualFold(firstPathSegment(path), firstPathSegment(upstreamPath)) && orgMismatch == nil {
				orgMismatch = &scoring.Signal{
					ID: "B-BIN-GITHUB-ORG-MISMATCH", Category: scoring.CategoryBehavioral, Points: 50,
					Description: "Binary package source repository org differs from upstream URL org",
					MatchedLine: entry,
				}
			}
			continue
		}
		if !strings.EqualFold(normalizeHost(host), normalizeHost(upstreamHost)) && domainMismatch == nil {
			domainMismatch = &scoring.Signal{
				ID: "B-BIN-DOMAIN-MISMATCH", Category: scoring.CategoryBehavioral, Points: 30,
				Description: "Binary package source domain differs from upstream URL domain",
				MatchedLine: entry,
			}
		}
	}

	var signals []scoring.Signal
	if orgMismatch != nil {
		signals = append(signals, *orgMismatch)
	}
	if domainMismatch != nil {
		signals = append(signals, *domainMismatch)
	}
	return signals
}

// binSourceEntries returns every non-local source array URL, with
// ${url}/$url tokens resolved to upstreamURL, skipping any entry that
// still references an unresolved variable. Local file entries (desktop
// files, icons, systemd units shipped alongside a -bin package) carry no
// "://" and are skipped outright: they have no host to compare.
func binSourceEntries(content, upstreamURL string) []string {
	var out []string
	for _, m := range binSourceArraysRE.FindAllStringSubmatch(content, -1) {
		for _, tok := range strings.Fields(m[2]) {
			tok = strings.Trim(tok, `'"`)
			if idx := strings.Index(tok, "::"); idx >= 0 {
				tok = tok[idx+2:]
			}
			resolved := binURLVarRE.ReplaceAllString(tok, upstreamURL)
			if !strings.Contains(resolved, "://") {
				continue
			}
			if binUnresolvedVarRE.MatchString(resolved) {
				continue
			}
			out = append(out, resolved)
		}
	}
	return out
}

func stripSourcePrefixes(url string) string {
	url = strings.TrimPrefix(url, "git+")
	return stripScheme(url)
}

func stripScheme(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	return url
}

func splitHostPath(s string) (host, path string) {
	idx := strings.IndexByte(s, '/')
	if idx == -1 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

func firstPathSegment(path string) string {
	idx := strings.IndexByte(path, '/')
	if idx == -1 {
		return path
	}
	return path[:idx]
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	for _, prefix := range []string{"www.", "dl.", "download."} {
		host = strings.TrimPrefix(host, prefix)
	}
	return host
}
