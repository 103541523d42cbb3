// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"regexp"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

const (
	newPackageSeconds = 7 * 86400
)

var (
	netDiffRE    = regexp.MustCompile(`(?m)^\+.*(curl|wget|nc\s|ncat|socat|/dev/tcp|python.*socket|ruby.*socket)`)
	netContentRE = regexp.MustCompile(`(?i)(curl|wget|nc\s|ncat|socat|/dev/tcp|python.*socket|ruby.*socket)`)
)

// GitHistory flags a recipe repository with a single commit, a very
// recently submitted package, a commit history with more than one author,
// and the sharpest signal: a latest commit that newly introduces a
// network-execution primitive that wasn't already present.
type GitHistory struct{}

func (GitHistory) Name() string { return "git_history_analysis" }

func (GitHistory) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if len(ctx.GitLog) == 0 {
		return nil
	}

	var signals []scoring.Signal

	if len(ctx.GitLog) == 1 {
		signals = append(signals, scoring.Signal{
			ID: "T-SINGLE-COMMIT", Category: scoring.CategoryTemporal, Points: 20,
			Description: "Recipe repository has only one commit",
		})
	}

	age := packageAge(ctx)
	if age >= 0 && age < newPackageSeconds {
		signals = append(signals, scoring.Signal{
			ID: "T-NEW-PACKAGE", Category: scoring.CategoryTemporal, Points: 25,
			Description: "Package was submitted less than 7 days ago",
		})
	}

	if latest := ctx.GitLog[0]; latest.Diff != "" && netDiffRE.MatchString(latest.Diff) {
		if !ctx.HasPriorPkgbuild || !netContentRE.MatchString(ctx.PriorPkgbuildContent) {
			signals = append(signals, scoring.Signal{
				ID: "T-MALICIOUS-DIFF", Category: scoring.CategoryTemporal, Points: 55,
				Description: "Latest commit newly introduces a network-execution primitive",
				MatchedLine: firstMatchedLine(netDiffRE, latest.Diff),
			})
		}
	}

	if len(ctx.GitLog) >= 2 && countUniqueAuthors(ctx.GitLog) > 1 {
		signals = append(signals, scoring.Signal{
			ID: "T-AUTHOR-CHANGE", Category: scoring.CategoryTemporal, Points: 25,
			Description: "Recipe history has more than one commit author",
		})
	}

	return signals
}

// packageAge returns seconds since submission, preferring metadata's
// FirstSubmitted and falling back to the oldest known commit timestamp.
func packageAge(ctx *aurctx.PackageContext) int64 {
	if ctx.Metadata != nil && ctx.Metadata.FirstSubmitted > 0 {
		return nowEpoch() - ctx.Metadata.FirstSubmitted
	}
	if len(ctx.GitLog) == 0 {
		return -1
	}
	oldest := ctx.GitLog[0].Timestamp
	for _, c := range ctx.GitLog {
		if c.Timestamp < oldest {
			oldest = c.Timestamp
		}
	}
	return nowEpoch() - oldest
}

func countUniqueAuthors(log []aurctx.Commit) int {
	seen := make(map[string]struct{}, len(log))
	for _, c := range log {
		seen[c.Author] = struct{}{}
	}
	return len(seen)
}

func firstMatchedLine(re *regexp.Regexp, content string) string {
	loc := re.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	start := loc[0]
	for start > 0 && content[start-1] != '\n' {
		start--
	}
	end := loc[1]
	for end < len(content) && content[end] != '\n' {
		end++
	}
	return content[start:end]
}
