// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

const establishedPackageSeconds = 90 * 86400

// OrphanTakeover flags a maintainer change on its own, and escalates when
// the change looks like a hostile takeover of an established, previously
// orphaned package: the new maintainer's git identity never appears in any
// earlier commit.
type OrphanTakeover struct{}

func (OrphanTakeover) Name() string { return "orphan_takeover_analysis" }

func (OrphanTakeover) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if ctx.Metadata == nil || ctx.Metadata.Submitter == "" || ctx.Metadata.Maintainer == "" {
		return nil
	}
	if ctx.Metadata.Submitter == ctx.Metadata.Maintainer {
		return nil
	}

	signals := []scoring.Signal{{
		ID: "B-SUBMITTER-CHANGED", Category: scoring.CategoryBehavioral, Points: 15,
		Description: "Package submitter differs from current maintainer",
	}}

	if len(ctx.GitLog) < 2 {
		return signals
	}
	if nowEpoch()-ctx.Metadata.FirstSubmitted <= establishedPackageSeconds {
		return signals
	}

	latestAuthor := ctx.GitLog[0].Author
	seenBefore := false
	for _, c := range ctx.GitLog[1:] {
		if c.Author == latestAuthor {
			seenBefore = true
			break
		}
	}
	if !seenBefore {
		signals = append(signals, scoring.Signal{
			ID: "B-ORPHAN-TAKEOVER", Category: scoring.CategoryBehavioral, Points: 50,
			Description: "Established package taken over by a new, previously absent author",
		})
	}
	return signals
}
