// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"sort"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

const (
	maintainerNewAccountSeconds = 30 * 86400
	maintainerBatchWindow       = 48 * 3600
	maintainerBatchThreshold    = 3
)

// Maintainer flags accounts whose only package is very new, whose only
// package is merely small, and accounts that submitted a tight burst of
// packages in a short window (a classic sock-puppet flood pattern).
type Maintainer struct{}

func (Maintainer) Name() string { return "maintainer_analysis" }

func (Maintainer) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if ctx.Metadata == nil {
		return nil
	}

	var signals []scoring.Signal

	// ctx.MaintainerPackages holds every OTHER package the maintainer
	// currently maintains; fold the scanned package's own metadata back in
	// so "maintains exactly one package" and the batch window scan both
	// operate on every package the maintainer actually holds, not just the
	// others.
	allPkgs := append([]aurctx.Metadata{*ctx.Metadata}, ctx.MaintainerPackages...)

	if len(allPkgs) <= 1 {
		age := maintainerAccountAge(ctx)
		if age >= 0 && age < maintainerNewAccountSeconds {
			signals = append(signals, scoring.Signal{
				ID: "B-MAINTAINER-NEW", Category: scoring.CategoryBehavioral, Points: 30,
				Description: "Maintainer's only package, account under 30 days old",
			})
		} else {
			signals = append(signals, scoring.Signal{
				ID: "B-MAINTAINER-SINGLE", Category: scoring.CategoryBehavioral, Points: 15,
				Description: "Maintainer's only package",
			})
		}
	}

	if batchCount(allPkgs) >= maintainerBatchThreshold {
		signals = append(signals, scoring.Signal{
			ID: "B-MAINTAINER-BATCH", Category: scoring.CategoryBehavioral, Points: 45,
			Description: "Maintainer submitted a batch of packages in a short window",
		})
	}

	return signals
}

func maintainerAccountAge(ctx *aurctx.PackageContext) int64 {
	if ctx.Metadata == nil || ctx.Metadata.FirstSubmitted == 0 {
		return -1
	}
	return nowEpoch() - ctx.Metadata.FirstSubmitted
}

// batchCount returns the length of the longest run of consecutive
// submissions (by FirstSubmitted, sorted ascending) each within
// maintainerBatchWindow seconds of the previous one.
func batchCount(pkgs []aurctx.Metadata) int {
	if len(pkgs) == 0 {
		return 0
	}
	stamps := make([]int64, len(pkgs))
	for i, p := range pkgs {
		stamps[i] = p.FirstSubmitted
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	best, run := 1, 1
	for i := 1; i < len(stamps); i++ {
		if stamps[i]-stamps[i-1] <= maintainerBatchWindow {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
