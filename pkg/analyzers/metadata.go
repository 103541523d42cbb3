// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

// Metadata flags packages whose index record itself carries red flags: no
// votes, no popularity, no maintainer, no URL, no license, or a pending
// out-of-date flag. Emits nothing when the package is unknown to the index,
// since every field below is meaningless without metadata.
type Metadata struct{}

func (Metadata) Name() string { return "metadata_analysis" }

func (Metadata) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if ctx.Metadata == nil {
		return nil
	}
	m := ctx.Metadata

	var signals []scoring.Signal
	switch {
	case m.NumVotes == 0:
		signals = append(signals, scoring.Signal{
			ID: "M-VOTES-ZERO", Category: scoring.CategoryMetadata, Points: 30,
			Description: "Package has zero votes",
		})
	case m.NumVotes < 5:
		signals = append(signals, scoring.Signal{
			ID: "M-VOTES-LOW", Category: scoring.CategoryMetadata, Points: 20,
			Description: "Package has fewer than 5 votes",
		})
	}

	if m.Popularity == 0 {
		signals = append(signals, scoring.Signal{
			ID: "M-POP-ZERO", Category: scoring.CategoryMetadata, Points: 25,
			Description: "Package has zero popularity",
		})
	}
	if m.Maintainer == "" {
		signals = append(signals, scoring.Signal{
			ID: "M-NO-MAINTAINER", Category: scoring.CategoryMetadata, Points: 20,
			Description: "Package has no maintainer",
		})
	}
	if m.URL == "" {
		signals = append(signals, scoring.Signal{
			ID: "M-NO-URL", Category: scoring.CategoryMetadata, Points: 15,
			Description: "Package has no upstream URL",
		})
	}
	if len(m.License) == 0 {
		signals = append(signals, scoring.Signal{
			ID: "M-NO-LICENSE", Category: scoring.CategoryMetadata, Points: 10,
			Description: "Package has no license",
		})
	}
	if m.OutOfDate != nil {
		signals = append(signals, scoring.Signal{
			ID: "M-OUT-OF-DATE", Category: scoring.CategoryMetadata, Points: 5,
			Description: "Package is flagged out of date",
		})
	}
	return signals
}
