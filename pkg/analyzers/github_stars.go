// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

// GithubStars flags an upstream GitHub repository that couldn't be found
// at all, one with zero stars, and one with a handful of stars. Silent
// for non-GitHub upstreams (GithubStars is nil and GithubNotFound is
// false) and for repositories with 10 or more stars.
type GithubStars struct{}

func (GithubStars) Name() string { return "github_stars" }

func (GithubStars) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if ctx.GithubNotFound {
		line := ""
		if ctx.Metadata != nil {
			line = ctx.Metadata.URL
		}
		return []scoring.Signal{{
			ID: "M-GITHUB-NOT-FOUND", Category: scoring.CategoryMetadata, Points: 25,
			Description: "Upstream code-host repository was not found",
			MatchedLine: line,
		}}
	}

	if ctx.GithubStars == nil {
		return nil
	}

	switch {
	case *ctx.GithubStars == 0:
		return []scoring.Signal{{
			ID: "M-GITHUB-STARS-ZERO", Category: scoring.CategoryMetadata, Points: 20,
			Description: "Upstream repository has zero stars",
		}}
	case *ctx.GithubStars < 10:
		return []scoring.Signal{{
			ID: "M-GITHUB-STARS-LOW", Category: scoring.CategoryMetadata, Points: 10,
			Description: "Upstream repository has fewer than 10 stars",
		}}
	}
	return nil
}
