// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

var securityKeywords = []string{
	"malware", "backdoor", "trojan", "keylogger", "cryptominer", "ransomware",
	"rootkit", "compromised", "virus", "suspicious", "malicious", "spyware",
	"unsafe", "dangerous", "phishing", "exploit",
}

const commentExcerptLimit = 120

// AurComments flags the first recent comment that mentions a security
// concern by keyword. Stops at the first hit: later comments, however
// alarming, add no further signal.
type AurComments struct{}

func (AurComments) Name() string { return "aur_comments_analysis" }

func (AurComments) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	for _, comment := range ctx.AurComments {
		lower := strings.ToLower(comment)
		for _, kw := range securityKeywords {
			if strings.Contains(lower, kw) {
				return []scoring.Signal{{
					ID: "M-COMMENTS-SECURITY", Category: scoring.CategoryMetadata, Points: 40,
					Description: "A recent comment mentions a security concern (keyword: " + kw + ")",
					MatchedLine: excerpt(comment, commentExcerptLimit),
				}}
			}
		}
	}
	return nil
}

func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
