// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analyzers

import (
	"strings"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/scoring"
)

var impersonationSuffixes = []string{
	"-fix", "-fixed", "-patch", "-patched", "-updated", "-secure", "-plus", "-mod", "-modded",
}

var brandNames = []string{
	"firefox", "chromium", "chrome", "brave", "librewolf", "zen-browser",
	"discord", "slack", "telegram", "signal", "vscode", "code", "steam",
	"spotify", "obsidian", "1password", "bitwarden", "keepass",
}

var topPackageNames = []string{
	"firefox", "chromium", "google-chrome", "visual-studio-code-bin", "discord",
	"spotify", "slack-desktop", "telegram-desktop", "signal-desktop", "zoom",
	"docker", "nodejs", "python", "python2", "go", "rust", "git", "vim", "neovim",
	"yay", "paru", "pacman", "systemd", "openssh", "curl", "wget", "tmux",
	"htop", "zsh", "bash", "sudo",
}

// NameHeuristics flags package names that impersonate a known brand or
// closely resemble a popular package name, the two cheapest and most
// common typosquat vectors.
type NameHeuristics struct{}

func (NameHeuristics) Name() string { return "name_analysis" }

func (NameHeuristics) Analyze(ctx *aurctx.PackageContext) []scoring.Signal {
	if ctx.Metadata != nil && ctx.Metadata.NumVotes >= 10 {
		return nil
	}

	name := strings.ToLower(ctx.Name)

	for _, brand := range brandNames {
		for _, suffix := range impersonationSuffixes {
			if name == brand+suffix || name == brand+suffix+"-bin" || name == brand+suffix+"-git" {
				return []scoring.Signal{{
					ID:          "B-NAME-IMPERSONATE",
					Category:    scoring.CategoryBehavioral,
					Points:      65,
					Description: "Package name impersonates a known brand",
				}}
			}
		}
	}

	for _, popular := range topPackageNames {
		if name == popular {
			continue
		}
		if levenshtein(name, popular) == 1 {
			return []scoring.Signal{{
				ID:          "B-TYPOSQUAT",
				Category:    scoring.CategoryBehavioral,
				Points:      55,
				Description: "Package name resembles a popular package name",
			}}
		}
	}

	for _, popular := range topPackageNames {
		if name == popular {
			continue
		}
		if len(name) > len(popular) && (strings.HasPrefix(name, popular) || strings.HasSuffix(name, popular)) {
			return []scoring.Signal{{
				ID:          "B-TYPOSQUAT",
				Category:    scoring.CategoryBehavioral,
				Points:      55,
				Description: "Package name resembles a popular package name",
			}}
		}
	}

	return nil
}

// levenshtein returns the edit distance between a and b. No third-party
// string-distance library appears anywhere in the corpus; this is a plain
// two-row dynamic-programming implementation operating on runes.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
