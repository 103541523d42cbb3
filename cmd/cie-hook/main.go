// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command cie-hook is the ALPM pre-transaction hook binary. Pacman (or an
// AUR helper wrapping it) feeds the transaction's target package names on
// stdin via NeedsTargets; this binary filters to packages absent from the
// official sync databases, scans each, and prompts before letting the
// transaction proceed.
//
// All output goes to stderr: pacman buffers a hook's stdout, which would
// interleave badly with the /dev/tty prompt below.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/kraklabs/traur/internal/paths"
	"github.com/kraklabs/traur/internal/ui"
	"github.com/kraklabs/traur/pkg/aurclient"
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/config"
	"github.com/kraklabs/traur/pkg/coordinator"
	"github.com/kraklabs/traur/pkg/scoring"
)

func main() {
	// Hooks inherit the terminal but stdin is a pipe, so the color library's
	// own auto-detection can't see past it. Force color on exactly when
	// stderr, where every line below goes, is a real terminal.
	color.NoColor = !ui.StderrIsTTY(os.Stderr.Fd())

	packages := readTargets(os.Stdin)
	if len(packages) == 0 {
		return
	}

	aurPackages := make([]string, 0, len(packages))
	for _, pkg := range packages {
		if !inOfficialRepos(pkg) {
			aurPackages = append(aurPackages, pkg)
		}
	}
	if len(aurPackages) == 0 {
		return
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "traur: could not load config, continuing with defaults: %v\n", err)
		cfg = config.Default()
	}

	printLogo()

	logger := slog.Default()
	rpc := aurclient.NewRPCClient()
	vcs := aurclient.NewVCSClient(logger)
	gh := aurclient.NewGithubClient()
	builder := &aurctx.Builder{
		Metadata:    rpc,
		Maintainers: rpc,
		Comments:    rpc,
		Stars:       gh,
		Repo:        vcs,
		CacheDir:    paths.PackageCacheDir,
		Logger:      logger,
	}
	c := coordinator.New(builder, rpc, rpc, cfg, logger)

	var anyScanned, hasCritical bool
	for _, pkg := range aurPackages {
		if cfg.IsWhitelisted(pkg) {
			fmt.Fprintf(os.Stderr, "traur: %s (whitelisted, skipping scan)\n", pkg)
			continue
		}
		anyScanned = true

		result, err := c.ScanPackage(context.Background(), pkg)
		if err != nil {
			// Fail open: a scan error must never block a transaction on
			// its own, since the user has no recourse but to abort entirely.
			fmt.Fprintf(os.Stderr, "traur: failed to scan %q: %v\n", pkg, err)
			continue
		}

		printResult(result)
		if !result.Tier.Less(scoring.TierMalicious) {
			hasCritical = true
		}
	}

	if !anyScanned {
		return
	}

	if hasCritical {
		fmt.Fprintln(os.Stderr)
		color.New(color.FgRed, color.Bold).Fprintln(os.Stderr, "traur: MALICIOUS packages detected above")
		fmt.Fprintln(os.Stderr, "traur: use 'cie-scan allow <package>' to whitelist, then retry")
		os.Exit(1)
	}

	response := promptTTY("\ntraur: Continue with installation? [y/N] ")
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		// proceed
	default:
		fmt.Fprintln(os.Stderr, "traur: aborting transaction")
		os.Exit(1)
	}
}

func printLogo() {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint(`
  ╔╦╗╦═╗╔═╗╦ ╦╦═╗
   ║ ╠╦╝╠═╣║ ║╠╦╝
   ╩ ╩╚═╩ ╩╚═╝╩╚═`))
	fmt.Fprintln(os.Stderr, "  "+color.New(color.Faint).Sprint("AUR Package Security Scanner"))
	fmt.Fprintln(os.Stderr)
}

func printResult(result scoring.ScanResult) {
	tierColor := ui.TierColor(string(result.Tier))
	tierColor.Fprintf(os.Stderr, "%s: %s (score %d)\n", result.Package, result.Tier, result.Score)
	for _, s := range result.Signals {
		if s.Points == 0 {
			continue
		}
		prefix := ui.SeverityPrefix(s.Points, s.IsOverrideGate)
		fmt.Fprintf(os.Stderr, "  %s %-24s %+4d  %s\n", prefix, s.ID, s.Points, s.Description)
	}
}

// readTargets reads one package name per line, trimming whitespace and
// dropping blanks, matching NeedsTargets' newline-delimited contract.
func readTargets(r *os.File) []string {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			names = append(names, line)
		}
	}
	return names
}

// inOfficialRepos reports whether pacman's sync databases (not the AUR)
// carry pkg, via the same check pacman itself would make.
func inOfficialRepos(pkg string) bool {
	cmd := exec.Command("pacman", "-Si", pkg)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// promptTTY writes prompt to /dev/tty and reads the response from it.
// Stdin is consumed by ALPM's NeedsTargets pipe, so the confirmation
// prompt bypasses it entirely and talks to the controlling terminal
// directly.
func promptTTY(prompt string) string {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "traur: cannot open /dev/tty: %v\n", err)
		fmt.Fprintln(os.Stderr, "traur: aborting (non-interactive)")
		os.Exit(1)
	}
	defer tty.Close()

	fmt.Fprint(tty, prompt)

	reader := bufio.NewReader(tty)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return line
}
