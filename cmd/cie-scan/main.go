// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Command cie-scan is the trust-scoring engine's CLI: scan one package,
// scan every installed AUR package, or manage the whitelist.
//
// Usage:
//
//	cie-scan scan <package> [--json] [--verbose]
//	cie-scan scan --pkgbuild <dir> [--json]
//	cie-scan scan --all-installed [--jobs N] [--json]
//	cie-scan allow <package>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kraklabs/traur/internal/bench"
	"github.com/kraklabs/traur/internal/errors"
	"github.com/kraklabs/traur/internal/output"
	"github.com/kraklabs/traur/internal/paths"
	"github.com/kraklabs/traur/internal/ui"
	"github.com/kraklabs/traur/pkg/aurclient"
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/config"
	"github.com/kraklabs/traur/pkg/coordinator"
	"github.com/kraklabs/traur/pkg/patterns"
	"github.com/kraklabs/traur/pkg/scoring"
	flag "github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(errors.ExitInput)
	}

	switch os.Args[1] {
	case "scan":
		os.Exit(cmdScan(os.Args[2:]))
	case "allow":
		os.Exit(cmdAllow(os.Args[2:]))
	case "registry":
		os.Exit(cmdRegistry(os.Args[2:]))
	case "bench":
		os.Exit(cmdBench(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(errors.ExitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "cie-scan: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(errors.ExitInput)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `cie-scan - trust scoring for AUR packages

Usage:
  cie-scan scan <package> [--json] [--verbose]
  cie-scan scan --pkgbuild <dir> [--json]
  cie-scan scan --all-installed [--jobs N] [--json]
  cie-scan allow <package>
  cie-scan registry list [--json]
  cie-scan bench [--count N] [--jobs N]
`)
}

func newCoordinator(cfg *config.Config, logger *slog.Logger) *coordinator.Coordinator {
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

	return coordinator.New(builder, rpc, rpc, cfg, logger)
}

func cmdScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "output as JSON")
	verbose := fs.BoolP("verbose", "v", false, "show the exact line that triggered each signal")
	showAll := fs.BoolP("all", "a", false, "show every signal, not just non-zero ones")
	pkgbuildDir := fs.String("pkgbuild", "", "scan a local PKGBUILD directory instead of the index")
	allInstalled := fs.Bool("all-installed", false, "scan every foreign (AUR) package pacman reports installed")
	jobs := fs.Int("jobs", 4, "concurrent scan workers for bulk scans")
	noColor := fs.Bool("no-color", false, "disable colored output")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return errors.ExitInput
	}
	ui.InitColors(*noColor || os.Getenv("NO_COLOR") != "")

	logger := slog.Default()
	cfg, err := config.LoadDefault()
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"could not load configuration", err.Error(),
			"check "+paths.ConfigFile()+" for a YAML syntax error", err,
		), *jsonOut)
		return errors.ExitConfig
	}

	if *pkgbuildDir != "" {
		return scanLocalPkgbuild(*pkgbuildDir, cfg, *jsonOut, *verbose, *showAll)
	}

	rest := fs.Args()
	if len(rest) == 1 {
		return scanSingle(rest[0], cfg, logger, *jsonOut, *verbose, *showAll)
	}

	if *allInstalled || len(rest) == 0 {
		return scanAllInstalled(cfg, logger, *jobs, *jsonOut, *verbose, *showAll)
	}

	fmt.Fprintln(os.Stderr, "cie-scan: scan takes at most one package name")
	return errors.ExitInput
}

func scanLocalPkgbuild(dir string, cfg *config.Config, jsonOut, verbose, showAll bool) int {
	content, err := os.ReadFile(filepath.Join(dir, "PKGBUILD"))
	if err != nil {
		errors.FatalError(errors.NewInputError(
			"could not read PKGBUILD", err.Error(),
			"point --pkgbuild at a directory containing a PKGBUILD file",
		), jsonOut)
		return errors.ExitInput
	}

	name := filepath.Base(strings.TrimRight(dir, string(filepath.Separator)))
	if name == "" || name == "." {
		name = "local"
	}

	pc := &aurctx.PackageContext{Name: name, PkgbuildContent: string(content), HasPkgbuild: true}
	c := coordinator.New(nil, nil, nil, cfg, nil)
	result := c.Analyze(pc)

	printResult(result, jsonOut, verbose, showAll)
	return exitForTier(result.Tier)
}

func scanSingle(pkg string, cfg *config.Config, logger *slog.Logger, jsonOut, verbose, showAll bool) int {
	c := newCoordinator(cfg, logger)

	result, err := c.ScanPackage(context.Background(), pkg)
	if err != nil {
		errors.FatalError(errors.NewIntegrityError(
			fmt.Sprintf("could not scan %s", pkg), err.Error(),
			"check network connectivity and that the package name is correct", err,
		), jsonOut)
		return errors.ExitIntegrity
	}

	printResult(result, jsonOut, verbose, showAll)
	return exitForTier(result.Tier)
}

func scanAllInstalled(cfg *config.Config, logger *slog.Logger, jobs int, jsonOut, verbose, showAll bool) int {
	names, err := installedAURPackages()
	if err != nil {
		errors.FatalError(errors.NewInputError(
			"could not list installed AUR packages", err.Error(),
			"check that pacman is on PATH and run outside a chroot",
		), jsonOut)
		return errors.ExitInput
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "No AUR packages installed.")
		return errors.ExitSuccess
	}

	c := newCoordinator(cfg, logger)
	c.Jobs = jobs
	c.ShowProgress = !jsonOut && ui.StderrIsTTY(os.Stderr.Fd())

	if !jsonOut {
		ui.Info(fmt.Sprintf("Scanning %d installed AUR packages...", len(names)))
	}

	bulkResult := c.ScanBulk(context.Background(), names)

	if jsonOut {
		_ = output.JSON(bulkResult.Results)
	} else {
		for _, r := range bulkResult.Results {
			printResult(r, false, verbose, showAll)
		}
		for name, err := range bulkResult.Errors {
			ui.Warning(fmt.Sprintf("%s: %v", name, err))
		}
	}

	return bulkResult.ExitCode()
}

func printResult(result scoring.ScanResult, jsonOut, verbose, showAll bool) {
	if jsonOut {
		_ = output.JSON(result)
		return
	}

	tierColor := ui.TierColor(string(result.Tier))
	tierColor.Printf("%s: %s (score %d)\n", result.Package, result.Tier, result.Score)
	if result.OverrideGateFired != "" {
		ui.Warning("override gate fired: " + result.OverrideGateFired)
	}

	for _, s := range result.Signals {
		if !showAll && s.Points == 0 {
			continue
		}
		prefix := ui.SeverityPrefix(s.Points, s.IsOverrideGate)
		fmt.Printf("  %s %-24s %+4d  %s\n", prefix, s.ID, s.Points, s.Description)
		if verbose && s.MatchedLine != "" {
			fmt.Printf("       %s\n", ui.DimText(s.MatchedLine))
		}
	}
}

func exitForTier(tier scoring.Tier) int {
	if tier.Less(scoring.TierSuspicious) {
		return errors.ExitSuccess
	}
	return errors.ExitInput
}

func installedAURPackages() ([]string, error) {
	out, err := exec.Command("pacman", "-Qm").Output()
	if err != nil {
		return nil, fmt.Errorf("run pacman -Qm: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		names = append(names, fields[0])
	}
	return names, nil
}

func cmdAllow(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "cie-scan: allow takes exactly one package name")
		return errors.ExitInput
	}
	pkg := args[0]

	cfg, err := config.LoadDefault()
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"could not load configuration", err.Error(),
			"check "+paths.ConfigFile()+" for a YAML syntax error", err,
		), false)
		return errors.ExitConfig
	}

	if !cfg.AddToWhitelist(pkg) {
		ui.Info(pkg + " is already whitelisted")
		return errors.ExitSuccess
	}

	if err := config.SaveDefault(cfg); err != nil {
		errors.FatalError(errors.NewConfigError(
			"could not save configuration", err.Error(),
			"check write permission on "+paths.ConfigDir(), err,
		), false)
		return errors.ExitConfig
	}

	ui.Success(pkg + " added to whitelist")
	return errors.ExitSuccess
}

func cmdRegistry(args []string) int {
	if len(args) == 0 || args[0] != "list" {
		fmt.Fprintln(os.Stderr, "cie-scan: registry takes one subcommand: list")
		return errors.ExitInput
	}

	fs := flag.NewFlagSet("registry list", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "output as JSON")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return errors.ExitInput
	}

	db := patterns.New(slog.Default())
	registry := scoring.NewRegistry(db)
	definitions := registry.All()

	if *jsonOut {
		_ = output.JSON(definitions)
		return errors.ExitSuccess
	}

	for _, d := range definitions {
		gate := " "
		if d.IsOverrideGate {
			gate = "!"
		}
		fmt.Printf("%s %-24s %-10s %+4d  %s\n", gate, d.ID, d.Category, d.Points, d.Description)
	}
	return errors.ExitSuccess
}

func cmdBench(args []string) int {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	count := fs.Int("count", 1000, "number of recently modified packages to scan")
	jobs := fs.Int("jobs", 8, "concurrent scan workers")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return errors.ExitInput
	}

	logger := slog.Default()
	cfg := config.Default()
	c := newCoordinator(cfg, logger)
	c.Jobs = *jobs

	report, err := bench.Run(context.Background(), c, *count)
	if err != nil {
		errors.FatalError(errors.NewNetworkError(
			"could not run benchmark", err.Error(),
			"check network connectivity to aur.archlinux.org", err,
		), false)
		return errors.ExitNetwork
	}

	ui.Header("Benchmark results")
	fmt.Printf("Requested:  %d\n", report.Requested)
	fmt.Printf("Scanned:    %d\n", report.Scanned)
	fmt.Printf("Errors:     %d\n", report.Errors)
	fmt.Printf("Total time: %s\n", report.TotalTime)
	fmt.Printf("Scan time:  %s\n", report.ScanWallTime)
	for tier, n := range report.TierCounts {
		fmt.Printf("  %-10s %d\n", tier, n)
	}
	if len(report.Flagged) > 0 {
		ui.Warning(fmt.Sprintf("%d package(s) reached Suspicious or higher", len(report.Flagged)))
	}
	return errors.ExitSuccess
}
