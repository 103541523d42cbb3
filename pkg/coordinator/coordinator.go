// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package coordinator drives one-shot and bulk scans: it assembles a
// PackageContext, runs the fixed analyzer roster against it, applies the
// ignore-list, and computes the final ScanResult. The bulk path fans the
// same pipeline out across a worker pool, applying the whitelist and
// batching the network-facing prefetch steps ahead of the per-package clone.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/traur/pkg/analyzers"
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/bulk"
	"github.com/kraklabs/traur/pkg/config"
	"github.com/kraklabs/traur/pkg/metrics"
	"github.com/kraklabs/traur/pkg/scoring"
	"github.com/schollz/progressbar/v3"
)

// ContextBuilder builds a PackageContext for a single package, optionally
// from already-fetched metadata. Satisfied by *aurctx.Builder.
type ContextBuilder interface {
	BuildContext(ctx context.Context, name string) (*aurctx.PackageContext, error)
	BuildContextPrefetched(ctx context.Context, name string, metadata *aurctx.Metadata, maintainerPackages []aurctx.Metadata) (*aurctx.PackageContext, error)
}

// Coordinator owns the analyzer roster, the context builder, and the
// config that gates whitelisting and ignore-listing. The zero value is not
// usable; construct with New.
type Coordinator struct {
	Builder     ContextBuilder
	Metadata    bulk.MetadataBatchFetcher
	Maintainers bulk.MaintainerFetcher
	Analyzers   []analyzers.Analyzer
	Config      *config.Config
	Jobs        int
	Logger      *slog.Logger

	// ShowProgress enables a terminal progress bar during bulk scans.
	ShowProgress bool
}

// New returns a Coordinator with the default analyzer roster and Jobs=4.
// Any field may be overridden before use.
func New(builder ContextBuilder, metadataFetcher bulk.MetadataBatchFetcher, maintainerFetcher bulk.MaintainerFetcher, cfg *config.Config, logger *slog.Logger) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		Builder:     builder,
		Metadata:    metadataFetcher,
		Maintainers: maintainerFetcher,
		Analyzers:   analyzers.All(nil, logger),
		Config:      cfg,
		Jobs:        4,
		Logger:      logger,
	}
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// runAnalyzers runs every analyzer in the fixed roster order against ctx
// and flattens their results. No analyzer may error; a missing input
// simply yields fewer signals.
func (c *Coordinator) runAnalyzers(pc *aurctx.PackageContext) []scoring.Signal {
	var signals []scoring.Signal
	for _, a := range c.Analyzers {
		signals = append(signals, a.Analyze(pc)...)
	}
	return signals
}

// Analyze runs the analyzer roster against an already-built context,
// filters ignored signals, and scores the result. Exposed so callers that
// build contexts out of band (e.g. a local PKGBUILD scan) can still use
// the coordinator's analysis and scoring semantics.
func (c *Coordinator) Analyze(pc *aurctx.PackageContext) scoring.ScanResult {
	signals := c.runAnalyzers(pc)
	if c.Config != nil {
		signals = c.Config.FilterSignals(signals)
	}
	return scoring.ComputeScore(pc.Name, signals)
}

// ScanPackage runs the single-package path: build context, analyze,
// filter ignored signals, score.
func (c *Coordinator) ScanPackage(ctx context.Context, name string) (scoring.ScanResult, error) {
	start := time.Now()
	pc, err := c.Builder.BuildContext(ctx, name)
	if err != nil {
		metrics.RecordScanError()
		return scoring.ScanResult{}, fmt.Errorf("build context for %s: %w", name, err)
	}
	result := c.Analyze(pc)
	metrics.RecordScan(result.Tier, time.Since(start))
	return result, nil
}

// BulkResult is the outcome of a multi-package scan.
type BulkResult struct {
	// Results holds every package that completed analysis, ranked
	// ascending by score with package name as the tie-break.
	Results []scoring.ScanResult

	// Skipped holds names the config's whitelist excluded from scanning.
	Skipped []string

	// Unknown holds names the index reported no metadata for.
	Unknown []string

	// Errors maps a package name to the clone/context-build error that
	// stopped its scan after retries were exhausted.
	Errors map[string]error
}

// ScanBulk scans every name in names: batch-fetches metadata, discards
// names unknown to the index, prefetches maintainer packages, then fans
// out BuildContextPrefetched+Analyze across a worker pool sized by Jobs.
// Whitelisted packages are skipped before any network contact.
func (c *Coordinator) ScanBulk(ctx context.Context, names []string) *BulkResult {
	result := &BulkResult{Errors: make(map[string]error)}

	var toScan []string
	for _, name := range names {
		if c.Config != nil && c.Config.IsWhitelisted(name) {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		toScan = append(toScan, name)
	}
	if len(toScan) == 0 {
		return result
	}

	metadataMap := bulk.BatchFetchMetadata(ctx, c.Metadata, toScan, c.logger())

	var known []string
	for _, name := range toScan {
		if _, ok := metadataMap[name]; ok {
			known = append(known, name)
		} else {
			result.Unknown = append(result.Unknown, name)
			c.logger().Info("coordinator.bulk.unknown_package", "package", name)
		}
	}
	if len(known) == 0 {
		return result
	}

	maintainerMap := bulk.PrefetchMaintainerPackages(ctx, c.Maintainers, metadataMap, c.logger())

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = 4
	}

	var bar *progressbar.ProgressBar
	if c.ShowProgress {
		bar = progressbar.Default(int64(len(known)), "scanning")
	}

	type outcome struct {
		result scoring.ScanResult
		err    error
		name   string
	}

	work := make(chan string, len(known))
	outcomes := make(chan outcome, len(known))

	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range work {
				meta := metadataMap[name]
				var maintPkgs []aurctx.Metadata
				if meta.Maintainer != "" {
					maintPkgs = maintainerMap[meta.Maintainer]
				}

				start := time.Now()
				pc, err := bulk.CloneWithRetry(ctx, c.Builder, name, &meta, maintPkgs)
				metrics.RecordCloneDuration(time.Since(start))
				if err != nil {
					metrics.RecordScanError()
					outcomes <- outcome{name: name, err: err}
					if bar != nil {
						_ = bar.Add(1)
					}
					continue
				}

				r := c.Analyze(pc)
				metrics.RecordScan(r.Tier, time.Since(start))
				outcomes <- outcome{name: name, result: r}
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

	for _, name := range known {
		work <- name
	}
	close(work)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		if o.err != nil {
			result.Errors[o.name] = o.err
			continue
		}
		result.Results = append(result.Results, o.result)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	sort.Slice(result.Results, func(i, j int) bool {
		a, b := result.Results[i], result.Results[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.Package < b.Package
	})

	return result
}

// ExitCode implements the external exit-code contract from spec §6: 1 if
// any scanned package reached Suspicious or higher, or if any package's
// context build failed after retries; 0 otherwise.
func (r *BulkResult) ExitCode() int {
	for _, res := range r.Results {
		if !res.Tier.Less(scoring.TierSuspicious) {
			return 1
		}
	}
	if len(r.Errors) > 0 {
		return 1
	}
	return 0
}
