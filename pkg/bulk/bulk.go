// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package bulk implements the batched, parallel, retrying fetch layer the
// bulk scan coordinator multiplexes the single-package pipeline across:
// chunked metadata lookups, fan-out maintainer-package prefetch, and
// exponential-backoff retry around the per-package context build.
package bulk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/metrics"
)

// BatchSize is the maximum number of names sent per index info request.
const BatchSize = 150

// MaxRetries is the number of clone attempts CloneWithRetry makes before
// surfacing the last error.
const MaxRetries = 3

// RetryBaseDelay is the first backoff delay; each subsequent retry doubles
// it (2s, 4s).
const RetryBaseDelay = 2 * time.Second

// MetadataBatchFetcher fetches metadata for multiple package names in one
// call. Satisfied by *aurclient.RPCClient.
type MetadataBatchFetcher interface {
	FetchPackagesInfo(ctx context.Context, names []string) ([]aurctx.Metadata, error)
}

// MaintainerFetcher fetches every package a maintainer currently owns.
// Satisfied by *aurclient.RPCClient.
type MaintainerFetcher interface {
	FetchMaintainerPackages(ctx context.Context, maintainer string) ([]aurctx.Metadata, error)
}

// ContextBuilder builds a PackageContext from pre-fetched metadata.
// Satisfied by *aurctx.Builder.
type ContextBuilder interface {
	BuildContextPrefetched(ctx context.Context, name string, metadata *aurctx.Metadata, maintainerPackages []aurctx.Metadata) (*aurctx.PackageContext, error)
}

// BatchFetchMetadata chunks names into batches of at most BatchSize and
// issues one index call per batch, coalescing results into a name->metadata
// map. A failed batch is logged and skipped, not retried here: retry is a
// per-package concern handled by CloneWithRetry.
func BatchFetchMetadata(ctx context.Context, client MetadataBatchFetcher, names []string, logger *slog.Logger) map[string]aurctx.Metadata {
	if logger == nil {
		logger = slog.Default()
	}
	result := make(map[string]aurctx.Metadata, len(names))

	for start := 0; start < len(names); start += BatchSize {
		end := start + BatchSize
		if end > len(names) {
			end = len(names)
		}
		chunk := names[start:end]

		metas, err := client.FetchPackagesInfo(ctx, chunk)
		if err != nil {
			logger.Warn("bulk.metadata.batch.error", "batch_start", start, "batch_size", len(chunk), "err", err)
			continue
		}
		for _, m := range metas {
			result[m.Name] = m
		}
	}
	return result
}

// PrefetchMaintainerPackages collects the distinct set of maintainers
// across metadata and fetches each maintainer's package list in parallel,
// one goroutine per maintainer.
func PrefetchMaintainerPackages(ctx context.Context, client MaintainerFetcher, metadata map[string]aurctx.Metadata, logger *slog.Logger) map[string][]aurctx.Metadata {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]struct{})
	for _, m := range metadata {
		if m.Maintainer != "" {
			seen[m.Maintainer] = struct{}{}
		}
	}

	type outcome struct {
		maintainer string
		pkgs       []aurctx.Metadata
		err        error
	}
	results := make(chan outcome, len(seen))

	var wg sync.WaitGroup
	for maintainer := range seen {
		wg.Add(1)
		go func(maintainer string) {
			defer wg.Done()
			pkgs, err := client.FetchMaintainerPackages(ctx, maintainer)
			results <- outcome{maintainer: maintainer, pkgs: pkgs, err: err}
		}(maintainer)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[string][]aurctx.Metadata, len(seen))
	for o := range results {
		if o.err != nil {
			logger.Warn("bulk.maintainer.fetch.error", "maintainer", o.maintainer, "err", o.err)
			continue
		}
		out[o.maintainer] = o.pkgs
	}
	return out
}

// sleep is indirected so tests can exercise CloneWithRetry's backoff
// schedule without a real delay.
var sleep = time.Sleep

// CloneWithRetry wraps BuildContextPrefetched with up to MaxRetries
// attempts and exponential backoff starting at RetryBaseDelay (2s, 4s). On
// the final failure the original error is surfaced.
func CloneWithRetry(ctx context.Context, builder ContextBuilder, name string, metadata *aurctx.Metadata, maintainerPackages []aurctx.Metadata) (*aurctx.PackageContext, error) {
	var lastErr error
	delay := RetryBaseDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		pc, err := builder.BuildContextPrefetched(ctx, name, metadata, maintainerPackages)
		if err == nil {
			return pc, nil
		}
		lastErr = err
		if attempt+1 < MaxRetries {
			metrics.RecordCloneRetry()
			sleep(delay)
			delay *= 2
		}
	}
	return nil, lastErr
}
