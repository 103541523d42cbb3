// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package bench drives a local measurement pass over the gzipped package
// index metadata dump: pick the N most recently modified packages, run a
// full bulk scan, and report per-phase timing and tier distribution.
package bench

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/kraklabs/traur/pkg/coordinator"
	"github.com/kraklabs/traur/pkg/scoring"
)

// DumpURL is the well-known location of the gzipped metadata dump used
// only by this benchmark path (spec §6).
const DumpURL = "https://aur.archlinux.org/packages-meta-v1.json.gz"

// DumpEntry is one record of the metadata dump.
type DumpEntry struct {
	Name         string `json:"Name"`
	LastModified int64  `json:"LastModified"`
	PackageBase  string `json:"PackageBase"`
}

// FetchDump downloads and decodes the gzipped metadata dump at url.
func FetchDump(ctx context.Context, url string) ([]DumpEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata dump: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata dump: unexpected status %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress metadata dump: %w", err)
	}

	var entries []DumpEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse metadata dump: %w", err)
	}
	return entries, nil
}

// SelectRecent sorts entries by LastModified descending, deduplicates by
// package base, and returns the first count.
func SelectRecent(entries []DumpEntry, count int) []DumpEntry {
	sorted := make([]DumpEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastModified > sorted[j].LastModified
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]DumpEntry, 0, count)
	for _, e := range sorted {
		if _, ok := seen[e.PackageBase]; ok {
			continue
		}
		seen[e.PackageBase] = struct{}{}
		out = append(out, e)
		if len(out) == count {
			break
		}
	}
	return out
}

// Report summarizes one benchmark run.
type Report struct {
	Requested    int
	Scanned      int
	Errors       int
	TierCounts   map[scoring.Tier]int
	TotalTime    time.Duration
	ScanWallTime time.Duration
	Flagged      []scoring.ScanResult
}

// Run fetches the dump, selects count packages, and drives a bulk scan
// through c, returning per-phase timing and tier distribution. Packages
// that reach Suspicious or higher are collected into Report.Flagged.
func Run(ctx context.Context, c *coordinator.Coordinator, count int) (*Report, error) {
	start := time.Now()

	entries, err := FetchDump(ctx, DumpURL)
	if err != nil {
		return nil, err
	}
	selected := SelectRecent(entries, count)

	names := make([]string, len(selected))
	for i, e := range selected {
		names[i] = e.Name
	}

	scanStart := time.Now()
	bulkResult := c.ScanBulk(ctx, names)
	scanWallTime := time.Since(scanStart)

	tierCounts := map[scoring.Tier]int{
		scoring.TierTrusted:    0,
		scoring.TierOk:         0,
		scoring.TierSketchy:    0,
		scoring.TierSuspicious: 0,
		scoring.TierMalicious:  0,
	}
	var flagged []scoring.ScanResult
	for _, r := range bulkResult.Results {
		tierCounts[r.Tier]++
		if !r.Tier.Less(scoring.TierSuspicious) {
			flagged = append(flagged, r)
		}
	}

	return &Report{
		Requested:    len(names),
		Scanned:      len(bulkResult.Results),
		Errors:       len(bulkResult.Errors) + len(bulkResult.Unknown),
		TierCounts:   tierCounts,
		TotalTime:    time.Since(start),
		ScanWallTime: scanWallTime,
		Flagged:      flagged,
	}, nil
}
