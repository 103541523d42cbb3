// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package bulk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kraklabs/traur/pkg/aurctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchFetcher struct {
	mu      sync.Mutex
	batches [][]string
	fail    map[int]bool
}

func (f *fakeBatchFetcher) FetchPackagesInfo(ctx context.Context, names []string) ([]aurctx.Metadata, error) {
	f.mu.Lock()
	idx := len(f.batches)
	f.batches = append(f.batches, append([]string(nil), names...))
	f.mu.Unlock()

	if f.fail[idx] {
		return nil, errors.New("index unavailable")
	}
	metas := make([]aurctx.Metadata, 0, len(names))
	for _, n := range names {
		metas = append(metas, aurctx.Metadata{Name: n})
	}
	return metas, nil
}

func TestBatchFetchMetadata_ChunksAtBatchSize(t *testing.T) {
	names := make([]string, BatchSize+10)
	for i := range names {
		names[i] = "pkg"
	}
	f := &fakeBatchFetcher{}
	BatchFetchMetadata(context.Background(), f, names, nil)

	require.Len(t, f.batches, 2)
	assert.Len(t, f.batches[0], BatchSize)
	assert.Len(t, f.batches[1], 10)
}

func TestBatchFetchMetadata_SkipsFailedBatch(t *testing.T) {
	names := make([]string, BatchSize+5)
	for i := range names {
		names[i] = "pkg" + string(rune('a'+i%26))
	}
	f := &fakeBatchFetcher{fail: map[int]bool{0: true}}
	result := BatchFetchMetadata(context.Background(), f, names, nil)

	assert.Len(t, result, 5)
}

type fakeMaintainerFetcher struct {
	mu    sync.Mutex
	calls int32
	fail  map[string]bool
}

func (f *fakeMaintainerFetcher) FetchMaintainerPackages(ctx context.Context, maintainer string) ([]aurctx.Metadata, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fail[maintainer] {
		return nil, errors.New("boom")
	}
	return []aurctx.Metadata{{Name: maintainer + "-pkg", Maintainer: maintainer}}, nil
}

func TestPrefetchMaintainerPackages_DedupesAndFansOut(t *testing.T) {
	metadata := map[string]aurctx.Metadata{
		"a": {Name: "a", Maintainer: "alice"},
		"b": {Name: "b", Maintainer: "alice"},
		"c": {Name: "c", Maintainer: "bob"},
		"d": {Name: "d"}, // no maintainer
	}
	f := &fakeMaintainerFetcher{}
	result := PrefetchMaintainerPackages(context.Background(), f, metadata, nil)

	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
	assert.Len(t, result, 2)
	assert.Contains(t, result, "alice")
	assert.Contains(t, result, "bob")
}

func TestPrefetchMaintainerPackages_SkipsFailedMaintainer(t *testing.T) {
	metadata := map[string]aurctx.Metadata{
		"a": {Name: "a", Maintainer: "alice"},
	}
	f := &fakeMaintainerFetcher{fail: map[string]bool{"alice": true}}
	result := PrefetchMaintainerPackages(context.Background(), f, metadata, nil)
	assert.Empty(t, result)
}

type fakeContextBuilder struct {
	mu        sync.Mutex
	attempts  int
	failUntil int
}

func (f *fakeContextBuilder) BuildContextPrefetched(ctx context.Context, name string, metadata *aurctx.Metadata, maintainerPackages []aurctx.Metadata) (*aurctx.PackageContext, error) {
	f.mu.Lock()
	f.attempts++
	attempt := f.attempts
	f.mu.Unlock()

	if attempt <= f.failUntil {
		return nil, errors.New("clone failed")
	}
	return &aurctx.PackageContext{Name: name}, nil
}

func TestCloneWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	restoreSleep := stubSleep(t)
	defer restoreSleep()

	builder := &fakeContextBuilder{failUntil: 1}
	pc, err := CloneWithRetry(context.Background(), builder, "foo", &aurctx.Metadata{Name: "foo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "foo", pc.Name)
	assert.Equal(t, 2, builder.attempts)
}

func TestCloneWithRetry_SurfacesErrorAfterMaxRetries(t *testing.T) {
	restoreSleep := stubSleep(t)
	defer restoreSleep()

	builder := &fakeContextBuilder{failUntil: MaxRetries}
	_, err := CloneWithRetry(context.Background(), builder, "foo", &aurctx.Metadata{Name: "foo"}, nil)
	require.Error(t, err)
	assert.Equal(t, MaxRetries, builder.attempts)
}

func stubSleep(t *testing.T) func() {
	t.Helper()
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	return func() { sleep = orig }
}
