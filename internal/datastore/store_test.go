package datastore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lungcheck/internal/conf"
	"github.com/tphakala/lungcheck/internal/errors"
	"github.com/tphakala/lungcheck/internal/observability/metrics"
)

func memorySettings() *conf.Settings {
	return &conf.Settings{Database: conf.DatabaseSettings{
		Type: conf.DatabaseSQLite,
		Path: ":memory:",
	}}
}

// fixedClock returns base, base+1s, base+2s, ... on successive calls.
func fixedClock(base time.Time) Clock {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := base.Add(time.Duration(n) * time.Second)
		n++
		return t
	}
}

func openMemory(t *testing.T, opts ...Option) *GormStore {
	t.Helper()
	store, err := Open(memorySettings(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAssignsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openMemory(t, WithClock(fixedClock(base)))
	ctx := context.Background()

	rec, err := store.Append(ctx, "chest.png", LabelPneumonia, 0.9975)
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.Equal(t, "chest.png", rec.Filename)
	assert.Equal(t, LabelPneumonia, rec.Label)
	assert.InDelta(t, 0.9975, rec.Confidence, 0)
	assert.True(t, rec.CreatedAt.Equal(base))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAppendRejectsUnknownLabel(t *testing.T) {
	t.Parallel()

	store := openMemory(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "x.png", "MAYBE", 0.5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInvalidArgument))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected append must not write")
}

func TestHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openMemory(t, WithClock(fixedClock(base)))
	ctx := context.Background()

	for i := range 5 {
		_, err := store.Append(ctx, fmt.Sprintf("img-%d.png", i), LabelNormal, 0.6)
		require.NoError(t, err)
	}

	got, err := store.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "img-4.png", got[0].Filename)
	assert.Equal(t, "img-3.png", got[1].Filename)
	assert.Equal(t, "img-2.png", got[2].Filename)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].CreatedAt.After(got[i-1].CreatedAt))
	}
}

func TestHistoryTiesBrokenByID(t *testing.T) {
	t.Parallel()

	same := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openMemory(t, WithClock(func() time.Time { return same }))
	ctx := context.Background()

	first, err := store.Append(ctx, "a.png", LabelNormal, 0.51)
	require.NoError(t, err)
	second, err := store.Append(ctx, "b.png", LabelPneumonia, 0.8)
	require.NoError(t, err)

	got, err := store.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestHistoryLimitBounds(t *testing.T) {
	t.Parallel()

	store := openMemory(t)
	ctx := context.Background()

	for range 3 {
		_, err := store.Append(ctx, "x.png", LabelNormal, 0.7)
		require.NoError(t, err)
	}

	zero, err := store.History(ctx, 0)
	require.NoError(t, err)
	assert.NotNil(t, zero)
	assert.Empty(t, zero)

	all, err := store.History(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, all, 3, "limit above row count returns everything")

	_, err = store.History(ctx, -1)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInvalidArgument))
}

func TestHistoryEmptyStore(t *testing.T) {
	t.Parallel()

	store := openMemory(t)
	got, err := store.History(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConcurrentAppends(t *testing.T) {
	t.Parallel()

	store := openMemory(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	ids := make(chan uint, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := store.Append(ctx, fmt.Sprintf("w%d.png", i), LabelPneumonia, 0.9)
			assert.NoError(t, err)
			ids <- rec.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uint]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), n)
}

func TestAppendAfterCloseIsPersistenceError(t *testing.T) {
	t.Parallel()

	store, err := Open(memorySettings())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")

	_, err = store.Append(context.Background(), "late.png", LabelNormal, 0.5)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPersistence))
}

func TestFileDatabasePersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{Database: conf.DatabaseSettings{
		Type: conf.DatabaseSQLite,
		Path: filepath.Join(t.TempDir(), "nested", "lungcheck.db"),
	}}
	ctx := context.Background()

	store, err := Open(settings)
	require.NoError(t, err)
	_, err = store.Append(ctx, "kept.png", LabelNormal, 0.66)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(settings)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept.png", got[0].Filename)
}

func TestPingAndMetrics(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	store := openMemory(t, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	_, err = store.Append(ctx, "m.png", LabelNormal, 0.55)
	require.NoError(t, err)
	_, err = store.History(ctx, 5)
	require.NoError(t, err)

	assert.Positive(t, testutil.CollectAndCount(m, "lungcheck_db_operations_total"))
}

func TestOpenRejectsMissingDSN(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{conf.DatabaseMySQL, conf.DatabasePostgres} {
		_, err := Open(&conf.Settings{Database: conf.DatabaseSettings{Type: backend}})
		require.Error(t, err, backend)
		assert.True(t, errors.IsCategory(err, errors.CategoryDatabase), backend)
	}

	_, err := Open(&conf.Settings{Database: conf.DatabaseSettings{Type: "oracle"}})
	require.Error(t, err)
}

func TestValidLabel(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidLabel(LabelNormal))
	assert.True(t, ValidLabel(LabelPneumonia))
	assert.False(t, ValidLabel("normal"))
	assert.False(t, ValidLabel(""))
}
