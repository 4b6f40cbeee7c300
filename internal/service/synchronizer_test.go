package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/cache"
	"github.com/raccommode/P-StreamRec/internal/errs"
	"github.com/raccommode/P-StreamRec/internal/model"
)

func newTestSynchronizer(gw *fakeGateway) (*Synchronizer, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	c := cache.New(store, cache.DefaultTTLs())
	return NewSynchronizer(c, gw, zap.NewNop()), store
}

// threeModelSnapshot is the canonical fixture: alice online, bob offline,
// carol recording.
func threeModelSnapshot(base time.Time) *model.DashboardSnapshot {
	return &model.DashboardSnapshot{
		Models: []model.SnapshotModel{
			{Model: model.Model{Username: "alice", AddedAt: base.Add(-time.Hour)}, IsOnline: true, Viewers: 12},
			{Model: model.Model{Username: "bob", AddedAt: base.Add(-2 * time.Hour)}},
			{Model: model.Model{Username: "carol", AddedAt: base.Add(-3 * time.Hour)}, IsOnline: true, Viewers: 40, RecordingsCount: 2},
		},
		Sessions: []model.RecordingSession{
			{ID: "s-carol", Person: "carol", Running: true, CreatedAt: base.Add(-10 * time.Minute)},
		},
	}
}

func TestRefresh_OrderingAndSections(t *testing.T) {
	gw := newFakeGateway()
	gw.snapshot = threeModelSnapshot(time.Now())
	syncer, _ := newTestSynchronizer(gw)

	vm := syncer.Refresh(context.Background())
	require.NotNil(t, vm)
	assert.False(t, vm.Stale)
	assert.Equal(t, []string{"carol", "alice", "bob"}, vm.Usernames(),
		"recording first, then online, then offline")

	carol, ok := vm.Lookup("carol")
	require.True(t, ok)
	assert.True(t, carol.Recording)
	assert.Equal(t, model.SectionLive, carol.Section())
	assert.Equal(t, "s-carol", carol.SessionID)

	alice, ok := vm.Lookup("alice")
	require.True(t, ok)
	assert.False(t, alice.Recording)
	assert.True(t, alice.IsOnline)
	assert.Equal(t, model.SectionLive, alice.Section())

	bob, ok := vm.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, model.SectionAll, bob.Section())
	assert.False(t, bob.IsLive())
}

func TestRefresh_OrderingIsDeterministic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &model.DashboardSnapshot{
		Models: []model.SnapshotModel{
			{Model: model.Model{Username: "zoe", AddedAt: base}, IsOnline: true},
			{Model: model.Model{Username: "amy", AddedAt: base}, IsOnline: true},
			{Model: model.Model{Username: "eve", AddedAt: base.Add(time.Minute)}, IsOnline: true},
		},
	}

	var first []string
	for i := 0; i < 5; i++ {
		gw := newFakeGateway()
		gw.snapshot = snap
		syncer, _ := newTestSynchronizer(gw)
		got := syncer.Refresh(context.Background()).Usernames()
		if first == nil {
			first = got
			// eve has the most recent activity; amy/zoe tie broken by name.
			assert.Equal(t, []string{"eve", "amy", "zoe"}, first)
			continue
		}
		assert.Equal(t, first, got, "identical inputs must yield identical order")
	}
}

func TestRefresh_AtMostOneRunningSessionJoined(t *testing.T) {
	gw := newFakeGateway()
	base := time.Now()
	gw.snapshot = &model.DashboardSnapshot{
		Models: []model.SnapshotModel{
			{Model: model.Model{Username: "carol", AddedAt: base}},
		},
		Sessions: []model.RecordingSession{
			{ID: "s1", Person: "carol", Running: true, CreatedAt: base.Add(-time.Minute)},
			{ID: "s2", Person: "carol", Running: true, CreatedAt: base},
			{ID: "s3", Person: "carol", Running: false},
		},
	}
	syncer, _ := newTestSynchronizer(gw)

	vm := syncer.Refresh(context.Background())
	carol, ok := vm.Lookup("carol")
	require.True(t, ok)
	assert.True(t, carol.Recording)
	assert.Equal(t, "s1", carol.SessionID, "first running session wins, duplicates ignored")
}

func TestRefresh_MissingStatusDefaults(t *testing.T) {
	gw := newFakeGateway()
	gw.snapshot = &model.DashboardSnapshot{
		Models: []model.SnapshotModel{
			{Model: model.Model{Username: "dana", AddedAt: time.Now()}, Viewers: -3},
		},
	}
	syncer, _ := newTestSynchronizer(gw)

	vm := syncer.Refresh(context.Background())
	dana, ok := vm.Lookup("dana")
	require.True(t, ok)
	assert.False(t, dana.IsOnline)
	assert.Equal(t, 0, dana.Viewers, "viewers are clamped non-negative")
}

func TestRefresh_ServesFreshCacheWithoutNetwork(t *testing.T) {
	gw := newFakeGateway()
	gw.snapshot = threeModelSnapshot(time.Now())
	syncer, _ := newTestSynchronizer(gw)

	syncer.Refresh(context.Background())
	syncer.Refresh(context.Background())
	assert.Equal(t, 1, gw.dashboardCalls,
		"second refresh inside the snapshot TTL must be answered from cache")
}

func TestRefresh_NetworkFailureFallsBackToStaleCache(t *testing.T) {
	gw := newFakeGateway()
	gw.snapshot = threeModelSnapshot(time.Now())
	syncer, store := newTestSynchronizer(gw)

	first := syncer.Refresh(context.Background())
	require.False(t, first.Stale)

	// Age the cached snapshot past its 60s TTL, then cut the network.
	entry, ok := store.Load("snapshot:dashboard")
	require.True(t, ok)
	entry.StoredAt = entry.StoredAt.Add(-2 * time.Minute)
	store.Save("snapshot:dashboard", entry)
	gw.snapshotErr = errs.ErrBackendUnavailable

	vm := syncer.Refresh(context.Background())
	require.NotNil(t, vm)
	assert.True(t, vm.Stale, "fallback result must be marked stale")
	assert.Equal(t, first.Usernames(), vm.Usernames(),
		"stale fallback serves the last cached snapshot unchanged")
}

func TestRefresh_NetworkFailureWithoutCacheIsEmptyNotError(t *testing.T) {
	gw := newFakeGateway()
	gw.snapshotErr = errs.ErrBackendUnavailable
	syncer, _ := newTestSynchronizer(gw)

	vm := syncer.Refresh(context.Background())
	require.NotNil(t, vm, "refresh never returns nil")
	assert.True(t, vm.Stale)
	assert.Empty(t, vm.Entries)
}

func TestModels_ReadThroughCache(t *testing.T) {
	gw := newFakeGateway()
	gw.models = []model.Model{{Username: "alice"}, {Username: "bob"}}
	syncer, _ := newTestSynchronizer(gw)

	first, err := syncer.Models(context.Background())
	require.NoError(t, err)
	second, err := syncer.Models(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.listCalls, "model list is served from the 5m class after the first fetch")
}

func TestModelStatus_BypassSkipsCacheButWarmsIt(t *testing.T) {
	gw := newFakeGateway()
	gw.statuses["alice"] = model.ModelStatus{Username: "alice", IsOnline: true, Viewers: 5}
	syncer, _ := newTestSynchronizer(gw)

	// Bypass goes to the backend even with a warm cache.
	_, err := syncer.ModelStatus(context.Background(), "alice", true)
	require.NoError(t, err)
	_, err = syncer.ModelStatus(context.Background(), "alice", true)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.statusCalls["alice"])

	// The bypass wrote through, so a cached read is free.
	st, err := syncer.ModelStatus(context.Background(), "alice", false)
	require.NoError(t, err)
	assert.True(t, st.IsOnline)
	assert.Equal(t, 2, gw.statusCalls["alice"])
}

func TestInvalidateAfterMutation(t *testing.T) {
	gw := newFakeGateway()
	gw.snapshot = threeModelSnapshot(time.Now())
	gw.models = []model.Model{{Username: "alice"}}
	syncer, _ := newTestSynchronizer(gw)

	syncer.Refresh(context.Background())
	_, err := syncer.Models(context.Background())
	require.NoError(t, err)

	syncer.InvalidateAfterMutation()

	syncer.Refresh(context.Background())
	_, err = syncer.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.dashboardCalls)
	assert.Equal(t, 2, gw.listCalls)
}
