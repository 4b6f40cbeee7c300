package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/backend"
	"github.com/raccommode/P-StreamRec/internal/cache"
	"github.com/raccommode/P-StreamRec/internal/model"
)

const (
	snapshotKey  = "dashboard"
	modelListKey = "all"
)

// Synchronizer produces the unified ViewModel for one refresh cycle:
// snapshot through the cache, network fallback, join and deterministic
// ordering. Refresh never fails — the contract is "always a ViewModel",
// possibly stale or empty.
type Synchronizer struct {
	cache *cache.Cache
	gw    backend.Gateway
	log   *zap.Logger
}

// NewSynchronizer creates a synchronizer over the shared cache and gateway.
func NewSynchronizer(c *cache.Cache, gw backend.Gateway, log *zap.Logger) *Synchronizer {
	return &Synchronizer{cache: c, gw: gw, log: log}
}

// Refresh returns the current ViewModel. Resolution order: fresh cached
// snapshot, then the backend, then the last cached snapshot regardless of
// age (marked stale), then an empty ViewModel. Network failure is
// recovered here and never surfaced to the caller.
func (s *Synchronizer) Refresh(ctx context.Context) *model.ViewModel {
	var snap model.DashboardSnapshot
	if s.cache.GetJSON(snapshotKey, cache.ClassSnapshot, &snap) {
		return s.build(&snap, false)
	}

	fresh, err := s.gw.FetchDashboard(ctx)
	if err == nil {
		s.cache.PutJSON(snapshotKey, cache.ClassSnapshot, fresh)
		return s.build(fresh, false)
	}
	s.log.Warn("refresh: snapshot fetch failed, falling back to cache", zap.Error(err))

	if s.cache.GetJSONStale(snapshotKey, cache.ClassSnapshot, &snap) {
		return s.build(&snap, true)
	}
	return model.EmptyViewModel(true)
}

// Models returns the tracked model list through the model-list cache
// (5 min class) with a gateway fallback.
func (s *Synchronizer) Models(ctx context.Context) ([]model.Model, error) {
	var models []model.Model
	if s.cache.GetJSON(modelListKey, cache.ClassModels, &models) {
		return models, nil
	}
	models, err := s.gw.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.PutJSON(modelListKey, cache.ClassModels, models)
	return models, nil
}

// ModelStatus returns the liveness probe for one model. With bypassCache
// the backend is always asked (the auto-record path needs a live answer);
// the result is written through either way so subsequent reads are warm.
func (s *Synchronizer) ModelStatus(ctx context.Context, username string, bypassCache bool) (*model.ModelStatus, error) {
	username = model.Key(username)
	if !bypassCache {
		var st model.ModelStatus
		if s.cache.GetJSON(username, cache.ClassStatus, &st) {
			return &st, nil
		}
	}
	st, err := s.gw.FetchModelStatus(ctx, username)
	if err != nil {
		return nil, err
	}
	s.cache.PutJSON(username, cache.ClassStatus, st)
	return st, nil
}

// InvalidateAfterMutation drops the snapshot and model-list entries after
// a user-initiated mutation (add model), forcing the next cycle to the
// backend. Same behavior as the original clearing its dashboard and
// models caches on a successful add.
func (s *Synchronizer) InvalidateAfterMutation() {
	s.cache.InvalidateClass(cache.ClassSnapshot)
	s.cache.InvalidateClass(cache.ClassModels)
}

// build normalizes a snapshot into an ordered ViewModel.
func (s *Synchronizer) build(snap *model.DashboardSnapshot, stale bool) *model.ViewModel {
	// At most one running session per person; extras violate the backend
	// invariant and are skipped.
	running := make(map[string]*model.RecordingSession, len(snap.Sessions))
	for i := range snap.Sessions {
		sess := &snap.Sessions[i]
		if !sess.Running {
			continue
		}
		person := model.Key(sess.Person)
		if _, dup := running[person]; dup {
			s.log.Warn("refresh: duplicate running session ignored",
				zap.String("person", person),
				zap.String("session_id", sess.ID))
			continue
		}
		running[person] = sess
	}

	entries := make([]model.ViewEntry, 0, len(snap.Models))
	seen := make(map[string]bool, len(snap.Models))
	for i := range snap.Models {
		m := &snap.Models[i]
		username := model.Key(m.Username)
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true

		e := model.ViewEntry{
			Username:        username,
			IsOnline:        m.IsOnline,
			Viewers:         m.Viewers,
			Thumbnail:       m.Thumbnail,
			RecordingsCount: m.RecordingsCount,
			Recording:       m.IsRecording,
			AutoRecord:      m.AutoRecord,
			LastActivity:    m.AddedAt,
		}
		if e.Viewers < 0 {
			e.Viewers = 0
		}
		if sess, ok := running[username]; ok {
			e.Recording = true
			e.SessionID = sess.ID
			e.PlaybackURL = sess.PlaybackURL
			e.LastActivity = sess.CreatedAt
		}
		entries = append(entries, e)
	}

	sortEntries(entries)
	return model.NewViewModel(entries, stale, time.Now())
}

// sortEntries applies the canonical card order: recording first, then
// online, then offline; ties by LastActivity descending, then username
// ascending. The comparator is total, so the order is deterministic.
func sortEntries(entries []model.ViewEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		ra, rb := rank(a), rank(b)
		if ra != rb {
			return ra < rb
		}
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.After(b.LastActivity)
		}
		return a.Username < b.Username
	})
}

func rank(e *model.ViewEntry) int {
	switch {
	case e.Recording:
		return 0
	case e.IsOnline:
		return 1
	default:
		return 2
	}
}
