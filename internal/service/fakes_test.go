package service

import (
	"context"
	"sync"

	"github.com/raccommode/P-StreamRec/internal/model"
)

// fakeGateway is an in-memory backend.Gateway with call accounting. The
// auto-record fan-out hits it concurrently, so everything is locked.
type fakeGateway struct {
	mu sync.Mutex

	snapshot    *model.DashboardSnapshot
	snapshotErr error
	models      []model.Model
	modelsErr   error
	sessions    []model.RecordingSession
	sessionsErr error
	statuses    map[string]model.ModelStatus
	statusErr   map[string]error
	startErr    map[string]error
	addErr      error

	dashboardCalls int
	listCalls      int
	statusCalls    map[string]int
	startCalls     []string
	addCalls       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		statuses:    make(map[string]model.ModelStatus),
		statusErr:   make(map[string]error),
		startErr:    make(map[string]error),
		statusCalls: make(map[string]int),
	}
}

func (f *fakeGateway) ListModels(ctx context.Context) ([]model.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.modelsErr != nil {
		return nil, f.modelsErr
	}
	return f.models, nil
}

func (f *fakeGateway) FetchDashboard(ctx context.Context) (*model.DashboardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboardCalls++
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeGateway) FetchActiveSessions(ctx context.Context) ([]model.RecordingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return f.sessions, nil
}

func (f *fakeGateway) FetchModelStatus(ctx context.Context, username string) (*model.ModelStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls[username]++
	if err, ok := f.statusErr[username]; ok {
		return nil, err
	}
	st, ok := f.statuses[username]
	if !ok {
		st = model.ModelStatus{Username: username}
	}
	return &st, nil
}

func (f *fakeGateway) StartSession(ctx context.Context, username string) (*model.RecordingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls = append(f.startCalls, username)
	if err, ok := f.startErr[username]; ok {
		return nil, err
	}
	return &model.RecordingSession{ID: "sess-" + username, Person: username, Running: true}, nil
}

func (f *fakeGateway) StopSession(ctx context.Context, id string) error { return nil }

func (f *fakeGateway) AddModel(ctx context.Context, req model.AddModelRequest) (*model.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &model.Model{Username: req.Username, AddedAt: req.AddedAt}, nil
}

func (f *fakeGateway) startedFor(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.startCalls {
		if u == username {
			n++
		}
	}
	return n
}

// fakeRenderer collects applied batches.
type fakeRenderer struct {
	mu      sync.Mutex
	batches [][]model.Patch
}

func (r *fakeRenderer) Apply(patches []model.Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]model.Patch, len(patches))
	copy(cp, patches)
	r.batches = append(r.batches, cp)
}

func (r *fakeRenderer) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// cardState is the observable state of one rendered card.
type cardState struct {
	section model.Section
	badges  model.BadgeState
	filter  model.ThumbnailFilter
}

// rendererState is a minimal patch-applying renderer used to verify the
// round-trip law: state(prev) + Diff(prev, next) == state(next).
type rendererState struct {
	cards map[string]*cardState
}

func newRendererState(vm *model.ViewModel) *rendererState {
	rs := &rendererState{cards: make(map[string]*cardState)}
	if vm != nil {
		rs.apply(SnapshotPatches(vm))
	}
	return rs
}

func (rs *rendererState) apply(patches []model.Patch) {
	for _, p := range patches {
		switch p.Op {
		case model.PatchCreate:
			// Idempotent: a create for an existing card resets it.
			e := p.Initial
			filter := model.FilterGrayscale
			if e.IsLive() {
				filter = model.FilterColor
			}
			rs.cards[p.Username] = &cardState{
				section: e.Section(),
				badges: model.BadgeState{
					Recording:       e.Recording,
					Live:            e.IsLive(),
					Viewers:         e.Viewers,
					RecordingsCount: e.RecordingsCount,
				},
				filter: filter,
			}
		case model.PatchRemove:
			delete(rs.cards, p.Username)
		case model.PatchMoveSection:
			if c, ok := rs.cards[p.Username]; ok {
				c.section = p.To
			}
		case model.PatchUpdateBadges:
			if c, ok := rs.cards[p.Username]; ok {
				c.badges = *p.Badges
			}
		case model.PatchUpdateThumbnail:
			if c, ok := rs.cards[p.Username]; ok {
				c.filter = p.Thumb.Filter
			}
		}
	}
}
