package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/model"
)

// Engine drives the refresh cycle: synchronize, diff against the last
// rendered ViewModel, hand the patches to the renderer, swap state. The
// swap happens under one lock so no reader ever sees a half-updated cycle.
type Engine struct {
	syncer   *Synchronizer
	renderer Renderer
	log      *zap.Logger

	mu           sync.RWMutex
	lastRendered *model.ViewModel
}

// NewEngine wires the synchronizer to a renderer.
func NewEngine(syncer *Synchronizer, renderer Renderer, log *zap.Logger) *Engine {
	return &Engine{syncer: syncer, renderer: renderer, log: log}
}

// Current returns the last rendered ViewModel (nil before the first cycle).
func (e *Engine) Current() *model.ViewModel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRendered
}

// SnapshotPatches returns the full current card set as create patches,
// for renderers that connect mid-stream.
func (e *Engine) SnapshotPatches() []model.Patch {
	return SnapshotPatches(e.Current())
}

// RefreshOnce runs one full cycle and returns the emitted patches.
// Diff, publish and swap stay under one lock: concurrent refreshes
// (ticker vs handler-triggered) must deliver batches to the renderer in
// the same order the state swaps happen, or the renderer ends up on an
// older cycle than lastRendered.
func (e *Engine) RefreshOnce(ctx context.Context) []model.Patch {
	next := e.syncer.Refresh(ctx)

	e.mu.Lock()
	patches := Diff(e.lastRendered, next)
	if len(patches) > 0 {
		e.renderer.Apply(patches)
	}
	e.lastRendered = next
	e.mu.Unlock()
	e.log.Debug("refresh cycle complete",
		zap.Int("entries", len(next.Entries)),
		zap.Int("patches", len(patches)),
		zap.Bool("stale", next.Stale))
	return patches
}

// Run renders immediately and then on every tick until ctx is cancelled.
// A cycle still in flight when the next tick fires is not cancelled;
// snapshots are idempotent, so last write wins.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	e.RefreshOnce(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RefreshOnce(ctx)
		}
	}
}
