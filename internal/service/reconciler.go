package service

import (
	"github.com/google/uuid"

	"github.com/raccommode/P-StreamRec/internal/model"
)

// Diff computes the minimal ordered patch list that mutates the card set
// rendered from prev into next. It is a pure data transform: no I/O, no
// renderer assumptions. Patch order is removals, moves, updates, creates,
// so a renderer applying them sequentially never has to special-case
// element existence.
func Diff(prev, next *model.ViewModel) []model.Patch {
	if next == nil {
		return nil
	}
	var removals, moves, updates, creates []model.Patch

	if prev != nil {
		for i := range prev.Entries {
			old := &prev.Entries[i]
			if _, ok := next.Lookup(old.Username); !ok {
				removals = append(removals, model.Patch{
					Op:       model.PatchRemove,
					Username: old.Username,
				})
			}
		}
	}

	for i := range next.Entries {
		e := &next.Entries[i]
		var old *model.ViewEntry
		if prev != nil {
			old, _ = prev.Lookup(e.Username)
		}
		if old == nil {
			entry := *e
			creates = append(creates, model.Patch{
				Op:       model.PatchCreate,
				Username: e.Username,
				Initial:  &entry,
				Position: i,
			})
			continue
		}

		if old.Section() != e.Section() {
			moves = append(moves, model.Patch{
				Op:       model.PatchMoveSection,
				Username: e.Username,
				From:     old.Section(),
				To:       e.Section(),
			})
		}

		if b := badgeDelta(old, e); b != nil {
			updates = append(updates, model.Patch{
				Op:       model.PatchUpdateBadges,
				Username: e.Username,
				Badges:   b,
			})
		}
		if t := thumbDelta(old, e); t != nil {
			updates = append(updates, model.Patch{
				Op:       model.PatchUpdateThumbnail,
				Username: e.Username,
				Thumb:    t,
			})
		}
	}

	out := make([]model.Patch, 0, len(removals)+len(moves)+len(updates)+len(creates))
	out = append(out, removals...)
	out = append(out, moves...)
	out = append(out, updates...)
	out = append(out, creates...)
	return out
}

// badgeDelta returns the new badge state iff any badge-relevant field
// changed. Value-equality gating is the whole point: cards keep their
// rendered state (scroll, in-flight image loads) across unchanged polls.
func badgeDelta(old, cur *model.ViewEntry) *model.BadgeState {
	prev := badgeState(old)
	next := badgeState(cur)
	if prev == next {
		return nil
	}
	return &next
}

func badgeState(e *model.ViewEntry) model.BadgeState {
	return model.BadgeState{
		Recording:       e.Recording,
		Live:            e.IsLive(),
		Viewers:         e.Viewers,
		RecordingsCount: e.RecordingsCount,
	}
}

// thumbDelta emits a thumbnail patch only when liveness flipped. The
// cache-busting refresh token is issued solely on the transition into the
// Live section; while already live (or offline) the renderer keeps its
// current image to avoid redundant refetches.
func thumbDelta(old, cur *model.ViewEntry) *model.ThumbnailState {
	wasLive, isLive := old.IsLive(), cur.IsLive()
	if wasLive == isLive {
		return nil
	}
	t := &model.ThumbnailState{Filter: model.FilterGrayscale}
	if isLive {
		t.Filter = model.FilterColor
		t.RefreshToken = uuid.NewString()
	}
	return t
}

// SnapshotPatches renders a full ViewModel as create patches, used to
// bring a freshly connected renderer up to date before incremental diffs.
func SnapshotPatches(vm *model.ViewModel) []model.Patch {
	if vm == nil {
		return nil
	}
	return Diff(nil, vm)
}
