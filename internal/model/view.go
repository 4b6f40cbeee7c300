package model

import "time"

// Section is the dashboard area a card lives in.
type Section string

const (
	SectionLive Section = "live"
	SectionAll  Section = "all"
)

// ViewEntry is the per-model join of Model + latest status + running
// session, computed once per refresh cycle. Derived, never persisted.
type ViewEntry struct {
	Username        string    `json:"username"`
	IsOnline        bool      `json:"isOnline"`
	Viewers         int       `json:"viewers"`
	Thumbnail       string    `json:"thumbnail"`
	RecordingsCount int       `json:"recordingsCount"`
	Recording       bool      `json:"recording"`
	SessionID       string    `json:"sessionId,omitempty"`
	PlaybackURL     string    `json:"playbackUrl,omitempty"`
	AutoRecord      bool      `json:"autoRecord"`
	// LastActivity is the ordering tie-break: session start when
	// recording, otherwise when the model was added.
	LastActivity time.Time `json:"lastActivity"`
}

// IsLive reports whether the card belongs in the Live section.
func (e *ViewEntry) IsLive() bool {
	return e.Recording || e.IsOnline
}

// Section returns the section derived from liveness. Exactly one section
// per username per cycle.
func (e *ViewEntry) Section() Section {
	if e.IsLive() {
		return SectionLive
	}
	return SectionAll
}

// ViewModel is the normalized projection of one refresh cycle, keyed by
// username, with deterministic entry order (recording, then online, then
// offline; ties by LastActivity desc, then username asc).
type ViewModel struct {
	Entries     []ViewEntry `json:"entries"`
	Stale       bool        `json:"stale"`
	RefreshedAt time.Time   `json:"refreshedAt"`

	byUsername map[string]int
}

// NewViewModel builds a ViewModel over already-ordered entries.
func NewViewModel(entries []ViewEntry, stale bool, refreshedAt time.Time) *ViewModel {
	vm := &ViewModel{Entries: entries, Stale: stale, RefreshedAt: refreshedAt}
	vm.reindex()
	return vm
}

// EmptyViewModel is the "no models" result; upstream renders an empty
// state, never an error.
func EmptyViewModel(stale bool) *ViewModel {
	return NewViewModel(nil, stale, time.Now())
}

func (vm *ViewModel) reindex() {
	vm.byUsername = make(map[string]int, len(vm.Entries))
	for i := range vm.Entries {
		vm.byUsername[vm.Entries[i].Username] = i
	}
}

// Lookup returns the entry for a username, if present.
func (vm *ViewModel) Lookup(username string) (*ViewEntry, bool) {
	if vm == nil || vm.byUsername == nil {
		return nil, false
	}
	i, ok := vm.byUsername[Key(username)]
	if !ok {
		return nil, false
	}
	return &vm.Entries[i], true
}

// Usernames returns usernames in render order.
func (vm *ViewModel) Usernames() []string {
	out := make([]string, len(vm.Entries))
	for i := range vm.Entries {
		out[i] = vm.Entries[i].Username
	}
	return out
}
