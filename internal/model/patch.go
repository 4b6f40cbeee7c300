package model

// PatchOp enumerates the minimal card mutations the reconciler emits.
type PatchOp string

const (
	PatchCreate          PatchOp = "create"
	PatchUpdateBadges    PatchOp = "update_badges"
	PatchUpdateThumbnail PatchOp = "update_thumbnail"
	PatchMoveSection     PatchOp = "move_section"
	PatchRemove          PatchOp = "remove"
)

// ThumbnailFilter is the renderer-facing display filter for a card image.
type ThumbnailFilter string

const (
	FilterColor     ThumbnailFilter = "color"
	FilterGrayscale ThumbnailFilter = "grayscale"
)

// BadgeState is the payload of an update_badges patch.
type BadgeState struct {
	Recording       bool `json:"recording"`
	Live            bool `json:"live"`
	Viewers         int  `json:"viewers"`
	RecordingsCount int  `json:"recordingsCount"`
}

// ThumbnailState is the payload of an update_thumbnail patch.
// RefreshToken is set only on a transition into the Live section; the
// renderer appends it as a cache-busting query parameter.
type ThumbnailState struct {
	Filter       ThumbnailFilter `json:"filter"`
	RefreshToken string          `json:"refreshToken,omitempty"`
}

// Patch is one typed render instruction. Renderers apply patches in the
// given order and must treat a repeated identical patch as a no-op.
type Patch struct {
	Op       PatchOp         `json:"op"`
	Username string          `json:"username"`
	Initial  *ViewEntry      `json:"initial,omitempty"`  // create
	Badges   *BadgeState     `json:"badges,omitempty"`   // update_badges
	Thumb    *ThumbnailState `json:"thumb,omitempty"`    // update_thumbnail
	From     Section         `json:"from,omitempty"`     // move_section
	To       Section         `json:"to,omitempty"`       // move_section
	Position int             `json:"position,omitempty"` // create: index in render order
}
