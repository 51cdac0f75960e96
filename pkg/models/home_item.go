package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind tags which upstream catalog backs a home item.
// Exactly one of PossessionID / AssetID is set, matching the kind.
const (
	ItemKindPossession = "possession"
	ItemKindAsset      = "asset"
)

// Condition is the coarse health signal shown on the board.
const (
	ConditionGood         = "good"
	ConditionMonitor      = "monitor"
	ConditionActionNeeded = "action_needed"
)

// Recommendation is the suggested next step derived alongside the condition.
const (
	RecommendationOK          = "ok"
	RecommendationRepair      = "repair"
	RecommendationReplaceSoon = "replace_soon"
)

// Reason codes emitted by the inference engine, in rule order.
const (
	ReasonMissingInstallDate = "MISSING_INSTALL_DATE"
	ReasonOverdueMaintenance = "OVERDUE_MAINTENANCE"
	ReasonWarrantyExpiredEOL = "WARRANTY_EXPIRED_EOL"
	ReasonPastEOL            = "PAST_EOL"
	ReasonNearingEOL         = "NEARING_EOL"
	ReasonWarrantyExpiring   = "WARRANTY_EXPIRING"
	ReasonAllClear           = "ALL_CLEAR"
)

// Event types recorded in the home item audit trail.
const (
	EventComputedUpdate = "computed_update"
	EventUserOverride   = "user_override"
	EventPin            = "pin"
	EventUnpin          = "unpin"
	EventHide           = "hide"
	EventUnhide         = "unhide"
)

// HomeItem is the unified registry row for one tracked physical thing on a
// property: either a cataloged possession or a building-system asset.
// Stored in home_items table.
type HomeItem struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	Kind       string    `json:"kind"` // 'possession' or 'asset'

	// Backing reference; exactly one is non-nil, matching Kind.
	PossessionID *uuid.UUID `json:"possession_id,omitempty"`
	AssetID      *uuid.UUID `json:"asset_id,omitempty"`

	CategoryKey         string     `json:"category_key"`
	RoomID              *uuid.UUID `json:"room_id,omitempty"`
	DisplayNameOverride *string    `json:"display_name_override,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reason is one entry of the ordered explanation attached to a computed status.
type Reason struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// HomeItemStatus is the mutable health record attached 1:1 to a HomeItem.
// Computed fields are engine-owned; override fields are user-owned and win
// wherever status is surfaced. Stored in home_item_status table.
type HomeItemStatus struct {
	ID         uuid.UUID `json:"id"`
	HomeItemID uuid.UUID `json:"home_item_id"`

	ComputedCondition      string    `json:"computed_condition"`
	ComputedRecommendation string    `json:"computed_recommendation"`
	ComputedReasons        []Reason  `json:"computed_reasons"`
	ComputedAt             time.Time `json:"computed_at"`

	OverrideCondition      *string    `json:"override_condition,omitempty"`
	OverrideRecommendation *string    `json:"override_recommendation,omitempty"`
	OverrideInstalledAt    *time.Time `json:"override_installed_at,omitempty"`
	OverridePurchaseDate   *time.Time `json:"override_purchase_date,omitempty"`
	OverrideNotes          *string    `json:"override_notes,omitempty"`
	IsPinned               bool       `json:"is_pinned"`
	IsHidden               bool       `json:"is_hidden"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveCondition returns the override condition when set, else the
// computed one. Every consumer (filtering, sorting, display, summary counts)
// must go through this helper rather than re-deriving precedence.
func (s *HomeItemStatus) EffectiveCondition() string {
	if s.OverrideCondition != nil {
		return *s.OverrideCondition
	}
	return s.ComputedCondition
}

// EffectiveRecommendation returns the override recommendation when set, else
// the computed one.
func (s *HomeItemStatus) EffectiveRecommendation() string {
	if s.OverrideRecommendation != nil {
		return *s.OverrideRecommendation
	}
	return s.ComputedRecommendation
}

// ConditionSeverity ranks conditions for sorting, most urgent first.
// Unknown conditions sort last.
func ConditionSeverity(condition string) int {
	switch condition {
	case ConditionActionNeeded:
		return 0
	case ConditionMonitor:
		return 1
	case ConditionGood:
		return 2
	default:
		return 3
	}
}

// HomeItemEvent is one append-only audit record for a home item.
// UserID is nil for system-generated events (computed updates).
// Stored in home_item_events table.
type HomeItemEvent struct {
	ID         uuid.UUID      `json:"id"`
	HomeItemID uuid.UUID      `json:"home_item_id"`
	UserID     *uuid.UUID     `json:"user_id,omitempty"`
	EventType  string         `json:"event_type"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
