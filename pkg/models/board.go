package models

import "github.com/google/uuid"

// GroupBy dimensions accepted by the board query.
const (
	GroupByCondition = "condition"
	GroupByCategory  = "category"
	GroupByRoom      = "room"
)

// GroupNoRoom is the bucket name for items without a room when grouping by room.
const GroupNoRoom = "unassigned"

// Board query paging bounds.
const (
	BoardDefaultLimit = 50
	BoardMaxLimit     = 100
)

// BoardQuery carries the filter/sort/paging parameters for one board read.
// Validation (types, bounds) happens at the handler; this layer assumes a
// well-formed query.
type BoardQuery struct {
	Search        string `json:"q,omitempty"`
	GroupBy       string `json:"group_by,omitempty"`
	Condition     string `json:"condition,omitempty"`
	CategoryKey   string `json:"category,omitempty"`
	PinnedOnly    bool   `json:"pinned_only,omitempty"`
	IncludeHidden bool   `json:"include_hidden,omitempty"`
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
}

// BoardLinks are deep links to related views, built purely from IDs already
// on the row.
type BoardLinks struct {
	PossessionDetail string `json:"possession_detail,omitempty"`
	ReplaceRepair    string `json:"replace_repair,omitempty"`
	AssetDetail      string `json:"asset_detail,omitempty"`
	RoomDetail       string `json:"room_detail,omitempty"`
	RiskAssessment   string `json:"risk_assessment"`
	MaintenanceList  string `json:"maintenance_list"`
	WarrantyList     string `json:"warranty_list"`
}

// BoardRow is one presentation-ready item on the status board.
type BoardRow struct {
	ID          uuid.UUID  `json:"id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	Kind        string     `json:"kind"`
	DisplayName string     `json:"display_name"`
	CategoryKey string     `json:"category_key"`
	RoomID      *uuid.UUID `json:"room_id,omitempty"`
	RoomName    string     `json:"room_name,omitempty"`

	Condition      string   `json:"condition"`
	Recommendation string   `json:"recommendation"`
	Reasons        []Reason `json:"reasons"`
	IsOverridden   bool     `json:"is_overridden"`
	IsPinned       bool     `json:"is_pinned"`
	IsHidden       bool     `json:"is_hidden"`
	Notes          *string  `json:"notes,omitempty"`

	AgeYears *float64 `json:"age_years,omitempty"`

	Warranty      WarrantySummary `json:"warranty"`
	OpenTaskCount int             `json:"open_task_count"`

	// True when the item reads all-clear but no install date is known: an
	// under-informed good, not a verified one.
	NeedsInstallDateForPrediction bool `json:"needs_install_date_for_prediction"`

	Links BoardLinks `json:"links"`
}

// BoardSummary counts effective conditions over the returned page. Items
// flagged NeedsInstallDateForPrediction are excluded from Good.
type BoardSummary struct {
	Good         int `json:"good"`
	Monitor      int `json:"monitor"`
	ActionNeeded int `json:"action_needed"`
	Total        int `json:"total"`
}

// BoardPage is the full board payload for one query.
type BoardPage struct {
	Items   []*BoardRow            `json:"items"`
	Groups  map[string][]*BoardRow `json:"groups,omitempty"`
	Summary BoardSummary           `json:"summary"`
	Page    int                    `json:"page"`
	Limit   int                    `json:"limit"`
	Total   int                    `json:"total"`
}
