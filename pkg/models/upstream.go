package models

import (
	"time"

	"github.com/google/uuid"
)

// Read-only shapes consumed from the owning catalogs. The board never writes
// these rows except for risk-inferred system assets (see SystemAsset).

// Possession is a cataloged belonging (appliance, furniture, electronics...).
type Possession struct {
	ID            uuid.UUID  `json:"id"`
	PropertyID    uuid.UUID  `json:"property_id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	RoomID        *uuid.UUID `json:"room_id,omitempty"`
	InstalledOn   *time.Time `json:"installed_on,omitempty"`
	PurchasedOn   *time.Time `json:"purchased_on,omitempty"`
	LinkedAssetID *uuid.UUID `json:"linked_asset_id,omitempty"`
}

// SystemAsset is a building-system asset (furnace, roof, water heater...).
// Risk-inferred assets are created by the reconciler with InferredFromRisk
// set and InstallationYear possibly unknown.
type SystemAsset struct {
	ID               uuid.UUID `json:"id"`
	PropertyID       uuid.UUID `json:"property_id"`
	AssetType        string    `json:"asset_type"`
	Name             string    `json:"name"`
	InstallationYear *int      `json:"installation_year,omitempty"`
	InferredFromRisk bool      `json:"inferred_from_risk"`
}

// Maintenance task priorities and the statuses that still count as open.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"

	TaskStatusOpen       = "open"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// MaintenanceTask is an open work item linked to a system asset.
type MaintenanceTask struct {
	ID          uuid.UUID  `json:"id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	AssetID     *uuid.UUID `json:"asset_id,omitempty"`
	Priority    string     `json:"priority"`
	NextDueDate *time.Time `json:"next_due_date,omitempty"`
	Status      string     `json:"status"`
}

// IsOpen reports whether the task still counts against the item.
func (t *MaintenanceTask) IsOpen() bool {
	return t.Status != TaskStatusCompleted
}

// IsOverdueUrgent reports whether the task is open, past due, and at a
// priority that forces the item into action_needed.
func (t *MaintenanceTask) IsOverdueUrgent(now time.Time) bool {
	if !t.IsOpen() || t.NextDueDate == nil {
		return false
	}
	if t.Priority != TaskPriorityHigh && t.Priority != TaskPriorityUrgent {
		return false
	}
	return t.NextDueDate.Before(now)
}

// Warranty is a single coverage record; ExpiryDate may be unknown. A
// warranty belongs to a possession or to a system asset (or floats free when
// neither link is set).
type Warranty struct {
	ID           uuid.UUID  `json:"id"`
	PropertyID   uuid.UUID  `json:"property_id"`
	Provider     string     `json:"provider"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	PossessionID *uuid.UUID `json:"possession_id,omitempty"`
	AssetID      *uuid.UUID `json:"asset_id,omitempty"`
}

// RiskFinding is one structured entry from a risk-assessment report.
// AgeYears is whatever the report carried: a number, a numeric string, or
// garbage. Malformed entries are skipped during reconciliation, never fatal.
type RiskFinding struct {
	SystemType string `json:"system_type"`
	AgeYears   any    `json:"age_years,omitempty"`
}

// RiskReport is the latest risk-assessment report for a property.
type RiskReport struct {
	ID         uuid.UUID     `json:"id"`
	PropertyID uuid.UUID     `json:"property_id"`
	Findings   []RiskFinding `json:"findings"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Room is a display-only lookup row.
type Room struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	Name       string    `json:"name"`
}

// Property is the scoping row; the board only checks existence.
type Property struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
