package models

import (
	"encoding/json"
	"time"
)

// Optional is a tri-state JSON field for partial updates: absent (leave the
// stored value alone), explicit null (clear the override back to computed),
// or a value.
type Optional[T any] struct {
	Set   bool // field was present in the patch body
	Valid bool // field carried a non-null value
	Value T
}

// UnmarshalJSON is only invoked for fields present in the body, so Set is
// always true here; absent fields keep the zero Optional.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// MarshalJSON round-trips the tri-state: null when set without a value.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// StatusPatch is a user-authored partial override of one item's status.
// Absent fields are untouched; explicit nulls clear the override.
type StatusPatch struct {
	Condition      Optional[string]    `json:"condition"`
	Recommendation Optional[string]    `json:"recommendation"`
	InstalledAt    Optional[time.Time] `json:"installed_at"`
	PurchaseDate   Optional[time.Time] `json:"purchase_date"`
	Notes          Optional[string]    `json:"notes"`
	IsPinned       Optional[bool]      `json:"is_pinned"`
	IsHidden       Optional[bool]      `json:"is_hidden"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p *StatusPatch) IsEmpty() bool {
	return !p.Condition.Set && !p.Recommendation.Set && !p.InstalledAt.Set &&
		!p.PurchaseDate.Set && !p.Notes.Set && !p.IsPinned.Set && !p.IsHidden.Set
}

// IsValidCondition reports whether s is a known condition value.
func IsValidCondition(s string) bool {
	switch s {
	case ConditionGood, ConditionMonitor, ConditionActionNeeded:
		return true
	}
	return false
}

// IsValidRecommendation reports whether s is a known recommendation value.
func IsValidRecommendation(s string) bool {
	switch s {
	case RecommendationOK, RecommendationRepair, RecommendationReplaceSoon:
		return true
	}
	return false
}
