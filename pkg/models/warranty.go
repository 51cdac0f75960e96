package models

import "time"

// Warranty status values produced by AggregateWarranty.
const (
	WarrantyNone         = "none"
	WarrantyActive       = "active"
	WarrantyExpiringSoon = "expiring_soon"
	WarrantyExpired      = "expired"
)

// WarrantyExpiringWindow is how close to expiry an active warranty must be
// before it reads as expiring_soon.
const WarrantyExpiringWindow = 60 * 24 * time.Hour

// WarrantySummary is the single warranty signal for one home item, collapsed
// from every warranty source reachable from it.
type WarrantySummary struct {
	Status     string     `json:"status"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// AggregateWarranty collapses a set of warranty expiry dates (some possibly
// unknown) into one status. Among expiries strictly in the future the soonest
// one is reported, reading expiring_soon inside the 60-day window; the user
// is warned about the coverage that runs out first. With no active coverage
// the most recent past expiry is reported as expired.
//
// An empty input yields none, but a non-empty input where every entry lacks a
// date yields expired with no date. The asymmetry is deliberate upstream
// behavior, kept as-is: warranties exist, coverage just cannot be shown.
func AggregateWarranty(now time.Time, expiries []*time.Time) WarrantySummary {
	if len(expiries) == 0 {
		return WarrantySummary{Status: WarrantyNone}
	}

	var soonestActive, latestKnown *time.Time
	for _, exp := range expiries {
		if exp == nil {
			continue
		}
		if exp.After(now) {
			if soonestActive == nil || exp.Before(*soonestActive) {
				soonestActive = exp
			}
		}
		if latestKnown == nil || exp.After(*latestKnown) {
			latestKnown = exp
		}
	}

	if soonestActive != nil {
		status := WarrantyActive
		if soonestActive.Sub(now) <= WarrantyExpiringWindow {
			status = WarrantyExpiringSoon
		}
		return WarrantySummary{Status: status, ExpiryDate: soonestActive}
	}

	return WarrantySummary{Status: WarrantyExpired, ExpiryDate: latestKnown}
}
