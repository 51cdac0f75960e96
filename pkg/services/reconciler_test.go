package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
)

func TestPlanInferredAssets_FromRiskFindings(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	propertyID := uuid.New()
	report := &models.RiskReport{
		PropertyID: propertyID,
		Findings: []models.RiskFinding{
			{SystemType: "water_heater", AgeYears: 8.0},
			{SystemType: "Roof ", AgeYears: "12"},
			{SystemType: "appliance", AgeYears: 3.0},     // appliances never become assets
			{SystemType: "hot_tub", AgeYears: 5.0},       // unbucketed type skipped
			{SystemType: "", AgeYears: 1.0},              // empty type skipped
			{SystemType: "water_heater", AgeYears: 10.0}, // duplicate skipped
		},
	}

	inferred := planInferredAssets(now, propertyID, report, nil)
	require.Len(t, inferred, 2)

	assert.Equal(t, "water_heater", inferred[0].AssetType)
	assert.Equal(t, "Water Heater", inferred[0].Name)
	assert.True(t, inferred[0].InferredFromRisk)
	require.NotNil(t, inferred[0].InstallationYear)
	assert.Equal(t, 2018, *inferred[0].InstallationYear)

	assert.Equal(t, "roof", inferred[1].AssetType)
	require.NotNil(t, inferred[1].InstallationYear)
	assert.Equal(t, 2014, *inferred[1].InstallationYear)
}

func TestPlanInferredAssets_AssignsIDsBeforeItemPlanning(t *testing.T) {
	now := time.Now()
	propertyID := uuid.New()
	report := &models.RiskReport{
		Findings: []models.RiskFinding{{SystemType: "water_heater", AgeYears: 8.0}},
	}

	inferred := planInferredAssets(now, propertyID, report, nil)
	require.Len(t, inferred, 1)
	assert.NotEqual(t, uuid.Nil, inferred[0].ID)

	// Item creations are planned over the combined asset list before any row
	// is written; they must reference the inferred asset's real ID or the
	// registry insert breaks its foreign key.
	creations := planItemCreations(propertyID, nil, inferred, nil)
	require.Len(t, creations, 1)
	require.NotNil(t, creations[0].AssetID)
	assert.Equal(t, inferred[0].ID, *creations[0].AssetID)
}

func TestPlanInferredAssets_ExistingAssetsNotDuplicated(t *testing.T) {
	now := time.Now()
	propertyID := uuid.New()
	report := &models.RiskReport{
		Findings: []models.RiskFinding{{SystemType: "furnace", AgeYears: 5.0}},
	}
	existing := []*models.SystemAsset{{ID: uuid.New(), AssetType: "furnace"}}

	assert.Empty(t, planInferredAssets(now, propertyID, report, existing))
}

func TestPlanInferredAssets_NoReport(t *testing.T) {
	assert.Nil(t, planInferredAssets(time.Now(), uuid.New(), nil, nil))
}

func TestPlanInferredAssets_ImplausibleYearDropped(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	report := &models.RiskReport{
		Findings: []models.RiskFinding{{SystemType: "foundation", AgeYears: 500.0}},
	}

	inferred := planInferredAssets(now, uuid.New(), report, nil)
	require.Len(t, inferred, 1)
	assert.Nil(t, inferred[0].InstallationYear)
}

func TestParseAgeYears(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{8.5, 8.5, true},
		{12, 12, true},
		{"15", 15, true},
		{" 3.5 ", 3.5, true},
		{"old", 0, false},
		{-2.0, 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAgeYears(tt.in)
		assert.Equal(t, tt.ok, ok, "in=%v", tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "in=%v", tt.in)
		}
	}
}

func TestPlanItemCreations_BackfillsMissingEntries(t *testing.T) {
	propertyID := uuid.New()
	roomID := uuid.New()
	tracked := &models.Possession{ID: uuid.New(), Name: "Fridge", Category: "appliance"}
	untracked := &models.Possession{ID: uuid.New(), Name: "Sofa", Category: "furniture", RoomID: &roomID}
	asset := &models.SystemAsset{ID: uuid.New(), AssetType: "water_heater"}

	trackedID := tracked.ID
	existing := []*repositories.ItemWithStatus{
		{Item: &models.HomeItem{Kind: models.ItemKindPossession, PossessionID: &trackedID}},
	}

	creations := planItemCreations(propertyID, []*models.Possession{tracked, untracked}, []*models.SystemAsset{asset}, existing)
	require.Len(t, creations, 2)

	assert.Equal(t, models.ItemKindPossession, creations[0].Kind)
	assert.Equal(t, untracked.ID, *creations[0].PossessionID)
	assert.Equal(t, "furniture", creations[0].CategoryKey)
	assert.Equal(t, &roomID, creations[0].RoomID)

	assert.Equal(t, models.ItemKindAsset, creations[1].Kind)
	assert.Equal(t, asset.ID, *creations[1].AssetID)
	assert.Equal(t, models.CategorySystems, creations[1].CategoryKey)
}

func TestPlanItemCreations_ConvergedPlansNothing(t *testing.T) {
	propertyID := uuid.New()
	possession := &models.Possession{ID: uuid.New(), Category: "appliance"}
	pid := possession.ID
	existing := []*repositories.ItemWithStatus{
		{Item: &models.HomeItem{Kind: models.ItemKindPossession, PossessionID: &pid}},
	}

	assert.Empty(t, planItemCreations(propertyID, []*models.Possession{possession}, nil, existing))
}

func TestPlanDriftUpdates(t *testing.T) {
	newRoom := uuid.New()
	possession := &models.Possession{ID: uuid.New(), Category: "electronics", RoomID: &newRoom}
	pid := possession.ID

	drifted := &models.HomeItem{
		ID:           uuid.New(),
		Kind:         models.ItemKindPossession,
		PossessionID: &pid,
		CategoryKey:  "furniture", // upstream recategorized
		RoomID:       nil,         // upstream moved it into a room
	}

	updates := planDriftUpdates(
		[]*repositories.ItemWithStatus{{Item: drifted}},
		[]*models.Possession{possession}, nil)
	require.Len(t, updates, 1)
	assert.Equal(t, drifted.ID, updates[0].ItemID)
	assert.Equal(t, "electronics", updates[0].CategoryKey)
	assert.Equal(t, &newRoom, updates[0].RoomID)
}

func TestPlanDriftUpdates_ConvergedPlansNothing(t *testing.T) {
	possession := &models.Possession{ID: uuid.New(), Category: "electronics"}
	pid := possession.ID
	item := &models.HomeItem{
		ID:           uuid.New(),
		Kind:         models.ItemKindPossession,
		PossessionID: &pid,
		CategoryKey:  "electronics",
	}

	assert.Empty(t, planDriftUpdates(
		[]*repositories.ItemWithStatus{{Item: item}},
		[]*models.Possession{possession}, nil))
}

func TestPlanDriftUpdates_OrphanedItemSkipped(t *testing.T) {
	pid := uuid.New()
	item := &models.HomeItem{
		ID:           uuid.New(),
		Kind:         models.ItemKindPossession,
		PossessionID: &pid,
		CategoryKey:  "appliance",
	}

	assert.Empty(t, planDriftUpdates([]*repositories.ItemWithStatus{{Item: item}}, nil, nil))
}

func TestDisplayNameForAssetType(t *testing.T) {
	assert.Equal(t, "Water Heater", displayNameForAssetType("water_heater"))
	assert.Equal(t, "Roof", displayNameForAssetType("roof"))
	assert.Equal(t, "Carbon Monoxide Detector", displayNameForAssetType("carbon_monoxide_detector"))
}
