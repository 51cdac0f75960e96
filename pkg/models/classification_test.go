package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedLifeForAssetType(t *testing.T) {
	tests := []struct {
		assetType string
		want      float64
		found     bool
	}{
		{"water_heater", 10, true},
		{"furnace", 18, true},
		{"roof", 22, true},
		{"  Water_Heater  ", 10, true}, // normalized
		{"teleporter", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		life, ok := ExpectedLifeForAssetType(tt.assetType)
		assert.Equal(t, tt.found, ok, "assetType=%q", tt.assetType)
		if ok {
			assert.Equal(t, tt.want, life, "assetType=%q", tt.assetType)
		}
	}
}

func TestExpectedLifeForPossessionCategory(t *testing.T) {
	life, ok := ExpectedLifeForPossessionCategory("appliance")
	assert.True(t, ok)
	assert.Equal(t, 12.0, life)

	// safety possessions alias to smoke_detector
	life, ok = ExpectedLifeForPossessionCategory("safety")
	assert.True(t, ok)
	assert.Equal(t, 10.0, life)

	_, ok = ExpectedLifeForPossessionCategory("collectibles")
	assert.False(t, ok)
}

func TestCategoryForAssetType(t *testing.T) {
	assert.Equal(t, CategorySystems, CategoryForAssetType("water_heater"))
	assert.Equal(t, CategorySafety, CategoryForAssetType("smoke_detector"))
	assert.Equal(t, CategoryStructure, CategoryForAssetType("roof"))
	assert.Equal(t, CategoryOther, CategoryForAssetType("hot_tub"))
}

func TestDeriveCategory_PossessionKeepsNativeCategory(t *testing.T) {
	// A possession keeps its own catalog category even when linked to a
	// building system.
	assert.Equal(t, "appliance", DeriveCategory(ItemKindPossession, "appliance", "hvac"))
	assert.Equal(t, "furniture", DeriveCategory(ItemKindPossession, "Furniture", ""))
}

func TestDeriveCategory_PossessionNormalization(t *testing.T) {
	assert.Equal(t, CategorySafety, DeriveCategory(ItemKindPossession, "safety", ""))
	assert.Equal(t, CategoryStructure, DeriveCategory(ItemKindPossession, "roof_exterior", ""))
	assert.Equal(t, CategoryOther, DeriveCategory(ItemKindPossession, "", ""))
}

func TestDeriveCategory_AssetBuckets(t *testing.T) {
	assert.Equal(t, CategorySystems, DeriveCategory(ItemKindAsset, "", "furnace"))
	assert.Equal(t, CategoryOther, DeriveCategory(ItemKindAsset, "", "unknown_system"))
}

func TestIsApplianceType(t *testing.T) {
	assert.True(t, IsApplianceType("appliance"))
	assert.True(t, IsApplianceType(" Appliance "))
	assert.False(t, IsApplianceType("water_heater"))
}
