package models

import "strings"

// Category buckets for the status board. Possession-backed items may also
// carry their native catalog category (appliance, furniture, ...) as-is.
const (
	CategorySystems   = "systems"
	CategorySafety    = "safety"
	CategoryStructure = "structure"
	CategoryOther     = "other"
)

// Possession catalog categories that get normalized into board buckets.
// All other possession categories pass through unchanged.
const (
	PossessionCategorySafety       = "safety"
	PossessionCategoryRoofExterior = "roof_exterior"
)

// DefaultExpectedLifeYears is used when no lookup matches.
const DefaultExpectedLifeYears = 15.0

// expectedLifeYears maps a system/asset type to its expected service life.
var expectedLifeYears = map[string]float64{
	"hvac":             15,
	"furnace":          18,
	"air_conditioner":  14,
	"heat_pump":        14,
	"boiler":           20,
	"water_heater":     10,
	"electrical_panel": 30,
	"plumbing":         40,
	"sump_pump":        10,
	"septic_system":    30,
	"water_softener":   12,
	"garage_door":      20,

	"smoke_detector":           10,
	"carbon_monoxide_detector": 7,
	"fire_extinguisher":        12,
	"security_system":          12,
	"radon_mitigation":         10,

	"roof":       22,
	"foundation": 80,
	"siding":     30,
	"windows":    25,
	"gutters":    20,
	"deck":       20,
	"chimney":    50,
	"driveway":   25,
	"fence":      15,

	// Alias targets for possession categories (see possessionTypeAlias).
	"appliance":   12,
	"electronics": 8,
	"furniture":   20,
}

// assetCategory maps a system/asset type to its board bucket.
var assetCategory = map[string]string{
	"hvac":             CategorySystems,
	"furnace":          CategorySystems,
	"air_conditioner":  CategorySystems,
	"heat_pump":        CategorySystems,
	"boiler":           CategorySystems,
	"water_heater":     CategorySystems,
	"electrical_panel": CategorySystems,
	"plumbing":         CategorySystems,
	"sump_pump":        CategorySystems,
	"septic_system":    CategorySystems,
	"water_softener":   CategorySystems,
	"garage_door":      CategorySystems,

	"smoke_detector":           CategorySafety,
	"carbon_monoxide_detector": CategorySafety,
	"fire_extinguisher":        CategorySafety,
	"security_system":          CategorySafety,
	"radon_mitigation":         CategorySafety,

	"roof":       CategoryStructure,
	"foundation": CategoryStructure,
	"siding":     CategoryStructure,
	"windows":    CategoryStructure,
	"gutters":    CategoryStructure,
	"deck":       CategoryStructure,
	"chimney":    CategoryStructure,
	"driveway":   CategoryStructure,
	"fence":      CategoryStructure,
}

// possessionTypeAlias maps a possession's own category label to an equivalent
// asset type for expected-life lookup.
var possessionTypeAlias = map[string]string{
	"appliance":     "appliance",
	"electronics":   "electronics",
	"furniture":     "furniture",
	"safety":        "smoke_detector",
	"roof_exterior": "roof",
}

// ExpectedLifeForAssetType returns the expected service life in years for a
// system/asset type, or ok=false when the type is unknown.
func ExpectedLifeForAssetType(assetType string) (float64, bool) {
	life, ok := expectedLifeYears[normalizeType(assetType)]
	return life, ok
}

// ExpectedLifeForPossessionCategory resolves a possession category through the
// alias table to an expected service life, or ok=false when no alias matches.
func ExpectedLifeForPossessionCategory(category string) (float64, bool) {
	alias, ok := possessionTypeAlias[normalizeType(category)]
	if !ok {
		return 0, false
	}
	return ExpectedLifeForAssetType(alias)
}

// CategoryForAssetType buckets a system/asset type into
// systems/safety/structure, falling back to other.
func CategoryForAssetType(assetType string) string {
	if cat, ok := assetCategory[normalizeType(assetType)]; ok {
		return cat
	}
	return CategoryOther
}

// IsApplianceType reports whether a risk-report system type refers to an
// appliance rather than a building system. Appliances are never inferred as
// building-system assets.
func IsApplianceType(assetType string) bool {
	return normalizeType(assetType) == "appliance"
}

// DeriveCategory computes the board category for a home item.
//
// Possession-backed items keep their native category (with safety and
// roof_exterior normalized into board buckets) so an appliance tied to a
// building system does not lose its own category. Asset-backed items map
// through the asset-type bucket table.
func DeriveCategory(kind string, possessionCategory string, assetType string) string {
	if kind == ItemKindPossession {
		cat := normalizeType(possessionCategory)
		switch cat {
		case "":
			return CategoryOther
		case PossessionCategorySafety:
			return CategorySafety
		case PossessionCategoryRoofExterior:
			return CategoryStructure
		default:
			return cat
		}
	}
	return CategoryForAssetType(assetType)
}

func normalizeType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
