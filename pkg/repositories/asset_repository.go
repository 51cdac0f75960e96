package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// AssetRepository reads the building-system asset catalog. Creation is only
// performed for assets inferred from risk-assessment data during
// reconciliation; all other asset CRUD is owned elsewhere.
type AssetRepository interface {
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.SystemAsset, error)
	CreateBatch(ctx context.Context, assets []*models.SystemAsset) error
}

type assetRepository struct{}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository() AssetRepository {
	return &assetRepository{}
}

var _ AssetRepository = (*assetRepository)(nil)

func (r *assetRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.SystemAsset, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, property_id, asset_type, name, installation_year, inferred_from_risk
		FROM system_assets
		WHERE property_id = $1
		ORDER BY asset_type ASC`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query system assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.SystemAsset
	for rows.Next() {
		a := &models.SystemAsset{}
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.AssetType, &a.Name,
			&a.InstallationYear, &a.InferredFromRisk); err != nil {
			return nil, fmt.Errorf("failed to scan system asset: %w", err)
		}
		assets = append(assets, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system assets: %w", err)
	}

	return assets, nil
}

func (r *assetRepository) CreateBatch(ctx context.Context, assets []*models.SystemAsset) error {
	if len(assets) == 0 {
		return nil
	}

	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	for _, asset := range assets {
		if asset.ID == uuid.Nil {
			asset.ID = uuid.New()
		}
		_, err := scope.Conn.Exec(ctx, `
			INSERT INTO system_assets (id, property_id, asset_type, name, installation_year, inferred_from_risk)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			asset.ID, asset.PropertyID, asset.AssetType, asset.Name,
			asset.InstallationYear, asset.InferredFromRisk,
		)
		if err != nil {
			return fmt.Errorf("failed to create system asset: %w", err)
		}
	}
	return nil
}
