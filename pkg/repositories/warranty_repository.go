package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// WarrantyRepository reads warranty records. Warranty lifecycle is owned
// elsewhere; the board only needs expiry dates and ownership links.
type WarrantyRepository interface {
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Warranty, error)
}

type warrantyRepository struct{}

// NewWarrantyRepository creates a new WarrantyRepository.
func NewWarrantyRepository() WarrantyRepository {
	return &warrantyRepository{}
}

var _ WarrantyRepository = (*warrantyRepository)(nil)

func (r *warrantyRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Warranty, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, property_id, provider, expiry_date, possession_id, asset_id
		FROM warranties
		WHERE property_id = $1`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query warranties: %w", err)
	}
	defer rows.Close()

	var warranties []*models.Warranty
	for rows.Next() {
		w := &models.Warranty{}
		if err := rows.Scan(&w.ID, &w.PropertyID, &w.Provider, &w.ExpiryDate,
			&w.PossessionID, &w.AssetID); err != nil {
			return nil, fmt.Errorf("failed to scan warranty: %w", err)
		}
		warranties = append(warranties, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warranties: %w", err)
	}

	return warranties, nil
}
