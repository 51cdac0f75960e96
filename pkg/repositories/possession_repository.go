package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// PossessionRepository reads the possession catalog. The catalog's CRUD is
// owned elsewhere; the board only lists.
type PossessionRepository interface {
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Possession, error)
}

type possessionRepository struct{}

// NewPossessionRepository creates a new PossessionRepository.
func NewPossessionRepository() PossessionRepository {
	return &possessionRepository{}
}

var _ PossessionRepository = (*possessionRepository)(nil)

func (r *possessionRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Possession, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, property_id, name, category, room_id, installed_on, purchased_on, linked_asset_id
		FROM possessions
		WHERE property_id = $1
		ORDER BY name ASC`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query possessions: %w", err)
	}
	defer rows.Close()

	var possessions []*models.Possession
	for rows.Next() {
		p := &models.Possession{}
		if err := rows.Scan(&p.ID, &p.PropertyID, &p.Name, &p.Category, &p.RoomID,
			&p.InstalledOn, &p.PurchasedOn, &p.LinkedAssetID); err != nil {
			return nil, fmt.Errorf("failed to scan possession: %w", err)
		}
		possessions = append(possessions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating possessions: %w", err)
	}

	return possessions, nil
}
