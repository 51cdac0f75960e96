package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// MaintenanceRepository reads open maintenance tasks. Task lifecycle is owned
// elsewhere.
type MaintenanceRepository interface {
	// ListOpenByProperty returns every non-completed task on the property.
	ListOpenByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.MaintenanceTask, error)
}

type maintenanceRepository struct{}

// NewMaintenanceRepository creates a new MaintenanceRepository.
func NewMaintenanceRepository() MaintenanceRepository {
	return &maintenanceRepository{}
}

var _ MaintenanceRepository = (*maintenanceRepository)(nil)

func (r *maintenanceRepository) ListOpenByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.MaintenanceTask, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, property_id, asset_id, priority, next_due_date, status
		FROM maintenance_tasks
		WHERE property_id = $1 AND status <> $2
		ORDER BY next_due_date ASC NULLS LAST`,
		propertyID, models.TaskStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query maintenance tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.MaintenanceTask
	for rows.Next() {
		t := &models.MaintenanceTask{}
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.AssetID, &t.Priority,
			&t.NextDueDate, &t.Status); err != nil {
			return nil, fmt.Errorf("failed to scan maintenance task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating maintenance tasks: %w", err)
	}

	return tasks, nil
}
