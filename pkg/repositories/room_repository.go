package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// RoomRepository reads room lookup rows for display.
type RoomRepository interface {
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Room, error)
}

type roomRepository struct{}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository() RoomRepository {
	return &roomRepository{}
}

var _ RoomRepository = (*roomRepository)(nil)

func (r *roomRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*models.Room, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, property_id, name
		FROM rooms
		WHERE property_id = $1
		ORDER BY name ASC`,
		propertyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(&room.ID, &room.PropertyID, &room.Name); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}

	return rooms, nil
}
