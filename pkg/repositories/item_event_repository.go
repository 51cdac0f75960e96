package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// ItemEventRepository provides access to the append-only home item audit
// trail. Events are never updated or deleted.
type ItemEventRepository interface {
	// Append inserts one audit event.
	Append(ctx context.Context, event *models.HomeItemEvent) error

	// AppendBatch inserts several audit events.
	AppendBatch(ctx context.Context, events []*models.HomeItemEvent) error

	// ListByItem returns events for one item, newest first.
	ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]*models.HomeItemEvent, error)
}

type itemEventRepository struct{}

// NewItemEventRepository creates a new ItemEventRepository.
func NewItemEventRepository() ItemEventRepository {
	return &itemEventRepository{}
}

var _ ItemEventRepository = (*itemEventRepository)(nil)

func (r *itemEventRepository) Append(ctx context.Context, event *models.HomeItemEvent) error {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()

	var payloadJSON []byte
	var err error
	if len(event.Payload) > 0 {
		payloadJSON, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
	}

	_, err = scope.Conn.Exec(ctx, `
		INSERT INTO home_item_events (id, home_item_id, user_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.HomeItemID, event.UserID, event.EventType, payloadJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append home item event: %w", err)
	}
	return nil
}

func (r *itemEventRepository) AppendBatch(ctx context.Context, events []*models.HomeItemEvent) error {
	for _, event := range events {
		if err := r.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (r *itemEventRepository) ListByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]*models.HomeItemEvent, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, home_item_id, user_id, event_type, payload, created_at
		FROM home_item_events
		WHERE home_item_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		itemID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query home item events: %w", err)
	}
	defer rows.Close()

	var events []*models.HomeItemEvent
	for rows.Next() {
		event := &models.HomeItemEvent{}
		var payloadJSON []byte
		if err := rows.Scan(&event.ID, &event.HomeItemID, &event.UserID,
			&event.EventType, &payloadJSON, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan home item event: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &event.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
			}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating home item events: %w", err)
	}

	return events, nil
}
