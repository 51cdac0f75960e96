package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dwellio-inc/dwellio-engine/pkg/apperrors"
	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// ItemWithStatus pairs a registry row with its 1:1 status row.
type ItemWithStatus struct {
	Item   *models.HomeItem
	Status *models.HomeItemStatus
}

// HomeItemRepository provides data access for the home item registry and its
// status rows. Callers that need atomicity across several calls open a
// transaction on the property-scoped connection; statements issued on that
// connection join the transaction.
type HomeItemRepository interface {
	// ListByProperty returns every registry entry of the property with its
	// status, pre-sorted by pinned (desc) then computed severity (most urgent
	// first). The ordering is a hint only; override-aware consumers re-sort.
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*ItemWithStatus, error)

	// GetByID returns one entry with status, scoped to the property.
	// Returns apperrors.ErrNotFound when no such entry exists.
	GetByID(ctx context.Context, propertyID, itemID uuid.UUID) (*ItemWithStatus, error)

	// CreateBatch inserts registry entries together with their blank status
	// rows. IDs are assigned when absent.
	CreateBatch(ctx context.Context, items []*models.HomeItem) error

	// UpdateClassification rewrites category/room after upstream drift.
	UpdateClassification(ctx context.Context, itemID uuid.UUID, categoryKey string, roomID *uuid.UUID) error

	// UpdateComputed rewrites the computed triple and freshness timestamp.
	UpdateComputed(ctx context.Context, status *models.HomeItemStatus) error

	// TouchComputedAt refreshes only the freshness timestamp for items whose
	// computed triple did not change.
	TouchComputedAt(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error

	// UpdateOverrides rewrites the user-owned override fields.
	UpdateOverrides(ctx context.Context, status *models.HomeItemStatus) error

	// OldestComputedAt returns the oldest computed_at on the property, or nil
	// when the property has no items.
	OldestComputedAt(ctx context.Context, propertyID uuid.UUID) (*time.Time, error)
}

type homeItemRepository struct{}

// NewHomeItemRepository creates a new HomeItemRepository.
func NewHomeItemRepository() HomeItemRepository {
	return &homeItemRepository{}
}

var _ HomeItemRepository = (*homeItemRepository)(nil)

const itemWithStatusColumns = `
	i.id, i.property_id, i.kind, i.possession_id, i.asset_id,
	i.category_key, i.room_id, i.display_name_override, i.created_at, i.updated_at,
	s.id, s.home_item_id, s.computed_condition, s.computed_recommendation,
	s.computed_reasons, s.computed_at,
	s.override_condition, s.override_recommendation, s.override_installed_at,
	s.override_purchase_date, s.override_notes, s.is_pinned, s.is_hidden,
	s.created_at, s.updated_at`

func (r *homeItemRepository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*ItemWithStatus, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	query := `
		SELECT ` + itemWithStatusColumns + `
		FROM home_items i
		JOIN home_item_status s ON s.home_item_id = i.id
		WHERE i.property_id = $1
		ORDER BY s.is_pinned DESC,
			CASE s.computed_condition
				WHEN 'action_needed' THEN 0
				WHEN 'monitor' THEN 1
				WHEN 'good' THEN 2
				ELSE 3
			END ASC,
			i.created_at ASC`

	rows, err := scope.Conn.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query home items: %w", err)
	}
	defer rows.Close()

	var result []*ItemWithStatus
	for rows.Next() {
		pair, err := scanItemWithStatus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating home items: %w", err)
	}

	return result, nil
}

func (r *homeItemRepository) GetByID(ctx context.Context, propertyID, itemID uuid.UUID) (*ItemWithStatus, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	query := `
		SELECT ` + itemWithStatusColumns + `
		FROM home_items i
		JOIN home_item_status s ON s.home_item_id = i.id
		WHERE i.property_id = $1 AND i.id = $2`

	row := scope.Conn.QueryRow(ctx, query, propertyID, itemID)
	pair, err := scanItemWithStatus(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return pair, nil
}

func (r *homeItemRepository) CreateBatch(ctx context.Context, items []*models.HomeItem) error {
	if len(items) == 0 {
		return nil
	}

	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	now := time.Now()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.CreatedAt = now
		item.UpdatedAt = now

		_, err := scope.Conn.Exec(ctx, `
			INSERT INTO home_items (
				id, property_id, kind, possession_id, asset_id,
				category_key, room_id, display_name_override, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			item.ID, item.PropertyID, item.Kind, item.PossessionID, item.AssetID,
			item.CategoryKey, item.RoomID, item.DisplayNameOverride, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create home item: %w", err)
		}

		// Status rows are created together with their registry entry (1:1).
		_, err = scope.Conn.Exec(ctx, `
			INSERT INTO home_item_status (
				id, home_item_id, computed_condition, computed_recommendation,
				computed_reasons, computed_at, is_pinned, is_hidden, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, false, false, $7, $8)`,
			uuid.New(), item.ID, models.ConditionGood, models.RecommendationOK,
			[]byte(`[]`), time.Time{}, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create home item status: %w", err)
		}
	}

	return nil
}

func (r *homeItemRepository) UpdateClassification(ctx context.Context, itemID uuid.UUID, categoryKey string, roomID *uuid.UUID) error {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE home_items
		SET category_key = $2, room_id = $3, updated_at = now()
		WHERE id = $1`,
		itemID, categoryKey, roomID,
	)
	if err != nil {
		return fmt.Errorf("failed to update home item classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *homeItemRepository) UpdateComputed(ctx context.Context, status *models.HomeItemStatus) error {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	reasonsJSON, err := json.Marshal(status.ComputedReasons)
	if err != nil {
		return fmt.Errorf("failed to marshal computed reasons: %w", err)
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE home_item_status
		SET computed_condition = $2,
			computed_recommendation = $3,
			computed_reasons = $4,
			computed_at = $5,
			updated_at = now()
		WHERE home_item_id = $1`,
		status.HomeItemID, status.ComputedCondition, status.ComputedRecommendation,
		reasonsJSON, status.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update computed status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *homeItemRepository) TouchComputedAt(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		UPDATE home_item_status
		SET computed_at = $2
		WHERE home_item_id = ANY($1)`,
		itemIDs, at,
	)
	if err != nil {
		return fmt.Errorf("failed to touch computed_at: %w", err)
	}
	return nil
}

func (r *homeItemRepository) UpdateOverrides(ctx context.Context, status *models.HomeItemStatus) error {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return fmt.Errorf("no property scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE home_item_status
		SET override_condition = $2,
			override_recommendation = $3,
			override_installed_at = $4,
			override_purchase_date = $5,
			override_notes = $6,
			is_pinned = $7,
			is_hidden = $8,
			updated_at = now()
		WHERE home_item_id = $1`,
		status.HomeItemID, status.OverrideCondition, status.OverrideRecommendation,
		status.OverrideInstalledAt, status.OverridePurchaseDate, status.OverrideNotes,
		status.IsPinned, status.IsHidden,
	)
	if err != nil {
		return fmt.Errorf("failed to update status overrides: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *homeItemRepository) OldestComputedAt(ctx context.Context, propertyID uuid.UUID) (*time.Time, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	var oldest *time.Time
	err := scope.Conn.QueryRow(ctx, `
		SELECT MIN(s.computed_at)
		FROM home_item_status s
		JOIN home_items i ON i.id = s.home_item_id
		WHERE i.property_id = $1`,
		propertyID,
	).Scan(&oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest computed_at: %w", err)
	}
	return oldest, nil
}

func scanItemWithStatus(row pgx.Row) (*ItemWithStatus, error) {
	item := &models.HomeItem{}
	status := &models.HomeItemStatus{}
	var reasonsJSON []byte

	err := row.Scan(
		&item.ID, &item.PropertyID, &item.Kind, &item.PossessionID, &item.AssetID,
		&item.CategoryKey, &item.RoomID, &item.DisplayNameOverride, &item.CreatedAt, &item.UpdatedAt,
		&status.ID, &status.HomeItemID, &status.ComputedCondition, &status.ComputedRecommendation,
		&reasonsJSON, &status.ComputedAt,
		&status.OverrideCondition, &status.OverrideRecommendation, &status.OverrideInstalledAt,
		&status.OverridePurchaseDate, &status.OverrideNotes, &status.IsPinned, &status.IsHidden,
		&status.CreatedAt, &status.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan home item: %w", err)
	}

	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &status.ComputedReasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal computed reasons: %w", err)
		}
	}

	return &ItemWithStatus{Item: item, Status: status}, nil
}
