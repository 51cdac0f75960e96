package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
)

// StatusService applies user overrides to one item's status and serves the
// item's audit trail. Overrides replace the computed values without erasing
// them; clearing the override falls back to the last computed triple.
type StatusService interface {
	// Patch applies a partial override. actorID is nil for unauthenticated
	// callers. Returns the refreshed status.
	Patch(ctx context.Context, propertyID, itemID uuid.UUID, actorID *uuid.UUID, patch *models.StatusPatch) (*models.HomeItemStatus, error)

	// Events returns the newest audit events for the item.
	Events(ctx context.Context, propertyID, itemID uuid.UUID, limit int) ([]*models.HomeItemEvent, error)
}

type statusService struct {
	items  repositories.HomeItemRepository
	events repositories.ItemEventRepository
	logger *zap.Logger
}

// NewStatusService creates a new StatusService.
func NewStatusService(items repositories.HomeItemRepository, events repositories.ItemEventRepository, logger *zap.Logger) StatusService {
	return &statusService{
		items:  items,
		events: events,
		logger: logger.Named("status"),
	}
}

var _ StatusService = (*statusService)(nil)

func (s *statusService) Patch(ctx context.Context, propertyID, itemID uuid.UUID, actorID *uuid.UUID, patch *models.StatusPatch) (*models.HomeItemStatus, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	pair, err := s.items.GetByID(ctx, propertyID, itemID)
	if err != nil {
		return nil, err
	}
	status := pair.Status

	now := time.Now()
	newEvents := applyPatch(status, patch, itemID, actorID, now)

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = s.items.UpdateOverrides(ctx, status); err != nil {
		return nil, err
	}
	if err = s.events.AppendBatch(ctx, newEvents); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Applied status patch",
		zap.String("item_id", itemID.String()),
		zap.Int("events", len(newEvents)))
	return status, nil
}

// applyPatch mutates status per the patch and returns the audit events it
// produced. Pin/hide events are recorded only on an actual flip; re-pinning
// a pinned item is a no-op in the trail.
func applyPatch(status *models.HomeItemStatus, patch *models.StatusPatch, itemID uuid.UUID, actorID *uuid.UUID, now time.Time) []*models.HomeItemEvent {
	var events []*models.HomeItemEvent
	record := func(eventType string, payload map[string]any) {
		events = append(events, &models.HomeItemEvent{
			HomeItemID: itemID,
			UserID:     actorID,
			EventType:  eventType,
			Payload:    payload,
			CreatedAt:  now,
		})
	}

	overrideChanged := false
	if patch.Condition.Set {
		status.OverrideCondition = optionalPtr(patch.Condition)
		overrideChanged = true
	}
	if patch.Recommendation.Set {
		status.OverrideRecommendation = optionalPtr(patch.Recommendation)
		overrideChanged = true
	}
	if overrideChanged {
		record(models.EventUserOverride, map[string]any{
			"condition":      status.OverrideCondition,
			"recommendation": status.OverrideRecommendation,
		})
	}

	// Date and note overrides feed later inference passes; they carry no
	// dedicated event type.
	if patch.InstalledAt.Set {
		status.OverrideInstalledAt = optionalPtr(patch.InstalledAt)
	}
	if patch.PurchaseDate.Set {
		status.OverridePurchaseDate = optionalPtr(patch.PurchaseDate)
	}
	if patch.Notes.Set {
		status.OverrideNotes = optionalPtr(patch.Notes)
	}

	if patch.IsPinned.Set && patch.IsPinned.Valid && patch.IsPinned.Value != status.IsPinned {
		status.IsPinned = patch.IsPinned.Value
		if status.IsPinned {
			record(models.EventPin, nil)
		} else {
			record(models.EventUnpin, nil)
		}
	}
	if patch.IsHidden.Set && patch.IsHidden.Valid && patch.IsHidden.Value != status.IsHidden {
		status.IsHidden = patch.IsHidden.Value
		if status.IsHidden {
			record(models.EventHide, nil)
		} else {
			record(models.EventUnhide, nil)
		}
	}

	return events
}

// optionalPtr converts a set Optional into the stored pointer: nil for an
// explicit null, a copy of the value otherwise.
func optionalPtr[T any](o models.Optional[T]) *T {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func (s *statusService) Events(ctx context.Context, propertyID, itemID uuid.UUID, limit int) ([]*models.HomeItemEvent, error) {
	// Existence check keeps the 404 semantics of the item resource.
	if _, err := s.items.GetByID(ctx, propertyID, itemID); err != nil {
		return nil, err
	}
	return s.events.ListByItem(ctx, itemID, limit)
}
