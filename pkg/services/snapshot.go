package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
)

// propertySnapshot is a point-in-time read of everything the board derives
// from: registry rows plus the upstream catalogs. Reads are independent and
// read-only, so they fan out on separate property-scoped connections and
// join before any write happens.
type propertySnapshot struct {
	Items       []*repositories.ItemWithStatus
	Possessions map[uuid.UUID]*models.Possession
	Assets      map[uuid.UUID]*models.SystemAsset
	Warranties  []*models.Warranty
	Tasks       []*models.MaintenanceTask
	Rooms       map[uuid.UUID]*models.Room
}

// inScope runs fn with its own property-scoped connection. A scoped pgx
// connection is a single session and must not be shared across goroutines,
// so each parallel read acquires its own.
func inScope(ctx context.Context, db *database.DB, propertyID uuid.UUID, fn func(ctx context.Context) error) error {
	scope, err := db.WithProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to acquire property scope: %w", err)
	}
	defer scope.Close()
	return fn(database.SetPropertyScope(ctx, scope))
}

// snapshotLoader fans out the upstream reads for one property.
type snapshotLoader struct {
	db          *database.DB
	items       repositories.HomeItemRepository
	possessions repositories.PossessionRepository
	assets      repositories.AssetRepository
	warranties  repositories.WarrantyRepository
	maintenance repositories.MaintenanceRepository
	rooms       repositories.RoomRepository
}

func (l *snapshotLoader) load(ctx context.Context, propertyID uuid.UUID) (*propertySnapshot, error) {
	snap := &propertySnapshot{
		Possessions: make(map[uuid.UUID]*models.Possession),
		Assets:      make(map[uuid.UUID]*models.SystemAsset),
		Rooms:       make(map[uuid.UUID]*models.Room),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return inScope(gctx, l.db, propertyID, func(ctx context.Context) error {
			items, err := l.items.ListByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			snap.Items = items
			return nil
		})
	})
	g.Go(func() error {
		return inScope(gctx, l.db, propertyID, func(ctx context.Context) error {
			possessions, err := l.possessions.ListByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			for _, p := range possessions {
				snap.Possessions[p.ID] = p
			}
			return nil
		})
	})
	g.Go(func() error {
		return inScope(gctx, l.db, propertyID, func(ctx context.Context) error {
			assets, err := l.assets.ListByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			for _, a := range assets {
				snap.Assets[a.ID] = a
			}
			return nil
		})
	})
	g.Go(func() error {
		return inScope(gctx, l.db, propertyID, func(ctx context.Context) error {
			warranties, err := l.warranties.ListByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			snap.Warranties = warranties
			return nil
		})
	})
	g.Go(func() error {
		return inScope(gctx, l.db, propertyID, func(ctx context.Context) error {
			tasks, err := l.maintenance.ListOpenByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			snap.Tasks = tasks
			return nil
		})
	})
	g.Go(func() error {
		return inScope(gctx, l.db, propertyID, func(ctx context.Context) error {
			rooms, err := l.rooms.ListByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			for _, room := range rooms {
				snap.Rooms[room.ID] = room
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load property snapshot: %w", err)
	}

	return snap, nil
}

// warrantyExpiriesFor collects every warranty expiry reachable from an item:
// the possession's own coverage plus its linked asset's, or the asset's own.
func warrantyExpiriesFor(item *models.HomeItem, snap *propertySnapshot) []*time.Time {
	var possessionID, assetID *uuid.UUID
	switch item.Kind {
	case models.ItemKindPossession:
		possessionID = item.PossessionID
		if p, ok := snap.Possessions[*item.PossessionID]; ok {
			assetID = p.LinkedAssetID
		}
	case models.ItemKindAsset:
		assetID = item.AssetID
	}

	var expiries []*time.Time
	for _, w := range snap.Warranties {
		if possessionID != nil && w.PossessionID != nil && *w.PossessionID == *possessionID {
			expiries = append(expiries, w.ExpiryDate)
			continue
		}
		if assetID != nil && w.AssetID != nil && *w.AssetID == *assetID {
			expiries = append(expiries, w.ExpiryDate)
		}
	}
	return expiries
}

// tasksFor returns the open tasks linked through the item's asset.
func tasksFor(item *models.HomeItem, snap *propertySnapshot) []*models.MaintenanceTask {
	var assetID *uuid.UUID
	switch item.Kind {
	case models.ItemKindPossession:
		if p, ok := snap.Possessions[*item.PossessionID]; ok {
			assetID = p.LinkedAssetID
		}
	case models.ItemKindAsset:
		assetID = item.AssetID
	}
	if assetID == nil {
		return nil
	}

	var tasks []*models.MaintenanceTask
	for _, t := range snap.Tasks {
		if t.AssetID != nil && *t.AssetID == *assetID {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
