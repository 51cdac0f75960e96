package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/middleware"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
)

// ReconcilerService keeps the home item registry converged with the upstream
// possession and system-asset catalogs. Reconcile is idempotent and cheap
// when nothing drifted: planning is pure, and the write batch is skipped when
// empty, so concurrent or repeated calls converge without locking.
type ReconcilerService interface {
	// Reconcile converges the registry and returns the number of registry
	// entries it created. New entries carry a placeholder status, so a
	// non-zero count tells the caller an evaluation is due regardless of
	// any freshness marker.
	Reconcile(ctx context.Context, propertyID uuid.UUID) (int, error)
}

type reconcilerService struct {
	db          *database.DB
	items       repositories.HomeItemRepository
	possessions repositories.PossessionRepository
	assets      repositories.AssetRepository
	risks       repositories.RiskRepository
	metrics     *middleware.Metrics // nil disables counters
	logger      *zap.Logger
}

// NewReconcilerService creates a new ReconcilerService. metrics may be nil.
func NewReconcilerService(
	db *database.DB,
	items repositories.HomeItemRepository,
	possessions repositories.PossessionRepository,
	assets repositories.AssetRepository,
	risks repositories.RiskRepository,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) ReconcilerService {
	return &reconcilerService{
		db:          db,
		items:       items,
		possessions: possessions,
		assets:      assets,
		risks:       risks,
		metrics:     metrics,
		logger:      logger.Named("reconciler"),
	}
}

var _ ReconcilerService = (*reconcilerService)(nil)

// classificationUpdate is one planned drift correction.
type classificationUpdate struct {
	ItemID      uuid.UUID
	CategoryKey string
	RoomID      *uuid.UUID
}

func (s *reconcilerService) Reconcile(ctx context.Context, propertyID uuid.UUID) (int, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no property scope in context")
	}

	// Snapshot upstream state. Reads are independent; planning is pure over
	// the joined snapshot.
	var (
		report      *models.RiskReport
		possessions []*models.Possession
		assets      []*models.SystemAsset
		items       []*repositories.ItemWithStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return inScope(gctx, s.db, propertyID, func(ctx context.Context) error {
			var err error
			report, err = s.risks.LatestByProperty(ctx, propertyID)
			return err
		})
	})
	g.Go(func() error {
		return inScope(gctx, s.db, propertyID, func(ctx context.Context) error {
			var err error
			possessions, err = s.possessions.ListByProperty(ctx, propertyID)
			return err
		})
	})
	g.Go(func() error {
		return inScope(gctx, s.db, propertyID, func(ctx context.Context) error {
			var err error
			assets, err = s.assets.ListByProperty(ctx, propertyID)
			return err
		})
	})
	g.Go(func() error {
		return inScope(gctx, s.db, propertyID, func(ctx context.Context) error {
			var err error
			items, err = s.items.ListByProperty(ctx, propertyID)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to load reconciliation snapshot: %w", err)
	}

	now := time.Now()
	inferred := planInferredAssets(now, propertyID, report, assets)
	allAssets := append(append([]*models.SystemAsset{}, assets...), inferred...)
	creations := planItemCreations(propertyID, possessions, allAssets, items)
	updates := planDriftUpdates(items, possessions, allAssets)

	if len(inferred) == 0 && len(creations) == 0 && len(updates) == 0 {
		return 0, nil
	}

	// One atomic batch per reconciliation pass.
	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = s.assets.CreateBatch(ctx, inferred); err != nil {
		return 0, err
	}
	if err = s.items.CreateBatch(ctx, creations); err != nil {
		return 0, err
	}
	for _, u := range updates {
		if err = s.items.UpdateClassification(ctx, u.ItemID, u.CategoryKey, u.RoomID); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.metrics.AddItemsReconciled(len(creations))
	s.logger.Debug("Reconciled property registry",
		zap.String("property_id", propertyID.String()),
		zap.Int("inferred_assets", len(inferred)),
		zap.Int("created_items", len(creations)),
		zap.Int("drift_updates", len(updates)))
	return len(creations), nil
}

// planInferredAssets derives missing building-system assets from the latest
// risk report. Malformed findings are skipped, never fatal: partial inference
// data beats none.
func planInferredAssets(now time.Time, propertyID uuid.UUID, report *models.RiskReport, existing []*models.SystemAsset) []*models.SystemAsset {
	if report == nil {
		return nil
	}

	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[strings.ToLower(strings.TrimSpace(a.AssetType))] = true
	}

	var inferred []*models.SystemAsset
	for _, finding := range report.Findings {
		assetType := strings.ToLower(strings.TrimSpace(finding.SystemType))
		if assetType == "" || models.IsApplianceType(assetType) {
			continue
		}
		switch models.CategoryForAssetType(assetType) {
		case models.CategorySystems, models.CategorySafety, models.CategoryStructure:
		default:
			continue
		}
		if have[assetType] {
			continue
		}
		have[assetType] = true

		// IDs are assigned at planning time: item creations planned over the
		// combined asset list reference them before any row exists.
		asset := &models.SystemAsset{
			ID:               uuid.New(),
			PropertyID:       propertyID,
			AssetType:        assetType,
			Name:             displayNameForAssetType(assetType),
			InferredFromRisk: true,
		}
		if age, ok := parseAgeYears(finding.AgeYears); ok {
			year := now.Year() - int(math.Round(age))
			if year >= 1900 && year <= now.Year() {
				asset.InstallationYear = &year
			}
		}
		inferred = append(inferred, asset)
	}
	return inferred
}

// parseAgeYears accepts numbers and numeric strings; anything else, and
// negative ages, are discarded.
func parseAgeYears(v any) (float64, bool) {
	var age float64
	switch val := v.(type) {
	case float64:
		age = val
	case int:
		age = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		age = parsed
	default:
		return 0, false
	}
	if age < 0 || math.IsNaN(age) || math.IsInf(age, 0) {
		return 0, false
	}
	return age, true
}

// planItemCreations backfills a registry entry for every possession and
// system asset that lacks one.
func planItemCreations(propertyID uuid.UUID, possessions []*models.Possession, assets []*models.SystemAsset, items []*repositories.ItemWithStatus) []*models.HomeItem {
	byPossession := make(map[uuid.UUID]bool)
	byAsset := make(map[uuid.UUID]bool)
	for _, pair := range items {
		if pair.Item.PossessionID != nil {
			byPossession[*pair.Item.PossessionID] = true
		}
		if pair.Item.AssetID != nil {
			byAsset[*pair.Item.AssetID] = true
		}
	}

	var creations []*models.HomeItem
	for _, p := range possessions {
		if byPossession[p.ID] {
			continue
		}
		pid := p.ID
		creations = append(creations, &models.HomeItem{
			PropertyID:   propertyID,
			Kind:         models.ItemKindPossession,
			PossessionID: &pid,
			CategoryKey:  models.DeriveCategory(models.ItemKindPossession, p.Category, ""),
			RoomID:       p.RoomID,
		})
	}
	for _, a := range assets {
		if byAsset[a.ID] {
			continue
		}
		aid := a.ID
		creations = append(creations, &models.HomeItem{
			PropertyID:  propertyID,
			Kind:        models.ItemKindAsset,
			AssetID:     &aid,
			CategoryKey: models.DeriveCategory(models.ItemKindAsset, "", a.AssetType),
		})
	}
	return creations
}

// planDriftUpdates recomputes the desired category/room for existing entries
// and plans an update only where the stored value drifted, so a converged
// registry issues zero writes.
func planDriftUpdates(items []*repositories.ItemWithStatus, possessions []*models.Possession, assets []*models.SystemAsset) []classificationUpdate {
	possessionByID := make(map[uuid.UUID]*models.Possession, len(possessions))
	for _, p := range possessions {
		possessionByID[p.ID] = p
	}
	assetByID := make(map[uuid.UUID]*models.SystemAsset, len(assets))
	for _, a := range assets {
		assetByID[a.ID] = a
	}

	var updates []classificationUpdate
	for _, pair := range items {
		item := pair.Item

		var desiredCategory string
		desiredRoom := item.RoomID
		switch item.Kind {
		case models.ItemKindPossession:
			p, ok := possessionByID[*item.PossessionID]
			if !ok {
				continue // upstream row gone; deletion is the catalog's call
			}
			desiredCategory = models.DeriveCategory(models.ItemKindPossession, p.Category, "")
			desiredRoom = p.RoomID
		case models.ItemKindAsset:
			a, ok := assetByID[*item.AssetID]
			if !ok {
				continue
			}
			desiredCategory = models.DeriveCategory(models.ItemKindAsset, "", a.AssetType)
		default:
			continue
		}

		if desiredCategory == item.CategoryKey && uuidPtrEqual(desiredRoom, item.RoomID) {
			continue
		}
		updates = append(updates, classificationUpdate{
			ItemID:      item.ID,
			CategoryKey: desiredCategory,
			RoomID:      desiredRoom,
		})
	}
	return updates
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// displayNameForAssetType turns "water_heater" into "Water Heater".
func displayNameForAssetType(assetType string) string {
	words := strings.Split(assetType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
