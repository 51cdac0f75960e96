package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
)

// EOL ratio thresholds for the condition rules.
const (
	eolMonitorRatio = 0.8
	eolActionRatio  = 1.0
)

const daysPerYear = 365.25

// InferenceService recomputes the health status of every registry entry on a
// property. Writes are skipped when the computed triple is unchanged so
// re-evaluation stays audit-quiet, but the freshness timestamp always moves.
type InferenceService interface {
	// Evaluate recomputes every entry and returns the number evaluated.
	Evaluate(ctx context.Context, propertyID uuid.UUID) (int, error)
}

type inferenceService struct {
	db     *database.DB
	loader *snapshotLoader
	items  repositories.HomeItemRepository
	events repositories.ItemEventRepository
	logger *zap.Logger
}

// NewInferenceService creates a new InferenceService.
func NewInferenceService(
	db *database.DB,
	items repositories.HomeItemRepository,
	possessions repositories.PossessionRepository,
	assets repositories.AssetRepository,
	warranties repositories.WarrantyRepository,
	maintenance repositories.MaintenanceRepository,
	rooms repositories.RoomRepository,
	events repositories.ItemEventRepository,
	logger *zap.Logger,
) InferenceService {
	return &inferenceService{
		db: db,
		loader: &snapshotLoader{
			db:          db,
			items:       items,
			possessions: possessions,
			assets:      assets,
			warranties:  warranties,
			maintenance: maintenance,
			rooms:       rooms,
		},
		items:  items,
		events: events,
		logger: logger.Named("inference"),
	}
}

var _ InferenceService = (*inferenceService)(nil)

// conditionInputs are the resolved facts one entry is scored on.
type conditionInputs struct {
	InstallDate       *time.Time
	ExpectedLifeYears float64
	Warranty          models.WarrantySummary
	HasOverdueUrgent  bool
}

func (s *inferenceService) Evaluate(ctx context.Context, propertyID uuid.UUID) (int, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no property scope in context")
	}

	snap, err := s.loader.load(ctx, propertyID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var (
		changed   []*models.HomeItemStatus
		newEvents []*models.HomeItemEvent
		unchanged []uuid.UUID
	)
	for _, pair := range snap.Items {
		in := resolveInputs(now, pair.Item, pair.Status, snap)
		condition, recommendation, reasons := evaluateItem(now, in)

		if condition == pair.Status.ComputedCondition &&
			recommendation == pair.Status.ComputedRecommendation &&
			slices.Equal(reasons, pair.Status.ComputedReasons) {
			unchanged = append(unchanged, pair.Item.ID)
			continue
		}

		status := *pair.Status
		status.ComputedCondition = condition
		status.ComputedRecommendation = recommendation
		status.ComputedReasons = reasons
		status.ComputedAt = now
		changed = append(changed, &status)

		newEvents = append(newEvents, &models.HomeItemEvent{
			HomeItemID: pair.Item.ID,
			EventType:  models.EventComputedUpdate,
			Payload: map[string]any{
				"condition":      condition,
				"recommendation": recommendation,
				"reasons":        reasons,
			},
		})
	}

	// One atomic batch: status rewrites, their audit events, and the
	// freshness touch for unchanged rows.
	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, status := range changed {
		if err = s.items.UpdateComputed(ctx, status); err != nil {
			return 0, err
		}
	}
	if err = s.events.AppendBatch(ctx, newEvents); err != nil {
		return 0, err
	}
	if err = s.items.TouchComputedAt(ctx, unchanged, now); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("Evaluated property",
		zap.String("property_id", propertyID.String()),
		zap.Int("evaluated", len(snap.Items)),
		zap.Int("changed", len(changed)))
	return len(snap.Items), nil
}

// resolveInputs joins one entry against the snapshot.
func resolveInputs(now time.Time, item *models.HomeItem, status *models.HomeItemStatus, snap *propertySnapshot) conditionInputs {
	var possession *models.Possession
	var asset *models.SystemAsset
	switch item.Kind {
	case models.ItemKindPossession:
		possession = snap.Possessions[*item.PossessionID]
		if possession != nil && possession.LinkedAssetID != nil {
			asset = snap.Assets[*possession.LinkedAssetID]
		}
	case models.ItemKindAsset:
		asset = snap.Assets[*item.AssetID]
	}

	in := conditionInputs{
		InstallDate:       resolveInstallDate(status, possession, asset),
		ExpectedLifeYears: resolveExpectedLife(possession, asset),
		Warranty:          models.AggregateWarranty(now, warrantyExpiriesFor(item, snap)),
	}
	for _, t := range tasksFor(item, snap) {
		if t.IsOverdueUrgent(now) {
			in.HasOverdueUrgent = true
			break
		}
	}
	return in
}

// resolveInstallDate applies the install-date precedence: explicit status
// overrides, then the possession's own dates, then the building system's
// installation year (Jan 1 of that year).
func resolveInstallDate(status *models.HomeItemStatus, possession *models.Possession, asset *models.SystemAsset) *time.Time {
	if status.OverrideInstalledAt != nil {
		return status.OverrideInstalledAt
	}
	if status.OverridePurchaseDate != nil {
		return status.OverridePurchaseDate
	}
	if possession != nil {
		if possession.InstalledOn != nil {
			return possession.InstalledOn
		}
		if possession.PurchasedOn != nil {
			return possession.PurchasedOn
		}
	}
	if asset != nil && asset.InstallationYear != nil {
		jan1 := time.Date(*asset.InstallationYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &jan1
	}
	return nil
}

// resolveExpectedLife applies the expected-life precedence: asset-type direct
// lookup, then possession-category alias, then the default.
func resolveExpectedLife(possession *models.Possession, asset *models.SystemAsset) float64 {
	if asset != nil {
		if life, ok := models.ExpectedLifeForAssetType(asset.AssetType); ok {
			return life
		}
	}
	if possession != nil {
		if life, ok := models.ExpectedLifeForPossessionCategory(possession.Category); ok {
			return life
		}
	}
	return models.DefaultExpectedLifeYears
}

// evaluateItem runs the condition rules in precedence order; later rules only
// escalate severity, never downgrade it.
func evaluateItem(now time.Time, in conditionInputs) (condition, recommendation string, reasons []models.Reason) {
	condition = models.ConditionGood

	hasInstall := in.InstallDate != nil
	var age, ratio float64
	if hasInstall {
		age = now.Sub(*in.InstallDate).Hours() / (24 * daysPerYear)
		if in.ExpectedLifeYears > 0 {
			ratio = age / in.ExpectedLifeYears
		}
	}

	if !hasInstall {
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonMissingInstallDate,
			Detail: "no install date on record",
		})
	}

	if in.HasOverdueUrgent {
		condition = models.ConditionActionNeeded
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonOverdueMaintenance,
			Detail: "open high-priority maintenance is past due",
		})
	}

	if hasInstall && in.Warranty.Status == models.WarrantyExpired && ratio >= eolMonitorRatio {
		condition = models.ConditionActionNeeded
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonWarrantyExpiredEOL,
			Detail: "warranty expired near end of expected life",
		})
	}

	if hasInstall && ratio >= eolActionRatio && condition != models.ConditionActionNeeded {
		condition = models.ConditionActionNeeded
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonPastEOL,
			Detail: fmt.Sprintf("past expected life of %.0f years", in.ExpectedLifeYears),
		})
	} else if hasInstall && ratio >= eolMonitorRatio && condition == models.ConditionGood {
		condition = models.ConditionMonitor
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonNearingEOL,
			Detail: fmt.Sprintf("nearing expected life of %.0f years", in.ExpectedLifeYears),
		})
	}

	if in.Warranty.Status == models.WarrantyExpiringSoon && condition == models.ConditionGood {
		condition = models.ConditionMonitor
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonWarrantyExpiring,
			Detail: "warranty expires within 60 days",
		})
	}

	if condition == models.ConditionGood && hasInstall {
		reasons = append(reasons, models.Reason{
			Code:   models.ReasonAllClear,
			Detail: "no issues detected",
		})
	}

	switch {
	case condition == models.ConditionActionNeeded && ratio >= eolMonitorRatio:
		recommendation = models.RecommendationReplaceSoon
	case condition == models.ConditionActionNeeded:
		recommendation = models.RecommendationRepair
	case condition == models.ConditionMonitor && ratio >= eolMonitorRatio:
		recommendation = models.RecommendationReplaceSoon
	default:
		recommendation = models.RecommendationOK
	}

	return condition, recommendation, reasons
}
