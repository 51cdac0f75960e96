package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/middleware"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/repositories"
)

// BoardService serves the status board read path and the forced recompute.
// Every read re-triggers reconciliation and, when stale, inference, so the
// board is always a projection of current upstream state.
type BoardService interface {
	List(ctx context.Context, propertyID uuid.UUID, query *models.BoardQuery) (*models.BoardPage, error)

	// Recompute forces reconciliation plus inference and returns the number
	// of evaluated items.
	Recompute(ctx context.Context, propertyID uuid.UUID) (int, error)
}

type boardService struct {
	db         *database.DB
	reconciler ReconcilerService
	inference  InferenceService
	loader     *snapshotLoader
	items      repositories.HomeItemRepository
	redis      *redis.Client // nil disables the freshness cache
	freshness  time.Duration
	metrics    *middleware.Metrics // nil disables domain counters
	logger     *zap.Logger
}

// NewBoardService creates a new BoardService. redisClient and metrics may be
// nil.
func NewBoardService(
	db *database.DB,
	reconciler ReconcilerService,
	inference InferenceService,
	items repositories.HomeItemRepository,
	possessions repositories.PossessionRepository,
	assets repositories.AssetRepository,
	warranties repositories.WarrantyRepository,
	maintenance repositories.MaintenanceRepository,
	rooms repositories.RoomRepository,
	redisClient *redis.Client,
	freshness time.Duration,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) BoardService {
	return &boardService{
		db:         db,
		reconciler: reconciler,
		inference:  inference,
		loader: &snapshotLoader{
			db:          db,
			items:       items,
			possessions: possessions,
			assets:      assets,
			warranties:  warranties,
			maintenance: maintenance,
			rooms:       rooms,
		},
		items:     items,
		redis:     redisClient,
		freshness: freshness,
		metrics:   metrics,
		logger:    logger.Named("board"),
	}
}

var _ BoardService = (*boardService)(nil)

func (s *boardService) List(ctx context.Context, propertyID uuid.UUID, query *models.BoardQuery) (*models.BoardPage, error) {
	created, err := s.reconciler.Reconcile(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	// Freshly created entries carry a placeholder status. Their presence
	// forces an evaluation even when the freshness marker is still valid.
	stale := created > 0
	if !stale {
		stale, err = s.isStale(ctx, propertyID)
		if err != nil {
			return nil, err
		}
	}
	if stale {
		if _, err := s.inference.Evaluate(ctx, propertyID); err != nil {
			return nil, err
		}
		s.markFresh(ctx, propertyID)
	}

	snap, err := s.loader.load(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rows := make([]*models.BoardRow, 0, len(snap.Items))
	for _, pair := range snap.Items {
		row := buildBoardRow(now, pair, snap)
		if !matchesQuery(row, query) {
			continue
		}
		rows = append(rows, row)
	}

	sortBoardRows(rows)

	total := len(rows)
	page := pageOf(rows, query.Page, query.Limit)

	result := &models.BoardPage{
		Items:   page,
		Summary: summarize(page),
		Page:    query.Page,
		Limit:   query.Limit,
		Total:   total,
	}
	if query.GroupBy != "" {
		result.Groups = groupRows(page, query.GroupBy)
	}

	if s.metrics != nil {
		s.metrics.IncrementBoardsServed()
	}
	return result, nil
}

func (s *boardService) Recompute(ctx context.Context, propertyID uuid.UUID) (int, error) {
	if _, err := s.reconciler.Reconcile(ctx, propertyID); err != nil {
		return 0, err
	}
	evaluated, err := s.inference.Evaluate(ctx, propertyID)
	if err != nil {
		return 0, err
	}
	s.markFresh(ctx, propertyID)
	if s.metrics != nil {
		s.metrics.IncrementInferencePasses()
	}
	return evaluated, nil
}

// isStale reports whether any status on the property is older than the
// freshness window. The redis marker is a read-side shortcut only; with no
// redis, or on any cache error, the database answers.
func (s *boardService) isStale(ctx context.Context, propertyID uuid.UUID) (bool, error) {
	if s.redis != nil {
		n, err := s.redis.Exists(ctx, freshKey(propertyID)).Result()
		if err == nil && n > 0 {
			return false, nil
		}
		if err != nil {
			s.logger.Warn("Freshness cache read failed", zap.Error(err))
		}
	}

	oldest, err := s.items.OldestComputedAt(ctx, propertyID)
	if err != nil {
		return false, err
	}
	if oldest == nil {
		// No items yet; nothing to evaluate, nothing stale.
		return false, nil
	}
	return time.Since(*oldest) > s.freshness, nil
}

func (s *boardService) markFresh(ctx context.Context, propertyID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, freshKey(propertyID), time.Now().Unix(), s.freshness).Err(); err != nil {
		s.logger.Warn("Freshness cache write failed", zap.Error(err))
	}
}

func freshKey(propertyID uuid.UUID) string {
	return "board:fresh:" + propertyID.String()
}

// buildBoardRow joins one registry entry with its upstream data into a
// presentation-ready row.
func buildBoardRow(now time.Time, pair *repositories.ItemWithStatus, snap *propertySnapshot) *models.BoardRow {
	item, status := pair.Item, pair.Status

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

	row := &models.BoardRow{
		ID:             item.ID,
		PropertyID:     item.PropertyID,
		Kind:           item.Kind,
		DisplayName:    displayName(item, possession, asset),
		CategoryKey:    item.CategoryKey,
		RoomID:         item.RoomID,
		Condition:      status.EffectiveCondition(),
		Recommendation: status.EffectiveRecommendation(),
		Reasons:        status.ComputedReasons,
		IsOverridden:   status.OverrideCondition != nil || status.OverrideRecommendation != nil,
		IsPinned:       status.IsPinned,
		IsHidden:       status.IsHidden,
		Notes:          status.OverrideNotes,
		Warranty:       models.AggregateWarranty(now, warrantyExpiriesFor(item, snap)),
	}

	if item.RoomID != nil {
		if room, ok := snap.Rooms[*item.RoomID]; ok {
			row.RoomName = room.Name
		}
	}

	installDate := resolveInstallDate(status, possession, asset)
	if installDate != nil {
		age := math.Round(now.Sub(*installDate).Hours()/(24*daysPerYear)*10) / 10
		row.AgeYears = &age
	}
	row.NeedsInstallDateForPrediction = installDate == nil && row.Condition == models.ConditionGood

	for _, t := range tasksFor(item, snap) {
		if t.IsOpen() {
			row.OpenTaskCount++
		}
	}

	row.Links = buildLinks(item, possession)
	return row
}

// buildLinks produces deep links from IDs already on the row; no extra
// queries.
func buildLinks(item *models.HomeItem, possession *models.Possession) models.BoardLinks {
	base := "/properties/" + item.PropertyID.String()
	links := models.BoardLinks{
		RiskAssessment:  base + "/risk-assessment",
		MaintenanceList: base + "/maintenance",
		WarrantyList:    base + "/warranties",
	}
	if item.PossessionID != nil {
		links.PossessionDetail = base + "/possessions/" + item.PossessionID.String()
		links.ReplaceRepair = base + "/possessions/" + item.PossessionID.String() + "/replace"
	}
	if item.AssetID != nil {
		links.AssetDetail = base + "/assets/" + item.AssetID.String()
	} else if possession != nil && possession.LinkedAssetID != nil {
		links.AssetDetail = base + "/assets/" + possession.LinkedAssetID.String()
	}
	if item.RoomID != nil {
		links.RoomDetail = base + "/rooms/" + item.RoomID.String()
	}
	return links
}

func displayName(item *models.HomeItem, possession *models.Possession, asset *models.SystemAsset) string {
	if item.DisplayNameOverride != nil && *item.DisplayNameOverride != "" {
		return *item.DisplayNameOverride
	}
	if item.Kind == models.ItemKindPossession && possession != nil {
		return possession.Name
	}
	if asset != nil {
		if asset.Name != "" {
			return asset.Name
		}
		return displayNameForAssetType(asset.AssetType)
	}
	return "Unknown Item"
}

// matchesQuery applies the board filter predicate. Condition matching is
// override-aware: an override always replaces the computed value, never
// augments it.
func matchesQuery(row *models.BoardRow, query *models.BoardQuery) bool {
	if row.IsHidden && !query.IncludeHidden {
		return false
	}
	if query.PinnedOnly && !row.IsPinned {
		return false
	}
	if query.CategoryKey != "" && row.CategoryKey != query.CategoryKey {
		return false
	}
	if query.Condition != "" && row.Condition != query.Condition {
		return false
	}
	if query.Search != "" {
		q := strings.ToLower(query.Search)
		if !strings.Contains(strings.ToLower(row.DisplayName), q) &&
			!strings.Contains(strings.ToLower(row.CategoryKey), q) {
			return false
		}
	}
	return true
}

// sortBoardRows orders pinned first, then by effective severity, then by
// display name. The store's pre-sort uses the computed condition only, so
// this re-sort is what makes override-aware ordering exact.
func sortBoardRows(rows []*models.BoardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].IsPinned != rows[j].IsPinned {
			return rows[i].IsPinned
		}
		si, sj := models.ConditionSeverity(rows[i].Condition), models.ConditionSeverity(rows[j].Condition)
		if si != sj {
			return si < sj
		}
		return strings.ToLower(rows[i].DisplayName) < strings.ToLower(rows[j].DisplayName)
	})
}

func pageOf(rows []*models.BoardRow, page, limit int) []*models.BoardRow {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return []*models.BoardRow{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// summarize counts effective conditions over the page. An all-clear row with
// no known install date is not counted as good; it is unverified, not
// healthy.
func summarize(page []*models.BoardRow) models.BoardSummary {
	summary := models.BoardSummary{Total: len(page)}
	for _, row := range page {
		switch row.Condition {
		case models.ConditionGood:
			if !row.NeedsInstallDateForPrediction {
				summary.Good++
			}
		case models.ConditionMonitor:
			summary.Monitor++
		case models.ConditionActionNeeded:
			summary.ActionNeeded++
		}
	}
	return summary
}

func groupRows(page []*models.BoardRow, groupBy string) map[string][]*models.BoardRow {
	groups := make(map[string][]*models.BoardRow)
	for _, row := range page {
		var key string
		switch groupBy {
		case models.GroupByCondition:
			key = row.Condition
		case models.GroupByCategory:
			key = row.CategoryKey
		case models.GroupByRoom:
			key = row.RoomName
			if key == "" {
				key = models.GroupNoRoom
			}
		default:
			return nil
		}
		groups[key] = append(groups[key], row)
	}
	return groups
}
