//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellio-inc/dwellio-engine/pkg/apperrors"
	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/testhelpers"
)

// homeItemTestContext holds test dependencies for home item repository tests.
// Each test gets its own property so tests stay isolated on the shared
// container.
type homeItemTestContext struct {
	t          *testing.T
	testDB     *testhelpers.TestDB
	repo       HomeItemRepository
	propertyID uuid.UUID
}

func setupHomeItemTest(t *testing.T) *homeItemTestContext {
	tc := &homeItemTestContext{
		t:          t,
		testDB:     testhelpers.GetTestDB(t),
		repo:       NewHomeItemRepository(),
		propertyID: uuid.New(),
	}
	tc.createProperty(tc.propertyID, "Repository Test Home")
	return tc
}

func (tc *homeItemTestContext) createProperty(id uuid.UUID, name string) {
	tc.t.Helper()
	_, err := tc.testDB.DB.Pool.Exec(context.Background(),
		`INSERT INTO properties (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(tc.t, err)
}

func (tc *homeItemTestContext) createPossession(propertyID uuid.UUID, name, category string) uuid.UUID {
	tc.t.Helper()
	id := uuid.New()
	_, err := tc.testDB.DB.Pool.Exec(context.Background(),
		`INSERT INTO possessions (id, property_id, name, category) VALUES ($1, $2, $3, $4)`,
		id, propertyID, name, category)
	require.NoError(tc.t, err)
	return id
}

// scopedContext returns a context carrying a property-scoped connection.
func (tc *homeItemTestContext) scopedContext(propertyID uuid.UUID) (context.Context, func()) {
	tc.t.Helper()
	scope, err := tc.testDB.DB.WithProperty(context.Background(), propertyID)
	require.NoError(tc.t, err)
	return database.SetPropertyScope(context.Background(), scope), scope.Close
}

func (tc *homeItemTestContext) possessionItem(possessionID uuid.UUID) *models.HomeItem {
	pid := possessionID
	return &models.HomeItem{
		PropertyID:   tc.propertyID,
		Kind:         models.ItemKindPossession,
		PossessionID: &pid,
		CategoryKey:  "appliance",
	}
}

func TestHomeItemRepository_CreateBatchCreatesStatusRows(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	possessionID := tc.createPossession(tc.propertyID, "Fridge", "appliance")
	item := tc.possessionItem(possessionID)

	require.NoError(t, tc.repo.CreateBatch(ctx, []*models.HomeItem{item}))
	assert.NotEqual(t, uuid.Nil, item.ID)

	pairs, err := tc.repo.ListByProperty(ctx, tc.propertyID)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	// The status row is created together with the entry, as a placeholder
	// that has never been evaluated.
	status := pairs[0].Status
	assert.Equal(t, item.ID, status.HomeItemID)
	assert.Equal(t, models.ConditionGood, status.ComputedCondition)
	assert.Equal(t, models.RecommendationOK, status.ComputedRecommendation)
	assert.Empty(t, status.ComputedReasons)
	assert.True(t, status.ComputedAt.Before(time.Now().AddDate(-1, 0, 0)))
}

func TestHomeItemRepository_GetByID_NotFound(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	_, err := tc.repo.GetByID(ctx, tc.propertyID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHomeItemRepository_ScopedToProperty(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	possessionID := tc.createPossession(tc.propertyID, "Washer", "appliance")
	require.NoError(t, tc.repo.CreateBatch(ctx, []*models.HomeItem{tc.possessionItem(possessionID)}))

	otherProperty := uuid.New()
	tc.createProperty(otherProperty, "Other Home")
	otherCtx, otherCleanup := tc.scopedContext(otherProperty)
	defer otherCleanup()

	pairs, err := tc.repo.ListByProperty(otherCtx, otherProperty)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestHomeItemRepository_StatementsJoinOpenTransaction(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	possessionID := tc.createPossession(tc.propertyID, "Dryer", "appliance")

	scope, ok := database.GetPropertyScope(ctx)
	require.True(t, ok)
	tx, err := scope.Conn.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, tc.repo.CreateBatch(ctx, []*models.HomeItem{tc.possessionItem(possessionID)}))
	require.NoError(t, tx.Rollback(ctx))

	// The insert ran on the transaction's connection, so the rollback
	// discards it.
	pairs, err := tc.repo.ListByProperty(ctx, tc.propertyID)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestHomeItemRepository_UpdateOverridesRoundTrip(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	possessionID := tc.createPossession(tc.propertyID, "Oven", "appliance")
	item := tc.possessionItem(possessionID)
	require.NoError(t, tc.repo.CreateBatch(ctx, []*models.HomeItem{item}))

	pair, err := tc.repo.GetByID(ctx, tc.propertyID, item.ID)
	require.NoError(t, err)

	condition := models.ConditionMonitor
	notes := "rattles on startup"
	pair.Status.OverrideCondition = &condition
	pair.Status.OverrideNotes = &notes
	pair.Status.IsPinned = true
	require.NoError(t, tc.repo.UpdateOverrides(ctx, pair.Status))

	got, err := tc.repo.GetByID(ctx, tc.propertyID, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Status.OverrideCondition)
	assert.Equal(t, models.ConditionMonitor, *got.Status.OverrideCondition)
	require.NotNil(t, got.Status.OverrideNotes)
	assert.Equal(t, notes, *got.Status.OverrideNotes)
	assert.True(t, got.Status.IsPinned)
	// Computed fields are untouched by an override write.
	assert.Equal(t, models.ConditionGood, got.Status.ComputedCondition)
}

func TestHomeItemRepository_UpdateClassification_NotFound(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	err := tc.repo.UpdateClassification(ctx, uuid.New(), "appliance", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHomeItemRepository_OldestComputedAt(t *testing.T) {
	tc := setupHomeItemTest(t)
	ctx, cleanup := tc.scopedContext(tc.propertyID)
	defer cleanup()

	oldest, err := tc.repo.OldestComputedAt(ctx, tc.propertyID)
	require.NoError(t, err)
	assert.Nil(t, oldest)

	possessionID := tc.createPossession(tc.propertyID, "Microwave", "appliance")
	item := tc.possessionItem(possessionID)
	require.NoError(t, tc.repo.CreateBatch(ctx, []*models.HomeItem{item}))

	oldest, err = tc.repo.OldestComputedAt(ctx, tc.propertyID)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.True(t, oldest.Before(time.Now().AddDate(-1, 0, 0)))

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, tc.repo.TouchComputedAt(ctx, []uuid.UUID{item.ID}, now))

	oldest, err = tc.repo.OldestComputedAt(ctx, tc.propertyID)
	require.NoError(t, err)
	require.NotNil(t, oldest)
	assert.WithinDuration(t, now, *oldest, time.Second)
}
