package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/apperrors"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// mockBoardService implements services.BoardService for handler testing.
type mockBoardService struct {
	page      *models.BoardPage
	evaluated int
	lastQuery *models.BoardQuery
	listErr   error
}

func (m *mockBoardService) List(_ context.Context, _ uuid.UUID, query *models.BoardQuery) (*models.BoardPage, error) {
	m.lastQuery = query
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.page, nil
}

func (m *mockBoardService) Recompute(_ context.Context, _ uuid.UUID) (int, error) {
	return m.evaluated, nil
}

// mockStatusService implements services.StatusService for handler testing.
type mockStatusService struct {
	status    *models.HomeItemStatus
	events    []*models.HomeItemEvent
	lastActor *uuid.UUID
	patchErr  error
	eventsErr error
}

func (m *mockStatusService) Patch(_ context.Context, _ uuid.UUID, _ uuid.UUID, actorID *uuid.UUID, _ *models.StatusPatch) (*models.HomeItemStatus, error) {
	m.lastActor = actorID
	if m.patchErr != nil {
		return nil, m.patchErr
	}
	return m.status, nil
}

func (m *mockStatusService) Events(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ int) ([]*models.HomeItemEvent, error) {
	if m.eventsErr != nil {
		return nil, m.eventsErr
	}
	return m.events, nil
}

func makeBoardRequest(method, path string, body []byte, propertyID uuid.UUID) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.SetPathValue("pid", propertyID.String())
	return req
}

func TestBoardHandler_GetBoard_Success(t *testing.T) {
	propertyID := uuid.New()
	svc := &mockBoardService{
		page: &models.BoardPage{
			Items:   []*models.BoardRow{{ID: uuid.New(), DisplayName: "Furnace", Condition: models.ConditionActionNeeded}},
			Summary: models.BoardSummary{ActionNeeded: 1, Total: 1},
			Page:    1,
			Limit:   50,
			Total:   1,
		},
	}
	handler := NewBoardHandler(svc, &mockStatusService{}, zap.NewNop())

	req := makeBoardRequest("GET", fmt.Sprintf("/api/properties/%s/board", propertyID), nil, propertyID)
	rr := httptest.NewRecorder()

	handler.GetBoard(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	items := data["items"].([]any)
	assert.Len(t, items, 1)
	assert.Equal(t, float64(1), data["total"])
}

func TestBoardHandler_GetBoard_DefaultsAndFilters(t *testing.T) {
	propertyID := uuid.New()
	svc := &mockBoardService{page: &models.BoardPage{}}
	handler := NewBoardHandler(svc, &mockStatusService{}, zap.NewNop())

	req := makeBoardRequest("GET", fmt.Sprintf("/api/properties/%s/board", propertyID), nil, propertyID)
	req.URL.RawQuery = "condition=monitor&category=systems&pinned_only=true&q=heater"
	rr := httptest.NewRecorder()

	handler.GetBoard(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.lastQuery)
	assert.Equal(t, models.ConditionMonitor, svc.lastQuery.Condition)
	assert.Equal(t, "systems", svc.lastQuery.CategoryKey)
	assert.True(t, svc.lastQuery.PinnedOnly)
	assert.Equal(t, "heater", svc.lastQuery.Search)
	assert.Equal(t, 1, svc.lastQuery.Page)
	assert.Equal(t, models.BoardDefaultLimit, svc.lastQuery.Limit)
}

func TestBoardHandler_GetBoard_LimitCapped(t *testing.T) {
	propertyID := uuid.New()
	svc := &mockBoardService{page: &models.BoardPage{}}
	handler := NewBoardHandler(svc, &mockStatusService{}, zap.NewNop())

	req := makeBoardRequest("GET", fmt.Sprintf("/api/properties/%s/board", propertyID), nil, propertyID)
	req.URL.RawQuery = "limit=500"
	rr := httptest.NewRecorder()

	handler.GetBoard(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.BoardMaxLimit, svc.lastQuery.Limit)
}

func TestBoardHandler_GetBoard_InvalidEnums(t *testing.T) {
	propertyID := uuid.New()
	handler := NewBoardHandler(&mockBoardService{}, &mockStatusService{}, zap.NewNop())

	for query, wantCode := range map[string]string{
		"condition=terrible": "invalid_condition",
		"group_by=owner":     "invalid_group_by",
		"page=0":             "invalid_page",
		"limit=abc":          "invalid_limit",
	} {
		req := makeBoardRequest("GET", fmt.Sprintf("/api/properties/%s/board", propertyID), nil, propertyID)
		req.URL.RawQuery = query
		rr := httptest.NewRecorder()

		handler.GetBoard(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "query=%s", query)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, wantCode, resp["error"], "query=%s", query)
	}
}

func TestBoardHandler_GetBoard_InvalidPropertyID(t *testing.T) {
	handler := NewBoardHandler(&mockBoardService{}, &mockStatusService{}, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/properties/not-a-uuid/board", nil)
	req.SetPathValue("pid", "not-a-uuid")
	rr := httptest.NewRecorder()

	handler.GetBoard(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBoardHandler_Recompute(t *testing.T) {
	propertyID := uuid.New()
	svc := &mockBoardService{evaluated: 7}
	handler := NewBoardHandler(svc, &mockStatusService{}, zap.NewNop())

	req := makeBoardRequest("POST", fmt.Sprintf("/api/properties/%s/board/recompute", propertyID), nil, propertyID)
	rr := httptest.NewRecorder()

	handler.Recompute(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(7), data["evaluated"])
}

func TestBoardHandler_PatchStatus_Success(t *testing.T) {
	propertyID := uuid.New()
	itemID := uuid.New()
	userID := uuid.New()
	svc := &mockStatusService{status: &models.HomeItemStatus{HomeItemID: itemID, IsPinned: true}}
	handler := NewBoardHandler(&mockBoardService{}, svc, zap.NewNop())

	body := []byte(`{"is_pinned": true}`)
	req := makeBoardRequest("PATCH", fmt.Sprintf("/api/properties/%s/board/items/%s/status", propertyID, itemID), body, propertyID)
	req.SetPathValue("iid", itemID.String())
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	handler.PatchStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, svc.lastActor)
	assert.Equal(t, userID, *svc.lastActor)

	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestBoardHandler_PatchStatus_AnonymousActor(t *testing.T) {
	propertyID := uuid.New()
	itemID := uuid.New()
	svc := &mockStatusService{status: &models.HomeItemStatus{HomeItemID: itemID}}
	handler := NewBoardHandler(&mockBoardService{}, svc, zap.NewNop())

	body := []byte(`{"is_hidden": true}`)
	req := makeBoardRequest("PATCH", fmt.Sprintf("/api/properties/%s/board/items/%s/status", propertyID, itemID), body, propertyID)
	req.SetPathValue("iid", itemID.String())
	rr := httptest.NewRecorder()

	handler.PatchStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, svc.lastActor)
}

func TestBoardHandler_PatchStatus_Validation(t *testing.T) {
	propertyID := uuid.New()
	itemID := uuid.New()
	handler := NewBoardHandler(&mockBoardService{}, &mockStatusService{}, zap.NewNop())

	tests := []struct {
		body     string
		wantCode string
	}{
		{`{}`, "empty_patch"},
		{`{"condition": "terrible"}`, "invalid_condition"},
		{`{"recommendation": "demolish"}`, "invalid_recommendation"},
		{`not json`, "invalid_request"},
	}

	for _, tt := range tests {
		req := makeBoardRequest("PATCH", fmt.Sprintf("/api/properties/%s/board/items/%s/status", propertyID, itemID), []byte(tt.body), propertyID)
		req.SetPathValue("iid", itemID.String())
		rr := httptest.NewRecorder()

		handler.PatchStatus(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "body=%s", tt.body)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, tt.wantCode, resp["error"], "body=%s", tt.body)
	}
}

func TestBoardHandler_PatchStatus_NotFound(t *testing.T) {
	propertyID := uuid.New()
	itemID := uuid.New()
	svc := &mockStatusService{patchErr: apperrors.ErrNotFound}
	handler := NewBoardHandler(&mockBoardService{}, svc, zap.NewNop())

	body := []byte(`{"is_pinned": true}`)
	req := makeBoardRequest("PATCH", fmt.Sprintf("/api/properties/%s/board/items/%s/status", propertyID, itemID), body, propertyID)
	req.SetPathValue("iid", itemID.String())
	rr := httptest.NewRecorder()

	handler.PatchStatus(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBoardHandler_ListEvents(t *testing.T) {
	propertyID := uuid.New()
	itemID := uuid.New()
	svc := &mockStatusService{
		events: []*models.HomeItemEvent{
			{ID: uuid.New(), HomeItemID: itemID, EventType: models.EventComputedUpdate},
			{ID: uuid.New(), HomeItemID: itemID, EventType: models.EventPin},
		},
	}
	handler := NewBoardHandler(&mockBoardService{}, svc, zap.NewNop())

	req := makeBoardRequest("GET", fmt.Sprintf("/api/properties/%s/board/items/%s/events", propertyID, itemID), nil, propertyID)
	req.SetPathValue("iid", itemID.String())
	rr := httptest.NewRecorder()

	handler.ListEvents(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	events := resp.Data.([]any)
	assert.Len(t, events, 2)
}

func TestBoardHandler_ListEvents_NotFound(t *testing.T) {
	propertyID := uuid.New()
	itemID := uuid.New()
	svc := &mockStatusService{eventsErr: apperrors.ErrNotFound}
	handler := NewBoardHandler(&mockBoardService{}, svc, zap.NewNop())

	req := makeBoardRequest("GET", fmt.Sprintf("/api/properties/%s/board/items/%s/events", propertyID, itemID), nil, propertyID)
	req.SetPathValue("iid", itemID.String())
	rr := httptest.NewRecorder()

	handler.ListEvents(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
