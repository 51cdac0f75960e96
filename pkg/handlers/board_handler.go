package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/apperrors"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
	"github.com/dwellio-inc/dwellio-engine/pkg/services"
)

// PropertyMiddleware wraps a handler with property resolution and a scoped
// database connection.
type PropertyMiddleware func(http.HandlerFunc) http.HandlerFunc

// BoardHandler handles status board HTTP requests.
type BoardHandler struct {
	boardService  services.BoardService
	statusService services.StatusService
	logger        *zap.Logger
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(boardService services.BoardService, statusService services.StatusService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{
		boardService:  boardService,
		statusService: statusService,
		logger:        logger,
	}
}

// RegisterRoutes registers the board handler's routes on the given mux.
func (h *BoardHandler) RegisterRoutes(mux *http.ServeMux, propertyMiddleware PropertyMiddleware) {
	base := "/api/properties/{pid}/board"

	mux.HandleFunc("GET "+base, propertyMiddleware(h.GetBoard))
	mux.HandleFunc("POST "+base+"/recompute", propertyMiddleware(h.Recompute))
	mux.HandleFunc("PATCH "+base+"/items/{iid}/status", propertyMiddleware(h.PatchStatus))
	mux.HandleFunc("GET "+base+"/items/{iid}/events", propertyMiddleware(h.ListEvents))
}

// GetBoard handles GET /api/properties/{pid}/board
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := ParsePropertyID(w, r, h.logger)
	if !ok {
		return
	}

	query, ok := h.parseBoardQuery(w, r)
	if !ok {
		return
	}

	page, err := h.boardService.List(r.Context(), propertyID, query)
	if err != nil {
		h.logger.Error("Failed to build board", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "board_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    page,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Recompute handles POST /api/properties/{pid}/board/recompute
func (h *BoardHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := ParsePropertyID(w, r, h.logger)
	if !ok {
		return
	}

	evaluated, err := h.boardService.Recompute(r.Context(), propertyID)
	if err != nil {
		h.logger.Error("Failed to recompute board", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "recompute_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]int{"evaluated": evaluated},
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// PatchStatus handles PATCH /api/properties/{pid}/board/items/{iid}/status
func (h *BoardHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := ParsePropertyID(w, r, h.logger)
	if !ok {
		return
	}
	itemID, ok := ParseItemID(w, r, h.logger)
	if !ok {
		return
	}

	var patch models.StatusPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if patch.IsEmpty() {
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_patch", "Patch must set at least one field"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if patch.Condition.Valid && !models.IsValidCondition(patch.Condition.Value) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_condition", "Condition must be 'good', 'monitor' or 'action_needed'"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if patch.Recommendation.Valid && !models.IsValidRecommendation(patch.Recommendation.Value) {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_recommendation", "Recommendation must be 'ok', 'repair' or 'replace_soon'"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	status, err := h.statusService.Patch(r.Context(), propertyID, itemID, actorID(r), &patch)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "item_not_found", "Board item not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to patch status", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "patch_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    status,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListEvents handles GET /api/properties/{pid}/board/items/{iid}/events
func (h *BoardHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := ParsePropertyID(w, r, h.logger)
	if !ok {
		return
	}
	itemID, ok := ParseItemID(w, r, h.logger)
	if !ok {
		return
	}

	limit, ok := h.parseLimit(w, r, 50)
	if !ok {
		return
	}

	events, err := h.statusService.Events(r.Context(), propertyID, itemID, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "item_not_found", "Board item not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to list events", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "list_events_failed", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if events == nil {
		events = make([]*models.HomeItemEvent, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    events,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseBoardQuery validates the board query string. Unknown enum values are
// rejected rather than silently ignored.
func (h *BoardHandler) parseBoardQuery(w http.ResponseWriter, r *http.Request) (*models.BoardQuery, bool) {
	q := r.URL.Query()

	query := &models.BoardQuery{
		Search:        q.Get("q"),
		CategoryKey:   q.Get("category"),
		Condition:     q.Get("condition"),
		GroupBy:       q.Get("group_by"),
		PinnedOnly:    q.Get("pinned_only") == "true",
		IncludeHidden: q.Get("include_hidden") == "true",
		Page:          1,
		Limit:         models.BoardDefaultLimit,
	}

	if query.Condition != "" && !models.IsValidCondition(query.Condition) {
		h.writeBadRequest(w, "invalid_condition", "Condition must be 'good', 'monitor' or 'action_needed'")
		return nil, false
	}
	switch query.GroupBy {
	case "", models.GroupByCondition, models.GroupByCategory, models.GroupByRoom:
	default:
		h.writeBadRequest(w, "invalid_group_by", "group_by must be 'condition', 'category' or 'room'")
		return nil, false
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			h.writeBadRequest(w, "invalid_page", "page must be a positive integer")
			return nil, false
		}
		query.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.writeBadRequest(w, "invalid_limit", "limit must be a positive integer")
			return nil, false
		}
		if limit > models.BoardMaxLimit {
			limit = models.BoardMaxLimit
		}
		query.Limit = limit
	}

	return query, true
}

func (h *BoardHandler) parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		h.writeBadRequest(w, "invalid_limit", "limit must be a positive integer")
		return 0, false
	}
	if limit > models.BoardMaxLimit {
		limit = models.BoardMaxLimit
	}
	return limit, true
}

func (h *BoardHandler) writeBadRequest(w http.ResponseWriter, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// actorID reads the acting user from the X-User-ID header. Identity is
// asserted upstream; a missing or malformed header yields an anonymous actor.
func actorID(r *http.Request) *uuid.UUID {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
