package database

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dwellio-inc/dwellio-engine/pkg/apperrors"
)

// WithPropertyContext creates middleware that resolves the {pid} path
// parameter, verifies the property exists, and sets up a property-scoped DB
// connection for the request. The connection is cleaned up after the handler
// returns.
func WithPropertyContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			propertyID, err := uuid.Parse(r.PathValue("pid"))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_property_id", "Invalid property ID format")
				return
			}

			scope, err := db.WithProperty(r.Context(), propertyID)
			if err != nil {
				logger.Error("Failed to acquire property connection",
					zap.String("property_id", propertyID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			if err := resolveProperty(r.Context(), scope, propertyID); err != nil {
				if errors.Is(err, apperrors.ErrPropertyNotFound) {
					writeError(w, http.StatusNotFound, "property_not_found", "Property not found")
					return
				}
				logger.Error("Failed to resolve property",
					zap.String("property_id", propertyID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database error")
				return
			}

			ctx := SetPropertyScope(r.Context(), scope)
			next(w, r.WithContext(ctx))
		}
	}
}

// resolveProperty verifies the property exists. Returns
// apperrors.ErrPropertyNotFound when it does not.
func resolveProperty(ctx context.Context, scope *PropertyScope, propertyID uuid.UUID) error {
	var exists bool
	err := scope.Conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM properties WHERE id = $1)", propertyID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrPropertyNotFound
	}
	return nil
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
