package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PropertyScope wraps a connection with property context and ensures cleanup.
// The connection has app.current_property_id set for RLS policy evaluation.
type PropertyScope struct {
	Conn       *pgxpool.Conn
	PropertyID uuid.UUID
}

// Close resets property context and releases the connection to the pool.
// This MUST be called to prevent property context from leaking to the next
// request.
func (s *PropertyScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_property_id")
	s.Conn.Release()
}

// WithProperty acquires a connection and sets the property context for RLS.
// The returned PropertyScope MUST be closed with defer scope.Close().
func (db *DB) WithProperty(ctx context.Context, propertyID uuid.UUID) (*PropertyScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_property_id', $1, false)", propertyID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &PropertyScope{Conn: conn, PropertyID: propertyID}, nil
}

// WithoutProperty acquires a connection without property context. Use this
// for cross-property operations (health checks, property resolution).
// The returned PropertyScope MUST be closed with defer scope.Close().
func (db *DB) WithoutProperty(ctx context.Context) (*PropertyScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &PropertyScope{Conn: conn}, nil
}
