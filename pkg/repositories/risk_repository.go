package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dwellio-inc/dwellio-engine/pkg/database"
	"github.com/dwellio-inc/dwellio-engine/pkg/models"
)

// RiskRepository reads risk-assessment reports. Report generation is owned
// elsewhere; reconciliation only reads the latest report per property.
type RiskRepository interface {
	// LatestByProperty returns the newest report, or nil when the property
	// has never been assessed.
	LatestByProperty(ctx context.Context, propertyID uuid.UUID) (*models.RiskReport, error)
}

type riskRepository struct{}

// NewRiskRepository creates a new RiskRepository.
func NewRiskRepository() RiskRepository {
	return &riskRepository{}
}

var _ RiskRepository = (*riskRepository)(nil)

func (r *riskRepository) LatestByProperty(ctx context.Context, propertyID uuid.UUID) (*models.RiskReport, error) {
	scope, ok := database.GetPropertyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no property scope in context")
	}

	report := &models.RiskReport{}
	var findingsJSON []byte
	err := scope.Conn.QueryRow(ctx, `
		SELECT id, property_id, findings, created_at
		FROM risk_reports
		WHERE property_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		propertyID,
	).Scan(&report.ID, &report.PropertyID, &findingsJSON, &report.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query risk report: %w", err)
	}

	report.Findings = decodeFindings(findingsJSON)

	return report, nil
}

// decodeFindings parses the findings array entry by entry. A malformed entry
// is dropped instead of failing the report, so reconciliation works off
// whatever parses. A value that is not an array at all yields no findings.
func decodeFindings(data []byte) []models.RiskFinding {
	if len(data) == 0 {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var findings []models.RiskFinding
	for _, entry := range raw {
		var f models.RiskFinding
		if err := json.Unmarshal(entry, &f); err != nil {
			continue
		}
		findings = append(findings, f)
	}
	return findings
}
