package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertLedgerRows replaces the stored view of each product with the latest
// evaluation. One bad row does not abort the rest.
func (r *Repository) UpsertLedgerRows(ctx context.Context, rows []contracts.LedgerRow, evaluatedAt time.Time) (int, error) {
	stored := 0
	var firstErr error
	for _, row := range rows {
		_, err := r.pool.Exec(ctx, `
        INSERT INTO ledger_rows
            (product_id, material_type, material_category, manufacturer, manufacturer_id,
             weight_kg, carbon_footprint, recovered, recovery_center, recovery_region,
             recovery_date, circular_credit, days_since_production, status, carbon_saved,
             evaluated_at, updated_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
        ON CONFLICT (product_id) DO UPDATE SET
            recovered = EXCLUDED.recovered,
            recovery_center = EXCLUDED.recovery_center,
            recovery_region = EXCLUDED.recovery_region,
            recovery_date = EXCLUDED.recovery_date,
            circular_credit = EXCLUDED.circular_credit,
            days_since_production = EXCLUDED.days_since_production,
            status = EXCLUDED.status,
            carbon_saved = EXCLUDED.carbon_saved,
            evaluated_at = EXCLUDED.evaluated_at,
            updated_at = NOW()
    `, row.ProductID, row.MaterialType, row.MaterialCategory, row.Manufacturer, row.ManufacturerID,
			row.WeightKg, row.CarbonFootprint, row.Recovered, row.RecoveryCenter, row.RecoveryRegion,
			row.RecoveryDate, row.CircularCredit, row.DaysSinceProduction, row.Status, row.CarbonSaved,
			evaluatedAt)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("upsert ledger row %s: %w", row.ProductID, err)
			}
			continue
		}
		stored++
	}
	return stored, firstErr
}

func (r *Repository) InsertAlerts(ctx context.Context, alerts []contracts.Alert) (int, error) {
	stored := 0
	var firstErr error
	for _, a := range alerts {
		if a.AlertID == "" {
			a.AlertID = uuid.NewString()
		}
		_, err := r.pool.Exec(ctx, `
        INSERT INTO alerts
            (alert_id, alert_type, severity, product_id, material_type, description,
             days_in_transit, recommended_action, location, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (alert_id) DO NOTHING
    `, a.AlertID, a.AlertType, a.Severity, a.ProductID, a.MaterialType, a.Description,
			a.DaysInTransit, a.RecommendedAction, a.Location, a.Timestamp)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("insert alert %s: %w", a.AlertID, err)
			}
			continue
		}
		stored++
	}
	return stored, firstErr
}

func (r *Repository) ListLedger(ctx context.Context, status, manufacturerID string, limit int) ([]contracts.LedgerRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
        SELECT product_id, material_type, material_category, manufacturer, manufacturer_id,
               weight_kg, carbon_footprint, recovered, recovery_center, recovery_region,
               recovery_date, circular_credit, days_since_production, status, carbon_saved
        FROM ledger_rows
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR manufacturer_id = $2)
        ORDER BY days_since_production DESC, product_id
        LIMIT $3
    `, status, manufacturerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	results := make([]contracts.LedgerRow, 0, limit)
	for rows.Next() {
		var row contracts.LedgerRow
		if err := rows.Scan(
			&row.ProductID,
			&row.MaterialType,
			&row.MaterialCategory,
			&row.Manufacturer,
			&row.ManufacturerID,
			&row.WeightKg,
			&row.CarbonFootprint,
			&row.Recovered,
			&row.RecoveryCenter,
			&row.RecoveryRegion,
			&row.RecoveryDate,
			&row.CircularCredit,
			&row.DaysSinceProduction,
			&row.Status,
			&row.CarbonSaved,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		results = append(results, row)
	}

	return results, nil
}

func (r *Repository) ListAlerts(ctx context.Context, alertType, severity string, limit int) ([]contracts.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
        SELECT alert_id, alert_type, severity, product_id, material_type, description,
               days_in_transit, recommended_action, location, created_at
        FROM alerts
        WHERE ($1 = '' OR alert_type = $1)
          AND ($2 = '' OR severity = $2)
        ORDER BY created_at DESC
        LIMIT $3
    `, alertType, severity, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]contracts.Alert, 0, limit)
	for rows.Next() {
		var a contracts.Alert
		if err := rows.Scan(
			&a.AlertID,
			&a.AlertType,
			&a.Severity,
			&a.ProductID,
			&a.MaterialType,
			&a.Description,
			&a.DaysInTransit,
			&a.RecommendedAction,
			&a.Location,
			&a.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, nil
}

type DashboardSummary struct {
	TotalProducts    int     `json:"total_products"`
	Recovered        int     `json:"recovered"`
	LeakedCritical   int     `json:"leaked_critical"`
	InTransit        int     `json:"in_transit"`
	RecoveryRate     float64 `json:"recovery_rate"`
	TotalCarbonSaved float64 `json:"total_carbon_saved"`
	CriticalAlerts24 int     `json:"critical_alerts_last_24h"`
}

func (r *Repository) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	var summary DashboardSummary
	err := r.pool.QueryRow(ctx, `
        SELECT
            COUNT(*) AS total_products,
            COUNT(*) FILTER (WHERE status = 'RECOVERED') AS recovered,
            COUNT(*) FILTER (WHERE status = 'LEAKED_CRITICAL') AS leaked_critical,
            COUNT(*) FILTER (WHERE status = 'IN_TRANSIT') AS in_transit,
            CASE WHEN COUNT(*) = 0 THEN 0
                 ELSE ROUND((COUNT(*) FILTER (WHERE recovered))::numeric / COUNT(*) * 100, 2)::float8
            END AS recovery_rate,
            COALESCE(SUM(carbon_saved), 0) AS total_carbon_saved,
            COALESCE((
                SELECT COUNT(*)
                FROM alerts
                WHERE severity = 'critical'
                  AND created_at >= NOW() - INTERVAL '24 hours'
            ), 0) AS critical_alerts_last_24h
        FROM ledger_rows
    `).Scan(
		&summary.TotalProducts,
		&summary.Recovered,
		&summary.LeakedCritical,
		&summary.InTransit,
		&summary.RecoveryRate,
		&summary.TotalCarbonSaved,
		&summary.CriticalAlerts24,
	)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("dashboard summary: %w", err)
	}
	return summary, nil
}

func (r *Repository) ComplianceByManufacturer(ctx context.Context) ([]contracts.ComplianceReport, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT
            manufacturer_id,
            MAX(manufacturer) AS manufacturer,
            COUNT(*) AS total_products,
            COUNT(*) FILTER (WHERE recovered) AS recovered_products,
            ROUND((COUNT(*) FILTER (WHERE recovered))::numeric / COUNT(*) * 100, 2)::float8 AS recovery_rate,
            ROUND(COALESCE(SUM(carbon_saved), 0)::numeric, 2)::float8 AS total_carbon_saved
        FROM ledger_rows
        GROUP BY manufacturer_id
        ORDER BY manufacturer_id
    `)
	if err != nil {
		return nil, fmt.Errorf("compliance query: %w", err)
	}
	defer rows.Close()

	reports := make([]contracts.ComplianceReport, 0, 8)
	for rows.Next() {
		var report contracts.ComplianceReport
		if err := rows.Scan(
			&report.ManufacturerID,
			&report.Manufacturer,
			&report.TotalProducts,
			&report.RecoveredProducts,
			&report.RecoveryRate,
			&report.TotalCarbonSaved,
		); err != nil {
			return nil, fmt.Errorf("compliance scan: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, nil
}
