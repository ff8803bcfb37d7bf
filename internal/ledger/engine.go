// Package ledger joins the production and recovery streams into the
// circular ledger and derives regional rollups, EPR compliance reports and
// advisory alerts from it. The same engine serves both the batch pipeline
// and the streaming consumer: feed it events, then evaluate a snapshot at a
// chosen time.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
)

// carbonSavingFactor is the fraction of a product's footprint counted as
// saved when the product is recycled.
const carbonSavingFactor = 0.7

const (
	leakageAction    = "Immediate trace & recovery"
	complianceAction = "Immediate compliance review"
)

type Params struct {
	LeakageThreshold time.Duration // age after which an unrecovered product is leaked
	ComplianceTarget float64       // minimum recovery rate percentage per manufacturer
	RollupWindow     time.Duration // regional rollup bucket width
	// DedupLeakageAlerts suppresses repeat leakage alerts for a product id
	// already alerted by this engine instance. Off by default: the
	// reference behavior re-emits on every evaluation.
	DedupLeakageAlerts bool
}

func (p Params) withDefaults() Params {
	if p.LeakageThreshold <= 0 {
		p.LeakageThreshold = 48 * time.Hour
	}
	if p.ComplianceTarget <= 0 {
		p.ComplianceTarget = 75
	}
	if p.RollupWindow <= 0 {
		p.RollupWindow = 7 * 24 * time.Hour
	}
	return p
}

// Snapshot is one consistent evaluation of the full ledger.
type Snapshot struct {
	EvaluatedAt         time.Time                       `json:"evaluated_at"`
	Ledger              []contracts.LedgerRow           `json:"ledger"`
	LeakageAlerts       []contracts.Alert               `json:"leakage_alerts"`
	ComplianceAlerts    []contracts.Alert               `json:"compliance_alerts"`
	ComplianceReports   []contracts.ComplianceReport    `json:"compliance_reports"`
	RegionalRollups     []contracts.RegionalWindowStats `json:"regional_rollups"`
	CarbonSavedByRegion map[string]float64              `json:"carbon_saved_by_region"`
	Warnings            []contracts.DataQualityWarning  `json:"warnings"`
}

type Engine struct {
	mu      sync.Mutex
	params  Params
	catalog *refdata.Catalog
	log     *logrus.Logger

	products   map[string]contracts.ProductEvent
	recoveries map[string]contracts.RecoveryEvent // matched, keyed by product id
	orphans    map[string]contracts.RecoveryEvent // recoveries with no product yet
	rollupDrop map[string]bool                    // recovery ids excluded from rollups
	warnings   []contracts.DataQualityWarning
	alerted    map[string]bool // product ids already leakage-alerted
	lastEval   time.Time
}

func NewEngine(params Params, catalog *refdata.Catalog, log *logrus.Logger) *Engine {
	if catalog == nil {
		catalog = refdata.Default()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		params:     params.withDefaults(),
		catalog:    catalog,
		log:        log,
		products:   make(map[string]contracts.ProductEvent),
		recoveries: make(map[string]contracts.RecoveryEvent),
		orphans:    make(map[string]contracts.RecoveryEvent),
		rollupDrop: make(map[string]bool),
		alerted:    make(map[string]bool),
	}
}

// AddProduct validates and registers a product event. If an orphan recovery
// for the same product id arrived earlier it is attached now.
func (e *Engine) AddProduct(p contracts.ProductEvent) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.products[p.ProductID]; exists {
		e.warn("duplicate_product", p.ProductID, "product id already registered, keeping first")
		return nil
	}
	e.products[p.ProductID] = p

	if orphan, ok := e.orphans[p.ProductID]; ok {
		delete(e.orphans, p.ProductID)
		// The product itself is registered either way; a held recovery that
		// fails the cross-check is the recovery's defect, not the product's.
		if err := e.attachLocked(p, orphan); err != nil {
			e.warn("invalid_recovery", p.ProductID, err.Error())
		}
	}
	return nil
}

// AddRecovery validates and registers a recovery event. Unmatched
// recoveries are held aside until their product arrives; duplicates keep
// the earliest recovery date and record a data-quality warning.
func (e *Engine) AddRecovery(r contracts.RecoveryEvent) error {
	if err := ValidateRecovery(r); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.checkRollupLatenessLocked(r)

	product, known := e.products[r.ProductID]
	if !known {
		if existing, dup := e.orphans[r.ProductID]; dup {
			e.orphans[r.ProductID] = earliest(existing, r)
			e.warn("duplicate_recovery", r.ProductID, "multiple recovery submissions, keeping earliest")
			return nil
		}
		e.orphans[r.ProductID] = r
		return nil
	}

	return e.attachLocked(product, r)
}

func (e *Engine) attachLocked(p contracts.ProductEvent, r contracts.RecoveryEvent) error {
	if r.RecoveryDate.Before(p.ManufacturingDate) {
		return &ValidationError{
			Record: "recovery",
			ID:     r.RecoveryID,
			Field:  "recovery_date",
			Reason: "before manufacturing_date of referenced product",
		}
	}

	if existing, dup := e.recoveries[p.ProductID]; dup {
		e.recoveries[p.ProductID] = earliest(existing, r)
		e.warn("duplicate_recovery", p.ProductID, "multiple recovery submissions, keeping earliest")
		return nil
	}
	e.recoveries[p.ProductID] = r
	return nil
}

// checkRollupLatenessLocked drops events that arrive after their rollup
// window has already passed. The event still joins the ledger; there is no
// out-of-order backfill for windowed aggregates.
func (e *Engine) checkRollupLatenessLocked(r contracts.RecoveryEvent) {
	if e.lastEval.IsZero() {
		return
	}
	windowStart := e.lastEval.Add(-e.params.RollupWindow)
	if !r.RecoveryDate.After(windowStart) {
		e.rollupDrop[r.RecoveryID] = true
		e.log.WithFields(logrus.Fields{
			"recovery_id":   r.RecoveryID,
			"recovery_date": r.RecoveryDate,
			"window_start":  windowStart,
		}).Warn("late recovery outside current rollup window, excluded from rollups")
	}
}

// Snapshot evaluates the full ledger at the given time. The evaluation
// clock only moves forward; an earlier time reuses the latest one.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if now.Before(e.lastEval) {
		now = e.lastEval
	}
	e.lastEval = now

	rows := e.buildLedgerLocked(now)
	snap := Snapshot{
		EvaluatedAt:         now,
		Ledger:              rows,
		LeakageAlerts:       e.leakageAlertsLocked(rows, now),
		ComplianceReports:   complianceReports(rows),
		RegionalRollups:     e.regionalRollupsLocked(now),
		CarbonSavedByRegion: carbonSavedByRegion(rows),
		Warnings:            append([]contracts.DataQualityWarning(nil), e.warnings...),
	}
	snap.ComplianceAlerts = e.complianceAlertsLocked(snap.ComplianceReports, now)
	return snap
}

// Classify is the status function: RECOVERED iff a recovery exists, else
// LEAKED_CRITICAL once the product's age exceeds the threshold, else
// IN_TRANSIT. Exactly one holds at any evaluation time.
func Classify(p contracts.ProductEvent, recovered bool, now time.Time, threshold time.Duration) contracts.LedgerStatus {
	if recovered {
		return contracts.StatusRecovered
	}
	if now.Sub(p.ManufacturingDate) > threshold {
		return contracts.StatusLeakedCritical
	}
	return contracts.StatusInTransit
}

// CarbonSaved is zero unless the product was recovered.
func CarbonSaved(p contracts.ProductEvent, recovered bool) float64 {
	if !recovered {
		return 0
	}
	return round2(p.CarbonFootprint * carbonSavingFactor)
}

func (e *Engine) buildLedgerLocked(now time.Time) []contracts.LedgerRow {
	ids := make([]string, 0, len(e.products))
	for id := range e.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := e.products[ids[i]], e.products[ids[j]]
		if pi.ManufacturingDate.Equal(pj.ManufacturingDate) {
			return pi.ProductID < pj.ProductID
		}
		return pi.ManufacturingDate.Before(pj.ManufacturingDate)
	})

	rows := make([]contracts.LedgerRow, 0, len(ids))
	for _, id := range ids {
		p := e.products[id]
		rec, recovered := e.recoveries[id]

		row := contracts.LedgerRow{
			ProductID:           p.ProductID,
			MaterialType:        p.MaterialType,
			MaterialCategory:    p.MaterialCategory,
			Manufacturer:        p.ManufacturerName,
			ManufacturerID:      p.ManufacturerID,
			WeightKg:            p.WeightKg,
			CarbonFootprint:     p.CarbonFootprint,
			Recovered:           recovered,
			DaysSinceProduction: round2(now.Sub(p.ManufacturingDate).Hours() / 24),
			Status:              Classify(p, recovered, now, e.params.LeakageThreshold),
			CarbonSaved:         CarbonSaved(p, recovered),
		}
		if recovered {
			recDate := rec.RecoveryDate
			row.RecoveryCenter = rec.RecoveryCenterName
			row.RecoveryRegion = e.catalog.CenterRegion(rec.RecoveryCenterID)
			row.RecoveryDate = &recDate
			row.CircularCredit = rec.CircularCreditAmount
		}
		rows = append(rows, row)
	}
	return rows
}

func (e *Engine) leakageAlertsLocked(rows []contracts.LedgerRow, now time.Time) []contracts.Alert {
	thresholdHours := int(e.params.LeakageThreshold.Hours())
	alerts := make([]contracts.Alert, 0)

	for _, row := range rows {
		if row.Status != contracts.StatusLeakedCritical {
			continue
		}
		if e.params.DedupLeakageAlerts && e.alerted[row.ProductID] {
			continue
		}
		e.alerted[row.ProductID] = true

		alerts = append(alerts, contracts.Alert{
			AlertID:           uuid.NewString(),
			AlertType:         contracts.AlertTypeLeakage,
			Severity:          contracts.SeverityCritical,
			ProductID:         row.ProductID,
			MaterialType:      row.MaterialType,
			Description:       fmt.Sprintf("Product exceeds %dhr recovery window", thresholdHours),
			DaysInTransit:     row.DaysSinceProduction,
			RecommendedAction: leakageAction,
			Timestamp:         now,
			Location:          "Unknown",
		})
	}
	return alerts
}

func complianceReports(rows []contracts.LedgerRow) []contracts.ComplianceReport {
	type agg struct {
		name        string
		total       int
		recovered   int
		carbonSaved float64
	}
	byManufacturer := make(map[string]*agg)
	order := make([]string, 0)

	for _, row := range rows {
		a, ok := byManufacturer[row.ManufacturerID]
		if !ok {
			a = &agg{name: row.Manufacturer}
			byManufacturer[row.ManufacturerID] = a
			order = append(order, row.ManufacturerID)
		}
		a.total++
		if row.Recovered {
			a.recovered++
		}
		a.carbonSaved += row.CarbonSaved
	}
	sort.Strings(order)

	reports := make([]contracts.ComplianceReport, 0, len(order))
	for _, id := range order {
		a := byManufacturer[id]
		if a.total == 0 {
			continue
		}
		reports = append(reports, contracts.ComplianceReport{
			ManufacturerID:    id,
			Manufacturer:      a.name,
			TotalProducts:     a.total,
			RecoveredProducts: a.recovered,
			RecoveryRate:      round2(float64(a.recovered) / float64(a.total) * 100),
			TotalCarbonSaved:  round2(a.carbonSaved),
		})
	}
	return reports
}

// complianceAlertsLocked flags every manufacturer strictly below the
// target. The comparison uses the exact rate, not the rounded display
// value, so a rate a hair under the target still fires. Failures are
// isolated per manufacturer: a bad report never stops the rest from being
// evaluated.
func (e *Engine) complianceAlertsLocked(reports []contracts.ComplianceReport, now time.Time) []contracts.Alert {
	alerts := make([]contracts.Alert, 0)
	for _, report := range reports {
		if report.TotalProducts <= 0 {
			e.log.WithField("manufacturer", report.ManufacturerID).
				Warn("skipping compliance rollup with no products")
			continue
		}
		rate := float64(report.RecoveredProducts) / float64(report.TotalProducts) * 100
		if rate >= e.params.ComplianceTarget {
			continue
		}
		alerts = append(alerts, contracts.Alert{
			AlertID:           uuid.NewString(),
			AlertType:         contracts.AlertTypeNonCompliance,
			Severity:          contracts.SeverityHigh,
			ProductID:         "N/A",
			MaterialType:      "ALL",
			Description:       fmt.Sprintf("Manufacturer below %.1f%% recovery target", e.params.ComplianceTarget),
			DaysInTransit:     0,
			RecommendedAction: complianceAction,
			Timestamp:         now,
			Location:          report.Manufacturer,
		})
	}
	return alerts
}

func carbonSavedByRegion(rows []contracts.LedgerRow) map[string]float64 {
	byRegion := make(map[string]float64)
	for _, row := range rows {
		if !row.Recovered || row.RecoveryRegion == "" {
			continue
		}
		byRegion[row.RecoveryRegion] = round2(byRegion[row.RecoveryRegion] + row.CarbonSaved)
	}
	return byRegion
}

func (e *Engine) warn(kind, productID, detail string) {
	w := contracts.DataQualityWarning{
		Kind:      kind,
		ProductID: productID,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
	e.warnings = append(e.warnings, w)
	e.log.WithFields(logrus.Fields{"kind": kind, "product_id": productID}).Warn(detail)
}

func earliest(a, b contracts.RecoveryEvent) contracts.RecoveryEvent {
	if b.RecoveryDate.Before(a.RecoveryDate) {
		return b
	}
	return a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
