package contracts

import "time"

type MaterialCategory string

const (
	CategoryPlastic   MaterialCategory = "plastic"
	CategoryEWaste    MaterialCategory = "e_waste"
	CategoryMetal     MaterialCategory = "metal"
	CategoryPaper     MaterialCategory = "paper"
	CategoryGlass     MaterialCategory = "glass"
	CategoryOrganic   MaterialCategory = "organic"
	CategoryHazardous MaterialCategory = "hazardous"
)

func (c MaterialCategory) Valid() bool {
	switch c {
	case CategoryPlastic, CategoryEWaste, CategoryMetal, CategoryPaper,
		CategoryGlass, CategoryOrganic, CategoryHazardous:
		return true
	}
	return false
}

// HasExpiry reports whether products in this category carry an expiry date.
func (c MaterialCategory) HasExpiry() bool {
	return c == CategoryOrganic || c == CategoryPaper
}

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionDamaged   Condition = "damaged"
	ConditionEndOfLife Condition = "end_of_life"
)

// ProductEvent is one manufactured item, immutable once generated.
type ProductEvent struct {
	ProductID            string           `json:"product_id"`
	BatchNumber          string           `json:"batch_number"`
	ManufacturerID       string           `json:"manufacturer_id"`
	ManufacturerName     string           `json:"manufacturer_name"`
	MaterialType         string           `json:"material_type"`
	MaterialCategory     MaterialCategory `json:"material_category"`
	WeightKg             float64          `json:"weight_kg"`
	CarbonFootprint      float64          `json:"carbon_footprint"`
	RecyclablePercentage float64          `json:"recyclable_percentage"`
	GSTHSNCode           string           `json:"gst_hsn_code"`
	ManufacturingDate    time.Time        `json:"manufacturing_date"`
	ExpiryDate           *time.Time       `json:"expiry_date,omitempty"`
	QRCodeHash           string           `json:"qr_code_hash"`
	GPSLat               float64          `json:"gps_lat"`
	GPSLon               float64          `json:"gps_lon"`
	Source               string           `json:"source"`
}

// RecoveryEvent is one recovered item, at most one per product.
type RecoveryEvent struct {
	RecoveryID           string    `json:"recovery_id"`
	ProductID            string    `json:"product_id"`
	RecoveryCenterID     string    `json:"recovery_center_id"`
	RecoveryCenterName   string    `json:"recovery_center_name"`
	RecoveryDate         time.Time `json:"recovery_date"`
	MaterialType         string    `json:"material_type"`
	WeightRecovered      float64   `json:"weight_recovered"`
	Condition            Condition `json:"condition"`
	RecyclingMethod      string    `json:"recycling_method"`
	RecoveredBy          string    `json:"recovered_by"`
	CircularCreditAmount float64   `json:"circular_credit_amount"`
	GPSLat               float64   `json:"gps_lat"`
	GPSLon               float64   `json:"gps_lon"`
	VerificationHash     string    `json:"verification_hash"`
}

type LedgerStatus string

const (
	StatusRecovered      LedgerStatus = "RECOVERED"
	StatusLeakedCritical LedgerStatus = "LEAKED_CRITICAL"
	StatusInTransit      LedgerStatus = "IN_TRANSIT"
)

// LedgerRow is the joined view of a product and its optional recovery.
// Status and the derived fields are a function of the evaluation time,
// not persisted state.
type LedgerRow struct {
	ProductID           string           `json:"product_id"`
	MaterialType        string           `json:"material_type"`
	MaterialCategory    MaterialCategory `json:"material_category"`
	Manufacturer        string           `json:"manufacturer"`
	ManufacturerID      string           `json:"manufacturer_id"`
	WeightKg            float64          `json:"weight_kg"`
	CarbonFootprint     float64          `json:"carbon_footprint"`
	Recovered           bool             `json:"recovered"`
	RecoveryCenter      string           `json:"recovery_center,omitempty"`
	RecoveryRegion      string           `json:"recovery_region,omitempty"`
	RecoveryDate        *time.Time       `json:"recovery_date,omitempty"`
	CircularCredit      float64          `json:"circular_credit"`
	DaysSinceProduction float64          `json:"days_since_production"`
	Status              LedgerStatus     `json:"status"`
	CarbonSaved         float64          `json:"carbon_saved"`
}

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

const (
	AlertTypeLeakage       = "WASTE_LEAKAGE"
	AlertTypeNonCompliance = "EPR_NON_COMPLIANCE"
)

// Alert is advisory and re-derived on every evaluation; repeated alerts for
// the same target are heartbeat signals, not state transitions.
type Alert struct {
	AlertID           string        `json:"alert_id"`
	AlertType         string        `json:"alert_type"`
	Severity          AlertSeverity `json:"severity"`
	ProductID         string        `json:"product_id"`
	MaterialType      string        `json:"material_type"`
	Description       string        `json:"description"`
	DaysInTransit     float64       `json:"days_in_transit"`
	RecommendedAction string        `json:"recommended_action"`
	Timestamp         time.Time     `json:"timestamp"`
	Location          string        `json:"location"`
}

// RegionalWindowStats is one rollup bucket for one recovery region.
// Windows are right-closed: (WindowStart, WindowEnd].
type RegionalWindowStats struct {
	Region        string    `json:"region"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	RecoveryCount int       `json:"recovery_count"`
	TotalWeight   float64   `json:"total_weight"`
	AvgCredit     float64   `json:"avg_credit"`
}

// ComplianceReport is the per-manufacturer EPR snapshot.
type ComplianceReport struct {
	ManufacturerID    string  `json:"manufacturer_id"`
	Manufacturer      string  `json:"manufacturer"`
	TotalProducts     int     `json:"total_products"`
	RecoveredProducts int     `json:"recovered_products"`
	RecoveryRate      float64 `json:"recovery_rate"`
	TotalCarbonSaved  float64 `json:"total_carbon_saved"`
}

// DataQualityWarning records a non-fatal anomaly seen while ingesting,
// e.g. a duplicate recovery submission for the same product.
type DataQualityWarning struct {
	Kind      string    `json:"kind"`
	ProductID string    `json:"product_id"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

func (p ProductEvent) Key() string  { return p.ProductID }
func (r RecoveryEvent) Key() string { return r.ProductID }
