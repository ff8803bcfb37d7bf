package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
)

// ErrValidation marks records that are malformed or logically impossible.
// Such records are rejected from their stream; they never abort processing.
var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Record string // "product" or "recovery"
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s: field %s: %s", e.Record, e.ID, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func ValidateProduct(p contracts.ProductEvent) error {
	if strings.TrimSpace(p.ProductID) == "" {
		return &ValidationError{Record: "product", ID: p.ProductID, Field: "product_id", Reason: "must not be empty"}
	}
	if p.WeightKg <= 0 {
		return &ValidationError{Record: "product", ID: p.ProductID, Field: "weight_kg", Reason: fmt.Sprintf("must be > 0, got %v", p.WeightKg)}
	}
	if !p.MaterialCategory.Valid() {
		return &ValidationError{Record: "product", ID: p.ProductID, Field: "material_category", Reason: fmt.Sprintf("unknown value %q", p.MaterialCategory)}
	}
	if p.ManufacturingDate.IsZero() {
		return &ValidationError{Record: "product", ID: p.ProductID, Field: "manufacturing_date", Reason: "must be set"}
	}
	if p.ExpiryDate != nil && p.ExpiryDate.Before(p.ManufacturingDate) {
		return &ValidationError{Record: "product", ID: p.ProductID, Field: "expiry_date", Reason: "before manufacturing_date"}
	}
	return nil
}

// ValidateRecovery checks a recovery event in isolation. The recovery-date
// versus manufacturing-date cross-check happens in the engine once the
// referenced product is known.
func ValidateRecovery(r contracts.RecoveryEvent) error {
	if strings.TrimSpace(r.ProductID) == "" {
		return &ValidationError{Record: "recovery", ID: r.RecoveryID, Field: "product_id", Reason: "must not be empty"}
	}
	if r.WeightRecovered <= 0 {
		return &ValidationError{Record: "recovery", ID: r.RecoveryID, Field: "weight_recovered", Reason: fmt.Sprintf("must be > 0, got %v", r.WeightRecovered)}
	}
	if r.RecoveryDate.IsZero() {
		return &ValidationError{Record: "recovery", ID: r.RecoveryID, Field: "recovery_date", Reason: "must be set"}
	}
	return nil
}
