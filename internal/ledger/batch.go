package ledger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
)

// BatchStats reports what the load-and-validate phase accepted.
type BatchStats struct {
	ProductsAccepted   int
	ProductsRejected   int
	RecoveriesAccepted int
	RecoveriesRejected int
	ValidationErrors   []error
}

// RunBatch is the two-phase batch pipeline: load and validate both event
// sets into a fresh engine, then evaluate one snapshot at the given time.
// For identical inputs and evaluation time the result matches a streaming
// engine fed the same events.
func RunBatch(
	products []contracts.ProductEvent,
	recoveries []contracts.RecoveryEvent,
	now time.Time,
	params Params,
	catalog *refdata.Catalog,
	log *logrus.Logger,
) (Snapshot, BatchStats) {
	engine := NewEngine(params, catalog, log)
	stats := BatchStats{}

	for _, p := range products {
		if err := engine.AddProduct(p); err != nil {
			stats.ProductsRejected++
			stats.ValidationErrors = append(stats.ValidationErrors, err)
			if log != nil {
				log.WithField("product_id", p.ProductID).Warnf("rejected product: %v", err)
			}
			continue
		}
		stats.ProductsAccepted++
	}

	for _, r := range recoveries {
		if err := engine.AddRecovery(r); err != nil {
			stats.RecoveriesRejected++
			stats.ValidationErrors = append(stats.ValidationErrors, err)
			if log != nil {
				log.WithField("recovery_id", r.RecoveryID).Warnf("rejected recovery: %v", err)
			}
			continue
		}
		stats.RecoveriesAccepted++
	}

	return engine.Snapshot(now), stats
}
