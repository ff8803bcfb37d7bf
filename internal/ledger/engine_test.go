package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
)

var evalTime = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func testProduct(id, manufacturerID, manufacturerName string, age time.Duration) contracts.ProductEvent {
	return contracts.ProductEvent{
		ProductID:         id,
		BatchNumber:       "BATCH-202406-001",
		ManufacturerID:    manufacturerID,
		ManufacturerName:  manufacturerName,
		MaterialType:      "PET Plastic",
		MaterialCategory:  contracts.CategoryPlastic,
		WeightKg:          10,
		CarbonFootprint:   25,
		ManufacturingDate: evalTime.Add(-age),
		Source:            "manufacturing",
	}
}

func testRecovery(productID string, date time.Time) contracts.RecoveryEvent {
	return contracts.RecoveryEvent{
		RecoveryID:           "REC-20240614-" + productID,
		ProductID:            productID,
		RecoveryCenterID:     "R001",
		RecoveryCenterName:   "Delhi Recycling Hub",
		RecoveryDate:         date,
		MaterialType:         "PET Plastic",
		WeightRecovered:      8.5,
		Condition:            contracts.ConditionGood,
		RecyclingMethod:      "mechanical",
		RecoveredBy:          "Collector-1",
		CircularCreditAmount: 127.5,
	}
}

func TestClassify(t *testing.T) {
	threshold := 48 * time.Hour
	cases := []struct {
		name      string
		age       time.Duration
		recovered bool
		want      contracts.LedgerStatus
	}{
		{"recovered recent", 10 * time.Hour, true, contracts.StatusRecovered},
		{"recovered old", 100 * time.Hour, true, contracts.StatusRecovered},
		{"in transit", 10 * time.Hour, false, contracts.StatusInTransit},
		{"at threshold", 48 * time.Hour, false, contracts.StatusInTransit},
		{"leaked", 50 * time.Hour, false, contracts.StatusLeakedCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testProduct("P1", "M001", "Tata Steel", tc.age)
			got := Classify(p, tc.recovered, evalTime, threshold)
			assert.Equal(t, tc.want, got)

			// Exactly one status holds.
			statuses := map[contracts.LedgerStatus]bool{got: true}
			assert.Len(t, statuses, 1)
		})
	}
}

func TestCarbonSaved(t *testing.T) {
	p := testProduct("P1", "M001", "Tata Steel", time.Hour)
	assert.Equal(t, 17.5, CarbonSaved(p, true)) // 25 * 0.7
	assert.Equal(t, 0.0, CarbonSaved(p, false))
}

func TestLeakedProductGetsCriticalAlert(t *testing.T) {
	engine := NewEngine(Params{LeakageThreshold: 48 * time.Hour}, refdata.Default(), quietLogger())
	require.NoError(t, engine.AddProduct(testProduct("P-LEAK", "M001", "Tata Steel", 50*time.Hour)))

	snap := engine.Snapshot(evalTime)
	require.Len(t, snap.Ledger, 1)

	row := snap.Ledger[0]
	assert.Equal(t, contracts.StatusLeakedCritical, row.Status)
	assert.InDelta(t, 50.0/24.0, row.DaysSinceProduction, 0.01)
	assert.Equal(t, 0.0, row.CarbonSaved)

	require.Len(t, snap.LeakageAlerts, 1)
	alert := snap.LeakageAlerts[0]
	assert.Equal(t, "P-LEAK", alert.ProductID)
	assert.Equal(t, contracts.SeverityCritical, alert.Severity)
	assert.Equal(t, contracts.AlertTypeLeakage, alert.AlertType)
	assert.Equal(t, "Immediate trace & recovery", alert.RecommendedAction)
	assert.NotEmpty(t, alert.AlertID)
}

func TestRecoveredRowCarriesJoinFields(t *testing.T) {
	engine := NewEngine(Params{}, refdata.Default(), quietLogger())
	require.NoError(t, engine.AddProduct(testProduct("P1", "M001", "Tata Steel", 72*time.Hour)))
	require.NoError(t, engine.AddRecovery(testRecovery("P1", evalTime.Add(-24*time.Hour))))

	snap := engine.Snapshot(evalTime)
	require.Len(t, snap.Ledger, 1)

	row := snap.Ledger[0]
	assert.Equal(t, contracts.StatusRecovered, row.Status)
	assert.True(t, row.Recovered)
	assert.Equal(t, "Delhi Recycling Hub", row.RecoveryCenter)
	assert.Equal(t, "Delhi", row.RecoveryRegion)
	assert.Equal(t, 127.5, row.CircularCredit)
	assert.Equal(t, 17.5, row.CarbonSaved)
	assert.Empty(t, snap.LeakageAlerts)
}

func TestComplianceBoundaryIsStrict(t *testing.T) {
	engine := NewEngine(Params{ComplianceTarget: 75}, refdata.Default(), quietLogger())

	// M001: 3 of 4 recovered = exactly 75% -> no alert.
	// M002: 2 of 4 recovered = 50% -> alert.
	for i, recovered := range []bool{true, true, true, false} {
		id := "A" + string(rune('0'+i))
		require.NoError(t, engine.AddProduct(testProduct(id, "M001", "Tata Steel", time.Hour)))
		if recovered {
			require.NoError(t, engine.AddRecovery(testRecovery(id, evalTime.Add(-30*time.Minute))))
		}
	}
	for i, recovered := range []bool{true, true, false, false} {
		id := "B" + string(rune('0'+i))
		require.NoError(t, engine.AddProduct(testProduct(id, "M002", "Relacy Plastics", time.Hour)))
		if recovered {
			require.NoError(t, engine.AddRecovery(testRecovery(id, evalTime.Add(-30*time.Minute))))
		}
	}

	snap := engine.Snapshot(evalTime)

	require.Len(t, snap.ComplianceReports, 2)
	assert.Equal(t, 75.0, snap.ComplianceReports[0].RecoveryRate)
	assert.Equal(t, 50.0, snap.ComplianceReports[1].RecoveryRate)

	require.Len(t, snap.ComplianceAlerts, 1)
	alert := snap.ComplianceAlerts[0]
	assert.Equal(t, contracts.AlertTypeNonCompliance, alert.AlertType)
	assert.Equal(t, contracts.SeverityHigh, alert.Severity)
	assert.Equal(t, "Relacy Plastics", alert.Location)
	assert.Equal(t, "N/A", alert.ProductID)
}

func TestComplianceComparesUnroundedRate(t *testing.T) {
	// 2 of 3 recovered is 66.666...%, which rounds up to the displayed
	// 66.67 but must still count as below a 66.67 target.
	addThree := func(engine *Engine, manufacturerID, name string) {
		for i, recovered := range []bool{true, true, false} {
			id := manufacturerID + "-" + string(rune('0'+i))
			require.NoError(t, engine.AddProduct(testProduct(id, manufacturerID, name, time.Hour)))
			if recovered {
				require.NoError(t, engine.AddRecovery(testRecovery(id, evalTime.Add(-30*time.Minute))))
			}
		}
	}

	engine := NewEngine(Params{ComplianceTarget: 66.67}, refdata.Default(), quietLogger())
	addThree(engine, "M001", "Tata Steel")

	snap := engine.Snapshot(evalTime)
	require.Len(t, snap.ComplianceReports, 1)
	assert.Equal(t, 66.67, snap.ComplianceReports[0].RecoveryRate)
	assert.Len(t, snap.ComplianceAlerts, 1)

	// The same rate against a target it genuinely meets stays quiet.
	engine = NewEngine(Params{ComplianceTarget: 66.66}, refdata.Default(), quietLogger())
	addThree(engine, "M001", "Tata Steel")
	assert.Empty(t, engine.Snapshot(evalTime).ComplianceAlerts)
}

func TestLeakageAlertDedupFlag(t *testing.T) {
	t.Run("heartbeat by default", func(t *testing.T) {
		engine := NewEngine(Params{}, refdata.Default(), quietLogger())
		require.NoError(t, engine.AddProduct(testProduct("P1", "M001", "Tata Steel", 72*time.Hour)))

		first := engine.Snapshot(evalTime)
		second := engine.Snapshot(evalTime.Add(time.Hour))
		assert.Len(t, first.LeakageAlerts, 1)
		assert.Len(t, second.LeakageAlerts, 1)
	})

	t.Run("dedup suppresses repeats", func(t *testing.T) {
		engine := NewEngine(Params{DedupLeakageAlerts: true}, refdata.Default(), quietLogger())
		require.NoError(t, engine.AddProduct(testProduct("P1", "M001", "Tata Steel", 72*time.Hour)))

		first := engine.Snapshot(evalTime)
		second := engine.Snapshot(evalTime.Add(time.Hour))
		assert.Len(t, first.LeakageAlerts, 1)
		assert.Empty(t, second.LeakageAlerts)
	})
}

func TestDuplicateRecoveryKeepsEarliest(t *testing.T) {
	engine := NewEngine(Params{}, refdata.Default(), quietLogger())
	require.NoError(t, engine.AddProduct(testProduct("P1", "M001", "Tata Steel", 96*time.Hour)))

	later := testRecovery("P1", evalTime.Add(-10*time.Hour))
	earlier := testRecovery("P1", evalTime.Add(-48*time.Hour))
	require.NoError(t, engine.AddRecovery(later))
	require.NoError(t, engine.AddRecovery(earlier))

	snap := engine.Snapshot(evalTime)
	require.Len(t, snap.Ledger, 1)
	require.NotNil(t, snap.Ledger[0].RecoveryDate)
	assert.True(t, snap.Ledger[0].RecoveryDate.Equal(earlier.RecoveryDate))

	require.NotEmpty(t, snap.Warnings)
	assert.Equal(t, "duplicate_recovery", snap.Warnings[0].Kind)
	assert.Equal(t, "P1", snap.Warnings[0].ProductID)
}

func TestRecoveryBeforeManufactureRejected(t *testing.T) {
	engine := NewEngine(Params{}, refdata.Default(), quietLogger())
	p := testProduct("P1", "M001", "Tata Steel", 24*time.Hour)
	require.NoError(t, engine.AddProduct(p))

	err := engine.AddRecovery(testRecovery("P1", p.ManufacturingDate.Add(-time.Hour)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "recovery_date", vErr.Field)
}

func TestOrphanRecoveryAttachesWhenProductArrives(t *testing.T) {
	engine := NewEngine(Params{}, refdata.Default(), quietLogger())

	require.NoError(t, engine.AddRecovery(testRecovery("P1", evalTime.Add(-time.Hour))))
	snap := engine.Snapshot(evalTime)
	assert.Empty(t, snap.Ledger, "unmatched recovery must not create a ledger row")

	require.NoError(t, engine.AddProduct(testProduct("P1", "M001", "Tata Steel", 24*time.Hour)))
	snap = engine.Snapshot(evalTime)
	require.Len(t, snap.Ledger, 1)
	assert.True(t, snap.Ledger[0].Recovered)
}

func TestInvalidOrphanRecoveryDoesNotRejectProduct(t *testing.T) {
	engine := NewEngine(Params{}, refdata.Default(), quietLogger())
	p := testProduct("P1", "M001", "Tata Steel", 24*time.Hour)

	// Recovery arrives first, dated before the product will say it was
	// manufactured. The cross-check only runs once the product shows up,
	// and its failure belongs to the recovery.
	require.NoError(t, engine.AddRecovery(testRecovery("P1", p.ManufacturingDate.Add(-time.Hour))))
	require.NoError(t, engine.AddProduct(p))

	snap := engine.Snapshot(evalTime)
	require.Len(t, snap.Ledger, 1)
	assert.False(t, snap.Ledger[0].Recovered)

	require.NotEmpty(t, snap.Warnings)
	assert.Equal(t, "invalid_recovery", snap.Warnings[0].Kind)
	assert.Equal(t, "P1", snap.Warnings[0].ProductID)
}

func TestValidation(t *testing.T) {
	t.Run("negative product weight", func(t *testing.T) {
		p := testProduct("P1", "M001", "Tata Steel", time.Hour)
		p.WeightKg = -3
		err := ValidateProduct(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))
	})

	t.Run("unknown material category", func(t *testing.T) {
		p := testProduct("P1", "M001", "Tata Steel", time.Hour)
		p.MaterialCategory = "unobtainium"
		require.Error(t, ValidateProduct(p))
	})

	t.Run("negative recovered weight", func(t *testing.T) {
		r := testRecovery("P1", evalTime)
		r.WeightRecovered = 0
		require.Error(t, ValidateRecovery(r))
	})

	t.Run("missing product reference", func(t *testing.T) {
		r := testRecovery("", evalTime)
		r.ProductID = " "
		require.Error(t, ValidateRecovery(r))
	})
}

func TestBatchMatchesStreaming(t *testing.T) {
	catalog := refdata.Default()
	params := Params{LeakageThreshold: 48 * time.Hour, ComplianceTarget: 75}

	products := []contracts.ProductEvent{
		testProduct("P1", "M001", "Tata Steel", 72*time.Hour),
		testProduct("P2", "M001", "Tata Steel", 10*time.Hour),
		testProduct("P3", "M002", "Relacy Plastics", 96*time.Hour),
	}
	recoveries := []contracts.RecoveryEvent{
		testRecovery("P2", evalTime.Add(-time.Hour)),
		testRecovery("P3", evalTime.Add(-48*time.Hour)),
	}

	batchSnap, stats := RunBatch(products, recoveries, evalTime, params, catalog, quietLogger())
	assert.Equal(t, 3, stats.ProductsAccepted)
	assert.Equal(t, 2, stats.RecoveriesAccepted)

	streaming := NewEngine(params, catalog, quietLogger())
	// Feed out of order: recoveries first.
	for _, r := range recoveries {
		require.NoError(t, streaming.AddRecovery(r))
	}
	for _, p := range products {
		require.NoError(t, streaming.AddProduct(p))
	}
	streamSnap := streaming.Snapshot(evalTime)

	assert.Equal(t, batchSnap.Ledger, streamSnap.Ledger)
	assert.Equal(t, batchSnap.RegionalRollups, streamSnap.RegionalRollups)
	assert.Equal(t, batchSnap.ComplianceReports, streamSnap.ComplianceReports)
	require.Len(t, streamSnap.LeakageAlerts, len(batchSnap.LeakageAlerts))
	for i := range streamSnap.LeakageAlerts {
		assert.Equal(t, batchSnap.LeakageAlerts[i].ProductID, streamSnap.LeakageAlerts[i].ProductID)
	}
}
