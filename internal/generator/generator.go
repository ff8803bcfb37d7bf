// Package generator synthesizes the paired production and recovery streams
// used by the demo. All randomness flows through an explicitly seeded source
// and an injected clock, so two runs with the same seed and clock produce
// identical output.
package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
)

const (
	lookbackDays   = 30
	lookbackMeanDy = 5.0 // mean of the exponential age distribution, in days

	weightMinKg = 0.5
	weightMaxKg = 50.0

	recoveryLossMin = 0.70
	recoveryLossMax = 0.98
)

var recyclingMethods = []string{"mechanical", "chemical", "pyrolysis", "composting"}

// conditionWeights is the fixed categorical distribution for the recovered
// item condition.
var conditionWeights = []struct {
	condition contracts.Condition
	weight    float64
}{
	{contracts.ConditionExcellent, 0.2},
	{contracts.ConditionGood, 0.4},
	{contracts.ConditionDamaged, 0.3},
	{contracts.ConditionEndOfLife, 0.1},
}

type Generator struct {
	rng     *rand.Rand
	catalog *refdata.Catalog
	now     time.Time
	log     *logrus.Logger
}

func New(seed int64, catalog *refdata.Catalog, now time.Time, log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Generator{
		rng:     rand.New(rand.NewSource(seed)),
		catalog: catalog,
		now:     now.UTC(),
		log:     log,
	}
}

// Products generates n manufactured-product events, sorted by manufacturing
// date. Manufacturing dates are skewed toward the recent end of a 30-day
// lookback window.
func (g *Generator) Products(n int) []contracts.ProductEvent {
	products := make([]contracts.ProductEvent, 0, n)

	for i := 0; i < n; i++ {
		mfg := g.catalog.Manufacturers[g.rng.Intn(len(g.catalog.Manufacturers))]
		material := g.catalog.Materials[g.rng.Intn(len(g.catalog.Materials))]

		daysAgo := g.rng.ExpFloat64() * lookbackMeanDy
		if daysAgo > lookbackDays {
			daysAgo = lookbackDays
		}
		mfgDate := g.now.Add(-time.Duration(daysAgo * 24 * float64(time.Hour)))

		productID := g.productID(material.Type, mfg.ID, mfgDate)
		weight := round2(weightMinKg + g.rng.Float64()*(weightMaxKg-weightMinKg))

		coord := g.cityCoord(mfg.City)

		p := contracts.ProductEvent{
			ProductID:            productID,
			BatchNumber:          fmt.Sprintf("BATCH-%s-%03d", mfgDate.Format("200601"), 1+g.rng.Intn(999)),
			ManufacturerID:       mfg.ID,
			ManufacturerName:     mfg.Name,
			MaterialType:         material.Type,
			MaterialCategory:     material.Category,
			WeightKg:             weight,
			CarbonFootprint:      round2(weight * material.CarbonPerKg),
			RecyclablePercentage: material.Recyclable,
			GSTHSNCode:           fmt.Sprintf("39%02d%03d", 10+g.rng.Intn(90), 100+g.rng.Intn(900)),
			ManufacturingDate:    mfgDate,
			QRCodeHash:           hash16(productID),
			GPSLat:               coord.Lat + g.jitter(0.1),
			GPSLon:               coord.Lon + g.jitter(0.1),
			Source:               "manufacturing",
		}

		if material.Category.HasExpiry() {
			expiry := mfgDate.AddDate(0, 0, 30+g.rng.Intn(336))
			p.ExpiryDate = &expiry
		}

		products = append(products, p)
	}

	sort.SliceStable(products, func(i, j int) bool {
		if products[i].ManufacturingDate.Equal(products[j].ManufacturingDate) {
			return products[i].ProductID < products[j].ProductID
		}
		return products[i].ManufacturingDate.Before(products[j].ManufacturingDate)
	})
	return products
}

// Recoveries runs an independent Bernoulli trial per product and builds the
// recovery event for each success. Output is sorted by recovery date. No
// product ever gets more than one recovery event.
func (g *Generator) Recoveries(products []contracts.ProductEvent, rate float64) []contracts.RecoveryEvent {
	recoveries := make([]contracts.RecoveryEvent, 0, int(float64(len(products))*rate)+1)

	for _, p := range products {
		if g.rng.Float64() >= rate {
			continue
		}

		center := g.catalog.RecoveryCenters[g.rng.Intn(len(g.catalog.RecoveryCenters))]

		daysSince := int(g.now.Sub(p.ManufacturingDate).Hours() / 24)
		maxDelay := daysSince
		if maxDelay > lookbackDays {
			maxDelay = lookbackDays
		}
		// Never schedule recovery before (or at) manufacturing.
		if maxDelay < 1 {
			maxDelay = 1
		}
		delay := 1 + g.rng.Intn(maxDelay)

		recDate := p.ManufacturingDate.AddDate(0, 0, delay)
		if recDate.After(g.now) {
			recDate = g.now
		}

		recWeight := round2(p.WeightKg * (recoveryLossMin + g.rng.Float64()*(recoveryLossMax-recoveryLossMin)))
		creditRate, known := g.catalog.CreditRate(p.MaterialCategory)
		if !known {
			g.log.WithField("category", p.MaterialCategory).
				Warn("no credit rate for category, using default")
		}

		coord := g.cityCoord(center.City)

		recoveries = append(recoveries, contracts.RecoveryEvent{
			RecoveryID:           fmt.Sprintf("REC-%s-%05d", recDate.Format("20060102"), 10000+g.rng.Intn(90000)),
			ProductID:            p.ProductID,
			RecoveryCenterID:     center.ID,
			RecoveryCenterName:   center.Name,
			RecoveryDate:         recDate,
			MaterialType:         p.MaterialType,
			WeightRecovered:      recWeight,
			Condition:            g.sampleCondition(),
			RecyclingMethod:      recyclingMethods[g.rng.Intn(len(recyclingMethods))],
			RecoveredBy:          fmt.Sprintf("Collector-%d", 1+g.rng.Intn(100)),
			CircularCreditAmount: round2(recWeight * creditRate),
			GPSLat:               coord.Lat + g.jitter(0.5),
			GPSLon:               coord.Lon + g.jitter(0.5),
			VerificationHash:     hash16(p.ProductID + recDate.UTC().Format(time.RFC3339)),
		})
	}

	sort.SliceStable(recoveries, func(i, j int) bool {
		if recoveries[i].RecoveryDate.Equal(recoveries[j].RecoveryDate) {
			return recoveries[i].RecoveryID < recoveries[j].RecoveryID
		}
		return recoveries[i].RecoveryDate.Before(recoveries[j].RecoveryDate)
	})
	return recoveries
}

// StreamSlice re-timestamps the newest k products over the trailing 24
// hours at a 10-minute cadence, producing the replay feed for the live
// demo. The input slice is not modified.
func (g *Generator) StreamSlice(products []contracts.ProductEvent, k int) []contracts.ProductEvent {
	if k > len(products) {
		k = len(products)
	}
	base := g.now.Add(-24 * time.Hour)

	out := make([]contracts.ProductEvent, k)
	copy(out, products[len(products)-k:])
	for i := range out {
		out[i].ManufacturingDate = base.Add(time.Duration(i) * 10 * time.Minute)
	}
	return out
}

func (g *Generator) productID(materialType, manufacturerID string, ts time.Time) string {
	code := strings.ToUpper(materialType)
	if len(code) > 3 {
		code = code[:3]
	}
	suffix := 1000 + g.rng.Intn(9000)
	return fmt.Sprintf("%s%s%s%d", code, manufacturerID, ts.Format("20060102150405"), suffix)
}

func (g *Generator) sampleCondition() contracts.Condition {
	roll := g.rng.Float64()
	acc := 0.0
	for _, cw := range conditionWeights {
		acc += cw.weight
		if roll < acc {
			return cw.condition
		}
	}
	return conditionWeights[len(conditionWeights)-1].condition
}

func (g *Generator) cityCoord(city string) refdata.Coord {
	coord, known := g.catalog.CityCoord(city)
	if !known {
		g.log.WithField("city", city).Warn("unknown city, using national centroid")
	}
	return coord
}

func (g *Generator) jitter(width float64) float64 {
	return g.rng.Float64()*2*width - width
}

func hash16(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
