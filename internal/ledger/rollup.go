package ledger

import (
	"sort"
	"time"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
)

// regionalRollupsLocked buckets every recovery seen so far (matched or not)
// into non-overlapping, right-closed windows of RollupWindow width counting
// back from the evaluation time, grouped by recovery-center region. Events
// flagged as late on arrival are skipped.
func (e *Engine) regionalRollupsLocked(now time.Time) []contracts.RegionalWindowStats {
	events := make([]contracts.RecoveryEvent, 0, len(e.recoveries)+len(e.orphans))
	for _, r := range e.recoveries {
		events = append(events, r)
	}
	for _, r := range e.orphans {
		events = append(events, r)
	}

	type bucketKey struct {
		region string
		index  int
	}
	type bucketAgg struct {
		count       int
		totalWeight float64
		totalCredit float64
	}

	buckets := make(map[bucketKey]*bucketAgg)
	for _, r := range events {
		if e.rollupDrop[r.RecoveryID] {
			continue
		}

		age := now.Sub(r.RecoveryDate)
		index := 0
		if age > 0 {
			index = int(age / e.params.RollupWindow)
		}

		key := bucketKey{region: e.catalog.CenterRegion(r.RecoveryCenterID), index: index}
		agg, ok := buckets[key]
		if !ok {
			agg = &bucketAgg{}
			buckets[key] = agg
		}
		agg.count++
		agg.totalWeight += r.WeightRecovered
		agg.totalCredit += r.CircularCreditAmount
	}

	stats := make([]contracts.RegionalWindowStats, 0, len(buckets))
	for key, agg := range buckets {
		end := now.Add(-time.Duration(key.index) * e.params.RollupWindow)
		stats = append(stats, contracts.RegionalWindowStats{
			Region:        key.region,
			WindowStart:   end.Add(-e.params.RollupWindow),
			WindowEnd:     end,
			RecoveryCount: agg.count,
			TotalWeight:   round2(agg.totalWeight),
			AvgCredit:     round2(agg.totalCredit / float64(agg.count)),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Region == stats[j].Region {
			return stats[i].WindowEnd.After(stats[j].WindowEnd)
		}
		return stats[i].Region < stats[j].Region
	})
	return stats
}
