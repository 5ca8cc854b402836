package counter

import (
	"context"
	"strconv"

	"github.com/acsk/AppCheckin-sub000/internal/pkg/cache"
)

const (
	webhookOutcomesKey   = "webhook:counters:outcomes"
	settlementMethodsKey = "payment:counters:methods"
	decaySweepChangesKey = "decay:counters:changes"
)

// AddWebhookOutcome increments the counter for one reconciliation outcome
// code (activated, duplicate, recorded, canceled, error, unresolvable).
func AddWebhookOutcome(code string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookOutcomesKey, code, 1).Err()
}

// AddSettlement increments the counter for a settlement payment method.
func AddSettlement(method string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, settlementMethodsKey, method, 1).Err()
}

// AddDecayChanges accumulates the number of rows a decay sweep touched.
func AddDecayChanges(n int64) error {
	if n == 0 {
		return nil
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, decaySweepChangesKey, "total", n).Err()
}

// Snapshot returns all counters grouped by family, for the admin metrics
// endpoint. Counters are cumulative since the cache was last flushed.
func Snapshot() (map[string]map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	out := make(map[string]map[string]int64, 3)
	for family, key := range map[string]string{
		"webhook_outcomes":   webhookOutcomesKey,
		"settlement_methods": settlementMethodsKey,
		"decay_sweeps":       decaySweepChangesKey,
	} {
		data, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		group := make(map[string]int64, len(data))
		for field, raw := range data {
			if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
				group[field] = v
			}
		}
		out[family] = group
	}
	return out, nil
}
