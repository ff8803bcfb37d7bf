package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"localhost:19092"}, cfg.KafkaBrokers)
	assert.Equal(t, "waste.products", cfg.KafkaTopicProducts)
	assert.Equal(t, "waste.recoveries", cfg.KafkaTopicRecoveries)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 5000, cfg.RecordCount)
	assert.Equal(t, 0.65, cfg.RecoveryRate)
	assert.Equal(t, 48*time.Hour, cfg.LeakageThreshold)
	assert.Equal(t, 75.0, cfg.ComplianceTarget)
	assert.Equal(t, 7*24*time.Hour, cfg.RollupWindow)
	assert.False(t, cfg.AlertDedupPerProduct)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("LEAKAGE_THRESHOLD_HOURS", "72")
	t.Setenv("COMPLIANCE_TARGET_PERCENT", "90")
	t.Setenv("ALERT_DEDUP_PER_PRODUCT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 72*time.Hour, cfg.LeakageThreshold)
	assert.Equal(t, 90.0, cfg.ComplianceTarget)
	assert.True(t, cfg.AlertDedupPerProduct)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"recovery rate above one", "RECOVERY_RATE", "1.5"},
		{"negative recovery rate", "RECOVERY_RATE", "-0.1"},
		{"zero leakage threshold", "LEAKAGE_THRESHOLD_HOURS", "0"},
		{"compliance target above 100", "COMPLIANCE_TARGET_PERCENT", "120"},
		{"zero rollup window", "ROLLUP_WINDOW_DAYS", "0"},
		{"unparseable leakage threshold", "LEAKAGE_THRESHOLD_HOURS", "banana"},
		{"unparseable compliance target", "COMPLIANCE_TARGET_PERCENT", "most"},
		{"unparseable rollup window", "ROLLUP_WINDOW_DAYS", "1w"},
		{"unparseable recovery rate", "RECOVERY_RATE", "two thirds"},
		{"unparseable record count", "GENERATOR_COUNT", "lots"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestEmptyValuesKeepDefaults(t *testing.T) {
	t.Setenv("GENERATOR_COUNT", "")
	t.Setenv("RECOVERY_RATE", "  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.RecordCount)
	assert.Equal(t, 0.65, cfg.RecoveryRate)
}
