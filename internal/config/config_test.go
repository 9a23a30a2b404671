package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"DB_DSN": "postgres://localhost/studio"}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 9, cfg.WorkStart)
	assert.Equal(t, 20, cfg.WorkEnd)
	assert.Equal(t, 24*time.Hour, cfg.ConversationTTL)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, "studio.booking.events", cfg.AMQPQueue)
	assert.Equal(t, "Europe/Kyiv", cfg.Location.String())
	assert.Equal(t, Prices{Base: 1000, PerExtraPerson: 100, ZoneBoth: 300, PerExtraAnimal: 100, BackgroundExtra: 200}, cfg.Prices)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.AdminAuthEnabled())
	assert.Empty(t, cfg.AdminChatIDs)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STORAGE_DRIVER":          "memory",
		"BOT_USERNAME":            "@studio_bot",
		"TELEGRAM_ADMIN_CHAT_IDS": "111, 222,,333",
		"WORK_START_HOUR":         "10",
		"WORK_END_HOUR":           "18",
		"PRICE_BASE":              "1500",
		"CONVERSATION_TTL":        "90m",
		"METRICS_ENABLED":         "false",
		"JWT_SECRET":              "s",
		"ADMIN_PASSWORD_HASH":     "h",
	}))
	require.NoError(t, err)

	assert.Equal(t, "studio_bot", cfg.BotUsername)
	assert.Equal(t, []int64{111, 222, 333}, cfg.AdminChatIDs)
	assert.Equal(t, 10, cfg.WorkStart)
	assert.Equal(t, 18, cfg.WorkEnd)
	assert.Equal(t, 1500, cfg.Prices.Base)
	assert.Equal(t, 90*time.Minute, cfg.ConversationTTL)
	assert.False(t, cfg.MetricsEnabled)
	assert.True(t, cfg.AdminAuthEnabled())
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing dsn", map[string]string{}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mongo"}},
		{"bad admin id", map[string]string{"STORAGE_DRIVER": "memory", "TELEGRAM_ADMIN_CHAT_IDS": "12,abc"}},
		{"bad hour", map[string]string{"STORAGE_DRIVER": "memory", "WORK_START_HOUR": "nine"}},
		{"inverted window", map[string]string{"STORAGE_DRIVER": "memory", "WORK_START_HOUR": "21"}},
		{"end past midnight", map[string]string{"STORAGE_DRIVER": "memory", "WORK_END_HOUR": "24"}},
		{"negative price", map[string]string{"STORAGE_DRIVER": "memory", "PRICE_ZONE_BOTH": "-1"}},
		{"bad ttl", map[string]string{"STORAGE_DRIVER": "memory", "CONVERSATION_TTL": "day"}},
		{"bad timezone", map[string]string{"STORAGE_DRIVER": "memory", "STUDIO_TIMEZONE": "Mars/Olympus"}},
		{"zero rate", map[string]string{"STORAGE_DRIVER": "memory", "RATE_LIMIT_PER_MINUTE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.values))
			assert.Error(t, err)
		})
	}
}
