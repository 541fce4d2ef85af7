package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err, "defaults alone should produce a valid configuration")

	assert.Equal(t, "https://api-sdp.canpl.ca/v1/cpl/football", cfg.APIBaseURL)
	assert.Equal(t, 2019, cfg.FirstSeason)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.CacheEnabled(), "no Redis address means caching is off")
	assert.False(t, cfg.AlertsEnabled(), "no Telegram token means alerts are off")
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CPLODDS_REDIS_ADDR", "localhost:6379")
	t.Setenv("CPLODDS_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("CPLODDS_TELEGRAM_CHAT_ID", "42")
	t.Setenv("CPLODDS_HOME_ADVANTAGE", "0.3")
	t.Setenv("CPLODDS_LAST_SEASON", "2025")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.CacheEnabled())
	assert.True(t, cfg.AlertsEnabled())
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, 0.3, cfg.ModelParams().HomeAdvantage)
	assert.Equal(t, []int{2019, 2020, 2021, 2022, 2023, 2024, 2025}, cfg.Seasons())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"season before league founding", func(c *Config) { c.FirstSeason = 2015 }},
		{"last season before first", func(c *Config) { c.LastSeason = c.FirstSeason - 1 }},
		{"zero retries", func(c *Config) { c.APIMaxRetries = 0 }},
		{"negative value threshold", func(c *Config) { c.ValueThreshold = -1 }},
		{"telegram token without chat", func(c *Config) { c.TelegramToken = "123:abc"; c.TelegramChatID = 0 }},
		{"negative home advantage", func(c *Config) { c.HomeAdvantage = -0.1 }},
		{"zero max goals", func(c *Config) { c.MaxGoals = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
