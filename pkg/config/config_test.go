package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "event-booking", cfg.App.Name)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.EventTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ListTTL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TopTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Cache.CommandTimeout)
	assert.Equal(t, 5*time.Second, cfg.Booking.LockTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Ranking.ViewTTL)
	assert.Equal(t, 5, cfg.Ranking.DefaultTop)
	assert.Equal(t, 168*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("BOOKING_LOCK_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TOP_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8081", cfg.Server.Addr())
	assert.Equal(t, 2*time.Second, cfg.Booking.LockTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Cache.TopTTL)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret must be changed")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_DBNAME=from_file\nRANKING_DEFAULT_TOP=3\n"), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.Database.DBName)
	assert.Equal(t, 3, cfg.Ranking.DefaultTop)

	_, err = LoadWithPath(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Name: "x", Environment: "development"},
			Server:   ServerConfig{Port: 3000},
			Database: DatabaseConfig{Host: "h", DBName: "d"},
			Cache:    CacheConfig{EventTTL: time.Minute, ListTTL: time.Minute, TopTTL: time.Minute},
			Booking:  BookingConfig{LockTimeout: time.Second},
			Ranking:  RankingConfig{DefaultTop: 5, MaxTop: 50},
			JWT:      JWTConfig{Secret: "s"},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no db host", func(c *Config) { c.Database.Host = "" }},
		{"no lock timeout", func(c *Config) { c.Booking.LockTimeout = 0 }},
		{"zero ttl", func(c *Config) { c.Cache.TopTTL = 0 }},
		{"top limits", func(c *Config) { c.Ranking.MaxTop = 1 }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }},
		{"no secret", func(c *Config) { c.JWT.Secret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
