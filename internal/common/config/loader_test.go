package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  postgres:
    host: localhost
    database: give4need
    user: app
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
auth:
  jwt_secret: test-secret
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Proximity.RadiusKm)
	assert.Equal(t, "legacy", cfg.Proximity.Formula)
	assert.False(t, cfg.Proximity.SortByDistance)
	assert.Equal(t, 14, cfg.Proximity.MapZoom)
	assert.Equal(t, 10*time.Second, cfg.Geolocation.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ProfileTTL)
	assert.Equal(t, "auth-token", cfg.Auth.CookieName)
	assert.Equal(t, "/login", cfg.Auth.LoginPath)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "items", cfg.Database.Elasticsearch.ItemIndex)
	assert.Equal(t, "http://localhost:9200", cfg.Database.Elasticsearch.URL)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.False(t, cfg.Camunda.Enabled)
}

func TestLoadFromFile_Overrides(t *testing.T) {
	body := minimalYAML + `
proximity:
  radius_km: 2.5
  formula: haversine
  sort_by_distance: true
geolocation:
  timeout: 3s
cache:
  profile_ttl: 1m
workers:
  recommend-nearby-items:
    enabled: true
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.Proximity.RadiusKm)
	assert.Equal(t, "haversine", cfg.Proximity.Formula)
	assert.True(t, cfg.Proximity.SortByDistance)
	assert.Equal(t, 3*time.Second, cfg.Geolocation.Timeout)
	assert.Equal(t, time.Minute, cfg.Cache.ProfileTTL)

	wc := GetWorkerConfig(cfg, "recommend-nearby-items")
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 3, wc.MaxRetries)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("G4N_TEST_SECRET", "from-env")
	body := `
database:
  postgres:
    host: localhost
    database: give4need
    user: app
  elasticsearch:
    url: http://es:9200
  redis:
    address: localhost:6379
auth:
  jwt_secret: ${G4N_TEST_SECRET}
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "camunda enabled without broker",
			mutate:  func(c *Config) { c.Camunda.Enabled = true },
			wantErr: "camunda.broker_address",
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *Config) { c.Database.Postgres.Host = "" },
			wantErr: "database.postgres.host",
		},
		{
			name:    "missing redis",
			mutate:  func(c *Config) { c.Database.Redis.Address = "" },
			wantErr: "database.redis.address",
		},
		{
			name:    "unknown formula",
			mutate:  func(c *Config) { c.Proximity.Formula = "vincenty" },
			wantErr: "proximity.formula",
		},
		{
			name:    "negative radius",
			mutate:  func(c *Config) { c.Proximity.RadiusKm = -1 },
			wantErr: "proximity.radius_km",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: "auth.jwt_secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Database.Postgres = PostgresConfig{Host: "h", Database: "d", User: "u"}
			cfg.Database.Elasticsearch.URL = "http://es:9200"
			cfg.Database.Redis.Address = "r:6379"
			cfg.Auth.JWTSecret = "s"
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"index-listing": {Enabled: false}}}
	assert.False(t, IsWorkerEnabled(cfg, "index-listing"))
	assert.True(t, IsWorkerEnabled(cfg, "recommend-nearby-items"))
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
