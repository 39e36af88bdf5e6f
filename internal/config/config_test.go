package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, time.Second, cfg.Autosave.DebounceDuration())
	assert.Equal(t, 5*time.Second, cfg.Reconciliation.ScorerTimeoutDuration())
	assert.Equal(t, 8, cfg.Reconciliation.Workers)
	assert.Equal(t, "token", cfg.Scorer.Provider)
	assert.False(t, cfg.DataWarehouse.Enabled)
	assert.Equal(t, "0 */15 * * * *", cfg.Jobs.StockRefreshSchedule)
	assert.Contains(t, cfg.CORS.AllowedHeaders, "X-Actor-ID")
	assert.Contains(t, cfg.CORS.AllowedMethods, "PATCH")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", "/tmp/erp-test.db")
	t.Setenv("AUTOSAVE_DEBOUNCEMS", "250")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/erp-test.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Autosave.DebounceDuration())
	assert.Equal(t, "sk-test", cfg.Scorer.APIKey)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")
	_, err := config.Load()
	assert.ErrorContains(t, err, "database.driver")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Database:       config.DatabaseConfig{Driver: "sqlite"},
			Scorer:         config.ScorerConfig{Provider: "none"},
			Autosave:       config.AutosaveConfig{DebounceMs: 1000},
			Reconciliation: config.ReconciliationConfig{Workers: 1},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"scorer provider", func(c *config.Config) { c.Scorer.Provider = "magic" }},
		{"debounce", func(c *config.Config) { c.Autosave.DebounceMs = 0 }},
		{"workers", func(c *config.Config) { c.Reconciliation.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "erp", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=erp sslmode=require", d.ConnectionString())
}
