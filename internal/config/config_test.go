package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FEES_ADDRESS", "fees")
	t.Setenv("CONFIG_FILE", "")
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	setRequired(t)
	t.Setenv("FEES_ADDRESS", "")
	_, err = Load()
	assert.ErrorContains(t, err, "FEES_ADDRESS")
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_WALLETS", "alice, bob,")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.App.Admins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.App.LockTTL)
	assert.Equal(t, 5*time.Minute, cfg.App.NonceTTL)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 100, cfg.Jobs.DispatchBatch)
	assert.Equal(t, "usdc", cfg.App.SettlementDenom)
	assert.Equal(t, "amm:transfers", cfg.Redis.Stream)
}

func TestLoadRedisStreamFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_STREAM", "settle:v2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "settle:v2", cfg.Redis.Stream)
}

func TestLoadConfigFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
app:
  settlement_denom: sol
redis:
  addr: localhost:6379
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SETTLEMENT_DENOM", "usdt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// the environment wins over the file
	assert.Equal(t, "usdt", cfg.App.SettlementDenom)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "amm", SSLMode: "disable"}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=amm sslmode=disable", cfg.GetDSN())
}
