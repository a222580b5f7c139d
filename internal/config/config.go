package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	App      AppConfig      `mapstructure:"app"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Solana   SolanaConfig   `mapstructure:"solana"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite file
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"` // console, json
	Development       bool   `mapstructure:"development"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// AppConfig holds market engine settings
type AppConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	RegistryAddress string        `mapstructure:"registry_address"`
	FeesAddress     string        `mapstructure:"fees_address"`
	SettlementDenom string        `mapstructure:"settlement_denom"`
	Admins          []string      `mapstructure:"admins"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	NonceTTL        time.Duration `mapstructure:"nonce_ttl"`
}

// RedisConfig is optional; an empty Addr disables Redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

// SolanaConfig is optional; an empty EscrowOwner keeps the escrow ledger as the balance source
type SolanaConfig struct {
	Network     string `mapstructure:"network"`
	RPCURL      string `mapstructure:"rpc_url"`
	EscrowOwner string `mapstructure:"escrow_owner"`
	Mint        string `mapstructure:"mint"`
}

// JobsConfig holds background job schedules
type JobsConfig struct {
	DispatchSchedule string `mapstructure:"dispatch_schedule"`
	DispatchBatch    int    `mapstructure:"dispatch_batch"`
}

var envKeys = map[string]string{
	"database.driver":        "DB_DRIVER",
	"database.host":          "DB_HOST",
	"database.port":          "DB_PORT",
	"database.user":          "DB_USER",
	"database.password":      "DB_PASSWORD",
	"database.name":          "DB_NAME",
	"database.sslmode":       "DB_SSLMODE",
	"database.path":          "DB_PATH",
	"server.port":            "SERVER_PORT",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"server.rate_limit":      "RATE_LIMIT",
	"server.rate_burst":      "RATE_BURST",
	"log.level":              "LOG_LEVEL",
	"log.encoding":           "LOG_ENCODING",
	"app.jwt_secret":         "JWT_SECRET",
	"app.registry_address":   "REGISTRY_ADDRESS",
	"app.fees_address":       "FEES_ADDRESS",
	"app.settlement_denom":   "SETTLEMENT_DENOM",
	"app.admins":             "ADMIN_WALLETS",
	"app.nonce_ttl":          "NONCE_TTL",
	"redis.addr":             "REDIS_ADDR",
	"redis.password":         "REDIS_PASSWORD",
	"redis.db":               "REDIS_DB",
	"redis.stream":           "REDIS_STREAM",
	"solana.network":         "SOLANA_NETWORK",
	"solana.rpc_url":         "SOLANA_RPC_URL",
	"solana.escrow_owner":    "SOLANA_ESCROW_OWNER",
	"solana.mint":            "SOLANA_MINT",
	"jobs.dispatch_schedule": "DISPATCH_SCHEDULE",
}

// Load loads configuration from .env, the environment and an optional YAML
// file named by CONFIG_FILE. Environment variables win over the file.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "amm_market")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "amm_market.db")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("app.registry_address", "registry")
	v.SetDefault("app.settlement_denom", "usdc")
	v.SetDefault("app.lock_ttl", "10s")
	v.SetDefault("app.nonce_ttl", "5m")
	v.SetDefault("redis.stream", "amm:transfers")
	v.SetDefault("solana.network", "devnet")
	v.SetDefault("jobs.dispatch_schedule", "*/5 * * * * *")
	v.SetDefault("jobs.dispatch_batch", 100)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Comma separated lists arrive from the environment as a single string
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.App.Admins = splitList(cfg.App.Admins)

	// Validate required fields
	if cfg.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.App.FeesAddress == "" {
		return nil, fmt.Errorf("FEES_ADDRESS is required")
	}

	return cfg, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
