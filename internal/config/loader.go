package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXNODE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXNODE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.URL, "DEXNODE_LEDGER_URL")
	setStr(&cfg.Ledger.User, "DEXNODE_LEDGER_USER")
	setStr(&cfg.Ledger.Password, "DEXNODE_LEDGER_PASSWORD")
	setDuration(&cfg.Ledger.Timeout, "DEXNODE_LEDGER_TIMEOUT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DEXNODE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DEXNODE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEXNODE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEXNODE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEXNODE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEXNODE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEXNODE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DEXNODE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DEXNODE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "DEXNODE_POSTGRES_RUN_MIGRATIONS")
	setBool(&cfg.Postgres.SeedDefaults, "DEXNODE_POSTGRES_SEED_DEFAULTS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "DEXNODE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXNODE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXNODE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEXNODE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEXNODE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEXNODE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "DEXNODE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DEXNODE_S3_REGION")
	setStr(&cfg.S3.Bucket, "DEXNODE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DEXNODE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DEXNODE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DEXNODE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DEXNODE_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DEXNODE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DEXNODE_SERVER_PORT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "DEXNODE_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "DEXNODE_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "DEXNODE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
