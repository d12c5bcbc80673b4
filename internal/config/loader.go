package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SCIMARKET_* environment variable overrides, and
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

// applyEnvOverrides reads well-known SCIMARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Ledger ──
	setStr(&cfg.Ledger.RPCURL, "SCIMARKET_LEDGER_RPC_URL")
	setInt64(&cfg.Ledger.ChainID, "SCIMARKET_LEDGER_CHAIN_ID")
	setStr(&cfg.Ledger.NFTAddress, "SCIMARKET_LEDGER_NFT_ADDRESS")
	setStr(&cfg.Ledger.MarketplaceAddress, "SCIMARKET_LEDGER_MARKETPLACE_ADDRESS")
	setStr(&cfg.Ledger.RegistryAddress, "SCIMARKET_LEDGER_REGISTRY_ADDRESS")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SCIMARKET_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SCIMARKET_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SCIMARKET_WALLET_KEY_PASSWORD")

	// ── Scan ──
	setDuration(&cfg.Scan.PublicInterval, "SCIMARKET_SCAN_PUBLIC_INTERVAL")
	setDuration(&cfg.Scan.OwnedInterval, "SCIMARKET_SCAN_OWNED_INTERVAL")
	setInt(&cfg.Scan.MaxTokens, "SCIMARKET_SCAN_MAX_TOKENS")
	setDuration(&cfg.Scan.RescanDelay, "SCIMARKET_SCAN_RESCAN_DELAY")
	setDuration(&cfg.Scan.OwnedIdleTTL, "SCIMARKET_SCAN_OWNED_IDLE_TTL")
	setInt(&cfg.Scan.EnrichConcurrency, "SCIMARKET_SCAN_ENRICH_CONCURRENCY")

	// ── Market ──
	setStr(&cfg.Market.MinPriceEth, "SCIMARKET_MARKET_MIN_PRICE_ETH")
	setStr(&cfg.Market.MaxPriceEth, "SCIMARKET_MARKET_MAX_PRICE_ETH")

	// ── Content ──
	setStr(&cfg.Content.GatewayURL, "SCIMARKET_CONTENT_GATEWAY_URL")
	setDuration(&cfg.Content.Timeout, "SCIMARKET_CONTENT_TIMEOUT")
	setDuration(&cfg.Content.CacheTTL, "SCIMARKET_CONTENT_CACHE_TTL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SCIMARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SCIMARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SCIMARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SCIMARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SCIMARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SCIMARKET_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SCIMARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SCIMARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SCIMARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SCIMARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SCIMARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SCIMARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SCIMARKET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SCIMARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SCIMARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SCIMARKET_POSTGRES_RUN_MIGRATIONS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SCIMARKET_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "SCIMARKET_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "SCIMARKET_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "SCIMARKET_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "SCIMARKET_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "SCIMARKET_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "SCIMARKET_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "SCIMARKET_ARCHIVE_FORCE_PATH_STYLE")
	setInt(&cfg.Archive.RetentionDays, "SCIMARKET_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SCIMARKET_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SCIMARKET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SCIMARKET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SCIMARKET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SCIMARKET_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SCIMARKET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SCIMARKET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SCIMARKET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SCIMARKET_NOTIFY_EVENTS")

	// ── Top level ──
	setStr(&cfg.Mode, "SCIMARKET_MODE")
	setStr(&cfg.LogLevel, "SCIMARKET_LOG_LEVEL")
}

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
