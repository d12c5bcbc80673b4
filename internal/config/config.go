// Package config defines the top-level configuration for scimarketd and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SCIMARKET_* environment variables.
type Config struct {
	Ledger   LedgerConfig   `toml:"ledger"`
	Wallet   WalletConfig   `toml:"wallet"`
	Scan     ScanConfig     `toml:"scan"`
	Market   MarketConfig   `toml:"market"`
	Content  ContentConfig  `toml:"content"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// LedgerConfig holds the RPC endpoint and contract addresses of the external
// ledger.
type LedgerConfig struct {
	RPCURL             string `toml:"rpc_url"`
	ChainID            int64  `toml:"chain_id"`
	NFTAddress         string `toml:"nft_address"`
	MarketplaceAddress string `toml:"marketplace_address"`
	RegistryAddress    string `toml:"registry_address"`
}

// WalletConfig holds the command-signing key material. Either a raw hex key
// or an encrypted keyfile plus password.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ScanConfig holds the refresh-scan cadence and bounds.
type ScanConfig struct {
	// PublicInterval is the re-scan period for the marketplace-wide view.
	PublicInterval duration `toml:"public_interval"`
	// OwnedInterval is the re-scan period for per-actor holdings views.
	OwnedInterval duration `toml:"owned_interval"`
	// MaxTokens caps how many token identifiers one scan inspects.
	MaxTokens int `toml:"max_tokens"`
	// RescanDelay is how long to wait after a confirmed command before the
	// follow-up scan, so ledger reads observe the new state.
	RescanDelay duration `toml:"rescan_delay"`
	// OwnedIdleTTL evicts an actor's holdings view after this long without a
	// query.
	OwnedIdleTTL duration `toml:"owned_idle_ttl"`
	// EnrichConcurrency bounds the metadata fan-out per scan.
	EnrichConcurrency int `toml:"enrich_concurrency"`
}

// MarketConfig holds command-construction bounds enforced before submission.
type MarketConfig struct {
	MinPriceEth string `toml:"min_price_eth"`
	MaxPriceEth string `toml:"max_price_eth"`
}

// ContentConfig holds off-chain metadata resolution parameters.
type ContentConfig struct {
	GatewayURL string   `toml:"gateway_url"`
	Timeout    duration `toml:"timeout"`
	CacheTTL   duration `toml:"cache_ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the activity
// store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ArchiveConfig holds S3-compatible cold-storage parameters.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per minute per client; 0 disables limiting.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Ledger: LedgerConfig{
			RPCURL:  "https://sepolia-rollup.arbitrum.io/rpc",
			ChainID: 421614,
		},
		Scan: ScanConfig{
			PublicInterval:    duration{5 * time.Minute},
			OwnedInterval:     duration{90 * time.Second},
			MaxTokens:         500,
			RescanDelay:       duration{4 * time.Second},
			OwnedIdleTTL:      duration{15 * time.Minute},
			EnrichConcurrency: 8,
		},
		Market: MarketConfig{
			MinPriceEth: "0.0001",
			MaxPriceEth: "1000",
		},
		Content: ContentConfig{
			GatewayURL: "https://ipfs.io/ipfs/",
			Timeout:    duration{10 * time.Second},
			CacheTTL:   duration{24 * time.Hour},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "scimarket",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "scimarket-archive",
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   240,
		},
		Notify: NotifyConfig{
			Events: []string{"scan_failed", "command_confirmed", "command_reverted"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true, // API only, scans on demand
	"scan":   true, // headless scanning, no API
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, scan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Ledger
	if c.Ledger.RPCURL == "" {
		errs = append(errs, "ledger: rpc_url must not be empty")
	}
	if c.Ledger.ChainID <= 0 {
		errs = append(errs, "ledger: chain_id must be positive")
	}
	for _, f := range []struct{ name, val string }{
		{"nft_address", c.Ledger.NFTAddress},
		{"marketplace_address", c.Ledger.MarketplaceAddress},
		{"registry_address", c.Ledger.RegistryAddress},
	} {
		if f.val == "" {
			errs = append(errs, "ledger: "+f.name+" must not be empty")
		} else if !common.IsHexAddress(f.val) {
			errs = append(errs, fmt.Sprintf("ledger: %s %q is not a valid address", f.name, f.val))
		}
	}

	// Wallet is only needed when the daemon submits commands (server/full).
	if c.Mode != "scan" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode "+c.Mode)
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Scan
	if c.Scan.PublicInterval.Duration <= 0 {
		errs = append(errs, "scan: public_interval must be positive")
	}
	if c.Scan.OwnedInterval.Duration <= 0 {
		errs = append(errs, "scan: owned_interval must be positive")
	}
	if c.Scan.MaxTokens < 1 {
		errs = append(errs, "scan: max_tokens must be >= 1")
	}
	if c.Scan.EnrichConcurrency < 1 {
		errs = append(errs, "scan: enrich_concurrency must be >= 1")
	}

	// Content
	if c.Content.GatewayURL == "" {
		errs = append(errs, "content: gateway_url must not be empty")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
