package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNFTAddr      = "0x1111111111111111111111111111111111111111"
	testMarketAddr   = "0x2222222222222222222222222222222222222222"
	testRegistryAddr = "0x3333333333333333333333333333333333333333"
)

// validConfig returns a Config that passes Validate for the scan mode.
func validConfig() Config {
	cfg := Defaults()
	cfg.Mode = "scan"
	cfg.Ledger.NFTAddress = testNFTAddr
	cfg.Ledger.MarketplaceAddress = testMarketAddr
	cfg.Ledger.RegistryAddress = testRegistryAddr
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.Scan.PublicInterval.Duration)
	assert.Equal(t, 90*time.Second, cfg.Scan.OwnedInterval.Duration)
	assert.Equal(t, 500, cfg.Scan.MaxTokens)
	assert.Equal(t, 15*time.Minute, cfg.Scan.OwnedIdleTTL.Duration)
	assert.Equal(t, "0.0001", cfg.Market.MinPriceEth)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Postgres.RunMigrations)
	assert.False(t, cfg.Archive.Enabled)
}

func TestValidateScanModeNeedsNoWallet(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateFullModeRequiresWallet(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "full"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")

	cfg.Wallet.PrivateKey = "ab" // presence is checked here, format at load
	require.NoError(t, cfg.Validate())
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "server"
	cfg.Wallet.EncryptedKeyPath = "/etc/scimarket/key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")

	cfg.Wallet.KeyPassword = "hunter2"
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "watch"
	cfg.Ledger.RPCURL = ""
	cfg.Ledger.NFTAddress = "not-an-address"
	cfg.Scan.MaxTokens = 0
	cfg.Redis.Addr = ""
	cfg.Server.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "watch"`)
	assert.Contains(t, msg, "rpc_url")
	assert.Contains(t, msg, `"not-an-address"`)
	assert.Contains(t, msg, "max_tokens")
	assert.Contains(t, msg, "redis: addr")
	assert.Contains(t, msg, "port must be 1-65535")
}

func TestValidateArchiveBoundsOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Enabled = false
	cfg.Archive.Endpoint = ""
	cfg.Archive.Bucket = ""
	require.NoError(t, cfg.Validate())

	cfg.Archive.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive: endpoint")
	assert.Contains(t, err.Error(), "archive: bucket")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"
log_level = "debug"

[ledger]
rpc_url = "http://localhost:8545"
chain_id = 31337
nft_address = "`+testNFTAddr+`"
marketplace_address = "`+testMarketAddr+`"
registry_address = "`+testRegistryAddr+`"

[scan]
public_interval = "30s"
max_tokens = 64

[server]
port = 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(31337), cfg.Ledger.ChainID)
	assert.Equal(t, 30*time.Second, cfg.Scan.PublicInterval.Duration)
	assert.Equal(t, 64, cfg.Scan.MaxTokens)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, 90*time.Second, cfg.Scan.OwnedInterval.Duration)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[ledger]
rpc_url = "http://from-file:8545"
`), 0o600))

	t.Setenv("SCIMARKET_LEDGER_RPC_URL", "http://from-env:8545")
	t.Setenv("SCIMARKET_SCAN_PUBLIC_INTERVAL", "45s")
	t.Setenv("SCIMARKET_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SCIMARKET_POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:8545", cfg.Ledger.RPCURL)
	assert.Equal(t, 45*time.Second, cfg.Scan.PublicInterval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
