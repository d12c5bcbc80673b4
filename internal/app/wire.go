package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/scimarket/scimarketd/internal/blob/s3"
	rediscache "github.com/scimarket/scimarketd/internal/cache/redis"
	"github.com/scimarket/scimarketd/internal/config"
	"github.com/scimarket/scimarketd/internal/content"
	"github.com/scimarket/scimarketd/internal/domain"
	"github.com/scimarket/scimarketd/internal/ledger"
	"github.com/scimarket/scimarketd/internal/market"
	"github.com/scimarket/scimarketd/internal/notify"
	"github.com/scimarket/scimarketd/internal/server/ws"
	"github.com/scimarket/scimarketd/internal/service"
	"github.com/scimarket/scimarketd/internal/store/postgres"
	"github.com/scimarket/scimarketd/internal/wallet"
)

// Dependencies bundles every constructed collaborator the modes need.
type Dependencies struct {
	Reader    *ledger.Reader
	Submitter domain.CommandSubmitter

	Scans *market.Manager
	Hub   *ws.Hub

	Markets  *service.MarketService
	Commands *service.CommandService

	Activity    domain.ActivityStore
	RateLimiter domain.RateLimiter
	Archiver    domain.Archiver
	Notifier    *notify.Notifier

	// Held for health probes.
	PG    *postgres.Client
	Redis *rediscache.Client
}

// needsPostgres reports whether the mode persists activity history.
func needsPostgres(mode string) bool {
	return mode == "server" || mode == "full"
}

// needsWallet reports whether the mode signs transactions.
func needsWallet(mode string) bool {
	return mode == "server" || mode == "full"
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	nftAddr := common.HexToAddress(cfg.Ledger.NFTAddress)
	marketAddr := common.HexToAddress(cfg.Ledger.MarketplaceAddress)
	registryAddr := common.HexToAddress(cfg.Ledger.RegistryAddress)

	// Ledger read channel.
	reader, err := ledger.NewReader(ctx, cfg.Ledger.RPCURL, nftAddr, marketAddr, registryAddr, logger)
	if err != nil {
		return fail(fmt.Errorf("wire: ledger reader: %w", err))
	}
	closers = append(closers, reader.Close)
	deps.Reader = reader

	// Signing wallet and write channel.
	if needsWallet(cfg.Mode) {
		w, err := wallet.Load(wallet.Source{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: wallet: %w", err))
		}
		submitter, err := ledger.NewSubmitter(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ChainID,
			w.Key(), w.Address(), nftAddr, marketAddr, logger)
		if err != nil {
			return fail(fmt.Errorf("wire: ledger submitter: %w", err))
		}
		closers = append(closers, submitter.Close)
		deps.Submitter = submitter
	}

	// Redis-backed caches; optional, scans degrade to uncached resolution.
	var contentCache domain.ContentCache
	if cfg.Redis.Addr != "" {
		rdb, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Redis = rdb
		contentCache = rediscache.NewContentCache(rdb, cfg.Content.CacheTTL.Duration)
		deps.RateLimiter = rediscache.NewRateLimiter(rdb)
	}

	// Metadata resolution and enrichment.
	resolver := content.NewGatewayResolver(cfg.Content.GatewayURL, cfg.Content.Timeout.Duration, contentCache, logger)
	enricher := content.NewEnricher(reader, resolver, cfg.Scan.EnrichConcurrency, logger)

	// Notifications.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// Scan pipeline: WebSocket hub doubles as the scan event sink, with
	// failures also alerted through the notifier.
	deps.Hub = ws.NewHub(logger)
	sink := &alertingSink{hub: deps.Hub, notifier: deps.Notifier, logger: logger}

	reconciler := market.NewReconciler(marketAddr)
	deps.Scans = market.NewManager(reader, reconciler, enricher, market.ManagerConfig{
		PublicInterval: cfg.Scan.PublicInterval.Duration,
		OwnedInterval:  cfg.Scan.OwnedInterval.Duration,
		MaxTokens:      cfg.Scan.MaxTokens,
		OwnedIdleTTL:   cfg.Scan.OwnedIdleTTL.Duration,
	}, sink, logger)

	// Listing price bounds.
	minWei, err := market.ParseEther(cfg.Market.MinPriceEth)
	if err != nil {
		return fail(fmt.Errorf("wire: market.min_price_eth: %w", err))
	}
	maxWei, err := market.ParseEther(cfg.Market.MaxPriceEth)
	if err != nil {
		return fail(fmt.Errorf("wire: market.max_price_eth: %w", err))
	}
	bounds := market.PriceBounds{Min: minWei, Max: maxWei}

	deps.Markets = service.NewMarketService(deps.Scans, reader, bounds, logger)

	// Persistence.
	if needsPostgres(cfg.Mode) {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)
		deps.PG = pg

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Activity = postgres.NewActivityStore(pg.Pool())
	}

	// Command execution.
	if deps.Submitter != nil && deps.Activity != nil {
		deps.Commands = service.NewCommandService(
			deps.Markets, deps.Scans, reader, deps.Submitter, deps.Activity,
			deps.Notifier, deps.Hub, bounds, cfg.Scan.RescanDelay.Duration, logger,
		)
	}

	// Cold storage.
	if cfg.Archive.Enabled {
		s3c, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if deps.Activity != nil {
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3c), deps.Activity)
		}
	}

	return deps, cleanup, nil
}
