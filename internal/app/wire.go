package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/bitdex/dexnode/internal/blob/s3"
	"github.com/bitdex/dexnode/internal/cache/redis"
	"github.com/bitdex/dexnode/internal/config"
	"github.com/bitdex/dexnode/internal/dex"
	"github.com/bitdex/dexnode/internal/dexdb"
	"github.com/bitdex/dexnode/internal/domain"
	"github.com/bitdex/dexnode/internal/ledger"
	"github.com/bitdex/dexnode/internal/store/postgres"
)

// Dependencies holds every long-lived component the application wires up.
type Dependencies struct {
	Postgres  *postgres.Client
	Redis     *redis.Client
	DB        *dexdb.DB
	Ledger    *ledger.Client
	Protocol  *dex.Protocol
	Monitor   *dex.Monitor
	SignalBus domain.SignalBus

	// BlobWriter is nil unless archive.enabled is set.
	BlobWriter domain.BlobWriter
}

// Wire constructs all dependencies from the configuration. It returns a
// cleanup function that releases everything already constructed; the cleanup
// is also invoked on every error path so partial wiring never leaks
// connections.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// Postgres: the persistent backend for every collection.
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
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	closers = append(closers, pg.Close)

	if cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.InfoContext(ctx, "database migrations applied")
	}
	if cfg.Postgres.SeedDefaults {
		seeder, err := postgres.NewSeeder(pg.Pool())
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create seeder: %w", err)
		}
		if err := seeder.Run(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("seed reference data: %w", err)
		}
	}

	sellStore, err := postgres.NewOfferStore(pg.Pool(), postgres.TableOffersSell)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create sell offer store: %w", err)
	}
	buyStore, err := postgres.NewOfferStore(pg.Pool(), postgres.TableOffersBuy)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create buy offer store: %w", err)
	}

	db := dexdb.New(dexdb.Stores{
		Countries:      postgres.NewCountryStore(pg.Pool()),
		Currencies:     postgres.NewCurrencyStore(pg.Pool()),
		PaymentMethods: postgres.NewPaymentMethodStore(pg.Pool()),
		SellOffers:     sellStore,
		BuyOffers:      buyStore,
		MyOffers:       postgres.NewMyOfferStore(pg.Pool()),
		Filters:        postgres.NewFilterStore(pg.Pool()),
	}, logger)
	closers = append(closers, db.Close)

	// Redis: the signal bus carrying block notifications and offer events.
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	bus := redis.NewSignalBus(redisClient)

	// Coin daemon RPC, protocol, and the chain monitor.
	ledgerClient := ledger.New(ledger.Config{
		URL:      cfg.Ledger.URL,
		User:     cfg.Ledger.User,
		Password: cfg.Ledger.Password,
		Timeout:  cfg.Ledger.Timeout.Duration,
	})
	proto := dex.New(db, ledgerClient, logger)
	monitor := dex.NewMonitor(db, proto, ledgerClient, bus, logger)

	deps := &Dependencies{
		Postgres:  pg,
		Redis:     redisClient,
		DB:        db,
		Ledger:    ledgerClient,
		Protocol:  proto,
		Monitor:   monitor,
		SignalBus: bus,
	}

	// Object storage, only when snapshot archiving is on.
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("s3 health check: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	return deps, cleanup, nil
}
