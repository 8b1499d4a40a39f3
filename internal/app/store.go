package app

import (
	"context"
	"fmt"
	"time"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/repositories"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// mongoOpTimeout bounds MongoDB calls whose context carries no deadline.
const mongoOpTimeout = 5 * time.Second

// Store is an open product repository and the function releasing it.
// Collector reports connection pool stats for SQL stores and is nil otherwise.
type Store struct {
	Repo      repositories.ProductRepository
	Close     func() error
	Collector prometheus.Collector
}

// OpenStore opens the repository selected by cfg.StoreDriver and registers
// its schema.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, database.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		}, log)
		if err != nil {
			return nil, err
		}
		repo, err := repositories.NewMongoProductRepository(ctx, db, mongoOpTimeout)
		if err != nil {
			_ = database.DisconnectMongo(client)
			return nil, err
		}
		return &Store{Repo: repo, Close: func() error { return database.DisconnectMongo(client) }}, nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.OpenGORM(cfg.StoreDriver, cfg.DatabaseDSN, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		return &Store{
			Repo:      repositories.NewGORMProductRepository(db),
			Close:     sqlDB.Close,
			Collector: collectors.NewDBStatsCollector(sqlDB, cfg.StoreDriver),
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory product store; data is lost on exit")
		return &Store{Repo: repositories.NewMemoryProductRepository(), Close: func() error { return nil }}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
