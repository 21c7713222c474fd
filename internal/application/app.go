// Package application wires configuration, the database pool and the core
// service for the server and the operator CLI.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/macinv/internal/config"
	"github.com/JonMunkholm/macinv/internal/core"
	"github.com/JonMunkholm/macinv/internal/database"
)

// App owns the resources behind a running Service.
type App struct {
	Config  *config.Config
	Pool    *pgxpool.Pool
	Service *core.Service
}

// New connects to the database, applies the schema when configured and
// builds the Service. Metrics register with reg.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	catalog, err := Catalog(&cfg.Catalog)
	if err != nil {
		return nil, err
	}

	pool, err := OpenPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("database schema applied")
	}

	store := core.NewPostgresStore(pool)
	svc, err := core.NewService(core.ServiceConfig{
		Devices:              store,
		Audit:                store,
		Catalog:              catalog,
		ImportWorkers:        cfg.Import.Workers,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
		MaxFileSize:          cfg.Import.MaxFileSize,
		Location:             cfg.Export.Location(),
		Metrics:              core.NewMetrics(reg),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	slog.Info("catalog loaded",
		"sites", len(catalog.Sites),
		"areas", len(catalog.Areas),
		"default_site", catalog.DefaultSite,
	)

	return &App{Config: cfg, Pool: pool, Service: svc}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}

// Catalog builds the device catalog, preferring CATALOG_FILE when set.
func Catalog(cfg *config.CatalogConfig) (*core.Catalog, error) {
	if cfg.File != "" {
		c, err := core.LoadCatalog(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("catalog file %s: %w", cfg.File, err)
		}
		return c, nil
	}
	c, err := core.NewCatalog(cfg.Sites, cfg.Areas, cfg.DefaultSite)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return c, nil
}

// OpenPool parses the connection string, applies the pool limits and
// verifies the connection.
func OpenPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
