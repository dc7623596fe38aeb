package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ersonp/kin-core/internal/application/handlers"
	"github.com/ersonp/kin-core/internal/domain/catalog"
	"github.com/ersonp/kin-core/internal/domain/ports"
	"github.com/ersonp/kin-core/internal/domain/services"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
	"github.com/ersonp/kin-core/internal/infrastructure/logger"
	"github.com/ersonp/kin-core/internal/infrastructure/relationaldb/postgres"
	"github.com/ersonp/kin-core/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - the engine and store are internal.
type Deps struct {
	Config        *config.Config
	Catalog       *catalog.Catalog
	Relationships *handlers.RelationshipHandler
	Memberships   *handlers.MembershipHandler
	Collectives   *handlers.CollectiveHandler
	Contacts      *handlers.ContactHandler
	Types         *handlers.TypesHandler
	Import        *handlers.ImportHandler
}

// openStore opens the relational store selected by cfg.Storage.Driver.
func openStore(ctx context.Context, basePath string, cfg *config.Config) (ports.RelationalDB, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.DriverPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("creating postgres repository: %w", err)
		}
		return repo, nil
	default:
		repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: cfg.SQLitePath(basePath)})
		if err != nil {
			return nil, fmt.Errorf("creating sqlite repository: %w", err)
		}
		return repo, nil
	}
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Log).With(slog.String("user", globalUser))

	cat, err := config.LoadCatalog(cwd, cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	db, err := openStore(ctx, cwd, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Ensure schema exists
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	log.DebugContext(ctx, "store ready",
		logger.Scope("cli"),
		slog.String("driver", cfg.Storage.Driver),
	)

	engine := services.NewEngine(db, cat, log)
	relationships := handlers.NewRelationshipHandler(engine)
	memberships := handlers.NewMembershipHandler(engine)

	return fn(&Deps{
		Config:        cfg,
		Catalog:       cat,
		Relationships: relationships,
		Memberships:   memberships,
		Collectives:   handlers.NewCollectiveHandler(engine, globalUser),
		Contacts:      handlers.NewContactHandler(engine),
		Types:         handlers.NewTypesHandler(cat),
		Import:        handlers.NewImportHandler(memberships, relationships),
	})
}
