// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/kin-core/internal/domain/ports"
	"github.com/ersonp/kin-core/internal/infrastructure/config"
)

// StoreOpener opens the relational store described by cfg.
type StoreOpener func(ctx context.Context, basePath string, cfg *config.Config) (ports.RelationalDB, error)

// InitHandler handles workspace initialization.
type InitHandler struct {
	open StoreOpener
}

// NewInitHandler creates a new init handler.
func NewInitHandler(open StoreOpener) *InitHandler {
	return &InitHandler{
		open: open,
	}
}

// InitOptions configures initialization.
type InitOptions struct {
	// WriteCatalog writes the built-in catalog to .kin/catalog.yaml for editing.
	WriteCatalog bool
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath  string
	CatalogPath string // empty unless the catalog was written
	Driver      string
}

// Handle writes the default configuration and creates the store schema.
func (h *InitHandler) Handle(ctx context.Context, basePath string, opts InitOptions) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("kin already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	result := &InitResult{ConfigPath: config.ConfigFilePath(basePath)}

	if opts.WriteCatalog {
		path, err := config.WriteCatalog(basePath)
		if err != nil {
			return nil, fmt.Errorf("writing catalog: %w", err)
		}
		result.CatalogPath = path
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	result.Driver = cfg.Storage.Driver

	// Fail early on a catalog the engine would refuse
	if _, err := config.LoadCatalog(basePath, cfg); err != nil {
		return nil, err
	}

	db, err := h.open(ctx, basePath, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return result, nil
}
